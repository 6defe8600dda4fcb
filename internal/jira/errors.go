package jira

import "fmt"

// RemoteError reports a failed page request: transport failure, non-success status or a body
// that could not be decoded. It is never retried by this package.
type RemoteError struct {
	StatusCode int // 0 when no response was received
	URL        string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("jira search failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("jira search failed: %v", e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
