package jira

import (
	"context"
	"time"
)

// Issue is the canonical, normalized shape of a Jira issue used by the cache and every aggregate.
// It is built once by MapIssue and never mutated afterwards.
type Issue struct {
	ID           string   `json:"id"`
	Key          string   `json:"key"`
	Summary      string   `json:"summary"`
	Developer    string   `json:"developer"`
	Assignee     string   `json:"assignee"`
	StoryPoint   float64  `json:"storyPoint"`
	FEStoryPoint float64  `json:"feStoryPoint"`
	BEStoryPoint float64  `json:"beStoryPoint"`
	Sprint       string   `json:"sprint"`
	Squad        string   `json:"squad"`
	Type         string   `json:"type"`
	Labels       []string `json:"labels"`
	Status       string   `json:"status"`
	Created      string   `json:"created"`
	Updated      string   `json:"updated"`
}

// HasLabel reports whether the issue carries the given label.
func (i Issue) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Pagination selects the paging protocol of the search endpoint.
type Pagination string

const (
	// PaginationOffset pages with startAt/maxResults and stops at total.
	PaginationOffset Pagination = "offset"
	// PaginationToken pages with nextPageToken and stops at isLast.
	PaginationToken Pagination = "token"
)

// Client is the interface for the Jira search endpoint.
type Client interface {
	// Search returns a single page. A nil Next on the page means it was the last one.
	Search(ctx context.Context, q SearchQuery, cursor Cursor) (*SearchPage, error)
}

// Config holds the authentication and connection settings for Jira.
type Config struct {
	BaseURL  string
	Username string
	Token    string

	// APIVersion is the REST version used by the offset protocol ("2" or "3").
	APIVersion string
	Pagination Pagination
	PageSize   int

	// Performance Settings
	Timeout      time.Duration
	RequestDelay time.Duration
}

// NewClient creates a new Jira client based on the provided configuration.
func NewClient(cfg Config) Client {
	base := newHTTPClient(cfg)
	if cfg.Pagination == PaginationOffset {
		return &offsetClient{base}
	}
	return &tokenClient{base}
}
