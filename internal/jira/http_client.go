package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type httpClient struct {
	cfg        Config
	httpClient *http.Client

	mu          sync.Mutex
	lastRequest time.Time
}

func newHTTPClient(cfg Config) *httpClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "3"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &httpClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (c *httpClient) throttle() {
	if c.cfg.RequestDelay <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < c.cfg.RequestDelay {
		wait := c.cfg.RequestDelay - elapsed
		log.Debug().Dur("wait", wait).Msg("Throttling Jira request")
		time.Sleep(wait)
	}
	c.lastRequest = time.Now()
}

func (c *httpClient) authenticateRequest(req *http.Request) {
	req.SetBasicAuth(c.cfg.Username, c.cfg.Token)
	req.Header.Set("Accept", "application/json")
}

// get performs one search request and decodes the body into out.
// Every failure is reported as a *RemoteError.
func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	c.throttle()

	searchURL := fmt.Sprintf("%s%s?%s", c.cfg.BaseURL, path, params.Encode())
	log.Debug().Str("url", searchURL).Msg("Jira search details")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return &RemoteError{URL: searchURL, Err: err}
	}

	c.authenticateRequest(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteError{URL: searchURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var cause error
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			cause = errors.New("authentication failed, check JIRA_USERNAME and JIRA_TOKEN")
		case http.StatusTooManyRequests:
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				cause = fmt.Errorf("rate limit exceeded, retry after %s seconds", retryAfter)
			} else {
				cause = errors.New("rate limit exceeded")
			}
		case http.StatusBadRequest:
			cause = errors.New("search rejected, check the JQL settings and field ids")
		default:
			cause = fmt.Errorf("unexpected status %s", resp.Status)
		}
		return &RemoteError{StatusCode: resp.StatusCode, URL: searchURL, Err: cause}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteError{StatusCode: resp.StatusCode, URL: searchURL, Err: fmt.Errorf("failed to decode Jira response: %w", err)}
	}
	return nil
}

func (c *httpClient) baseParams(q SearchQuery) url.Values {
	params := url.Values{}
	params.Set("jql", q.JQL)
	params.Set("fields", strings.Join(q.Fields, ","))
	if q.MaxResults > 0 {
		params.Set("maxResults", strconv.Itoa(q.MaxResults))
	}
	return params
}

// offsetClient speaks the startAt/maxResults/total protocol of /rest/api/{2,3}/search.
type offsetClient struct {
	*httpClient
}

func (c *offsetClient) Search(ctx context.Context, q SearchQuery, cursor Cursor) (*SearchPage, error) {
	params := c.baseParams(q)
	params.Set("startAt", strconv.Itoa(cursor.StartAt))

	path := fmt.Sprintf("/rest/api/%s/search", c.cfg.APIVersion)
	var body offsetResponse
	if err := c.get(ctx, path, params, &body); err != nil {
		return nil, err
	}
	if body.Issues == nil || body.Total == nil {
		return nil, &RemoteError{StatusCode: http.StatusOK, URL: c.cfg.BaseURL + path, Err: errors.New("malformed page: missing issues or total")}
	}

	page := &SearchPage{Issues: body.Issues}
	next := cursor.StartAt + len(body.Issues)
	if len(body.Issues) > 0 && next < *body.Total {
		page.Next = &Cursor{StartAt: next}
	}

	log.Info().Int("startAt", cursor.StartAt).Int("count", len(body.Issues)).Int("total", *body.Total).Msg("Fetched Jira page")
	return page, nil
}

// tokenClient speaks the nextPageToken/isLast protocol of /rest/api/3/search/jql.
type tokenClient struct {
	*httpClient
}

func (c *tokenClient) Search(ctx context.Context, q SearchQuery, cursor Cursor) (*SearchPage, error) {
	params := c.baseParams(q)
	if cursor.Token != "" {
		params.Set("nextPageToken", cursor.Token)
	}

	const path = "/rest/api/3/search/jql"
	var body tokenResponse
	if err := c.get(ctx, path, params, &body); err != nil {
		return nil, err
	}
	if body.Issues == nil {
		return nil, &RemoteError{StatusCode: http.StatusOK, URL: c.cfg.BaseURL + path, Err: errors.New("malformed page: missing issues")}
	}

	isLast := body.IsLast != nil && *body.IsLast
	if body.IsLast != nil && !isLast && body.NextPageToken == "" {
		return nil, &RemoteError{StatusCode: http.StatusOK, URL: c.cfg.BaseURL + path, Err: errors.New("malformed page: isLast=false without nextPageToken")}
	}

	page := &SearchPage{Issues: body.Issues}
	if !isLast && body.NextPageToken != "" {
		page.Next = &Cursor{Token: body.NextPageToken}
	}

	log.Info().Int("count", len(body.Issues)).Bool("last", page.Next == nil).Msg("Fetched Jira page")
	return page, nil
}
