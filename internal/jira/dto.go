package jira

import (
	"encoding/json"
	"strings"
)

// SearchQuery is the fixed part of a search: it is identical for every page of one fetch.
type SearchQuery struct {
	JQL        string
	Fields     []string
	MaxResults int
}

// Cursor points at a page. Offset endpoints use StartAt, token endpoints use Token.
type Cursor struct {
	StartAt int
	Token   string
}

// SearchPage is one decoded page of search results.
type SearchPage struct {
	Issues []RawIssue
	Next   *Cursor
}

// offsetResponse is the body of /rest/api/{2,3}/search.
type offsetResponse struct {
	StartAt    int        `json:"startAt"`
	MaxResults int        `json:"maxResults"`
	Total      *int       `json:"total"`
	Issues     []RawIssue `json:"issues"`
}

// tokenResponse is the body of /rest/api/3/search/jql.
type tokenResponse struct {
	Issues        []RawIssue `json:"issues"`
	NextPageToken string     `json:"nextPageToken"`
	IsLast        *bool      `json:"isLast"`
}

// RawIssue is a single issue as returned by the search endpoint.
// Fields are kept raw because the custom field ids are configuration.
type RawIssue struct {
	ID     string                     `json:"id"`
	Key    string                     `json:"key"`
	Fields map[string]json.RawMessage `json:"fields"`
}

// SprintDTO is one entry of the sprint custom field.
type SprintDTO struct {
	ID        int    `json:"id,omitempty"`
	Name      string `json:"name"`
	State     string `json:"state,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// namedValueDTO covers the option, user, status and issuetype objects.
type namedValueDTO struct {
	Value       string `json:"value"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// FieldMap holds the ids of the custom fields this instance uses.
type FieldMap struct {
	Developer    string `yaml:"developer"`
	StoryPoint   string `yaml:"storyPoint"`
	FEStoryPoint string `yaml:"feStoryPoint"`
	BEStoryPoint string `yaml:"beStoryPoint"`
	Sprint       string `yaml:"sprint"`
	Squad        string `yaml:"squad"`
}

// DefaultFieldMap returns the field ids of the LPS Jira Cloud instance.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		Developer:    "customfield_10949",
		StoryPoint:   "customfield_10028",
		FEStoryPoint: "customfield_10909",
		BEStoryPoint: "customfield_10910",
		Sprint:       "customfield_10020",
		Squad:        "customfield_10239",
	}
}

// WithDefaults fills empty ids from DefaultFieldMap.
func (m FieldMap) WithDefaults() FieldMap {
	d := DefaultFieldMap()
	if strings.TrimSpace(m.Developer) == "" {
		m.Developer = d.Developer
	}
	if strings.TrimSpace(m.StoryPoint) == "" {
		m.StoryPoint = d.StoryPoint
	}
	if strings.TrimSpace(m.FEStoryPoint) == "" {
		m.FEStoryPoint = d.FEStoryPoint
	}
	if strings.TrimSpace(m.BEStoryPoint) == "" {
		m.BEStoryPoint = d.BEStoryPoint
	}
	if strings.TrimSpace(m.Sprint) == "" {
		m.Sprint = d.Sprint
	}
	if strings.TrimSpace(m.Squad) == "" {
		m.Squad = d.Squad
	}
	return m
}

// Projection is the fixed field list requested on every page.
func (m FieldMap) Projection() []string {
	return []string{
		"id", "key", "summary",
		m.Developer, m.StoryPoint, m.FEStoryPoint, m.BEStoryPoint, m.Sprint, m.Squad,
		"issuetype", "labels", "assignee", "status", "created", "updated",
	}
}
