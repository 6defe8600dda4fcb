package jira

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const jqlDate = "2006-01-02"

// Filter is the issue selection shared by every page request.
type Filter struct {
	Project          string
	IssueTypes       []string
	ExcludedStatuses []string
	// SquadField is the JQL name of the squad custom field, e.g. "Squad[Dropdown]".
	SquadField string
	Squads     []string
}

// BuildJQL renders the filter bounded to issues updated within [start, end], both whole days.
func BuildJQL(f Filter, start, end time.Time) string {
	var clauses []string
	if f.Project != "" {
		clauses = append(clauses, "project = "+quote(f.Project))
	}
	if len(f.IssueTypes) > 0 {
		clauses = append(clauses, "type IN ("+quoteList(f.IssueTypes)+")")
	}
	if len(f.ExcludedStatuses) > 0 {
		clauses = append(clauses, "status NOT IN ("+quoteList(f.ExcludedStatuses)+")")
	}
	if f.SquadField != "" && len(f.Squads) > 0 {
		clauses = append(clauses, quote(f.SquadField)+" IN ("+quoteList(f.Squads)+")")
	}

	dayAfterEnd := time.Date(end.Year(), end.Month(), end.Day()+1, 0, 0, 0, 0, end.Location())
	clauses = append(clauses,
		fmt.Sprintf("updated >= %q", start.Format(jqlDate)),
		fmt.Sprintf("updated < %q", dayAfterEnd.Format(jqlDate)),
	)

	return strings.Join(clauses, " AND ") + " ORDER BY key ASC"
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return strings.Join(quoted, ", ")
}

// Fetcher retrieves every issue of a date range by walking the paged search protocol.
type Fetcher struct {
	client   Client
	filter   Filter
	fields   FieldMap
	pageSize int
}

func NewFetcher(client Client, filter Filter, fields FieldMap, pageSize int) *Fetcher {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Fetcher{
		client:   client,
		filter:   filter,
		fields:   fields.WithDefaults(),
		pageSize: pageSize,
	}
}

// Fields returns the field map used for projection and normalization.
func (f *Fetcher) Fields() FieldMap {
	return f.fields
}

// FetchRange returns all raw issues updated within [start, end]. Errors from the client are
// returned as-is; the loop is never retried here.
func (f *Fetcher) FetchRange(ctx context.Context, start, end time.Time) ([]RawIssue, error) {
	q := SearchQuery{
		JQL:        BuildJQL(f.filter, start, end),
		Fields:     f.fields.Projection(),
		MaxResults: f.pageSize,
	}
	log.Debug().Str("jql", q.JQL).Msg("Starting range fetch")

	var (
		all    []RawIssue
		cursor Cursor
		pages  int
	)
	for {
		page, err := f.client.Search(ctx, q, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetch %s..%s at page %d: %w", start.Format(jqlDate), end.Format(jqlDate), pages, err)
		}
		pages++
		all = append(all, page.Issues...)

		if page.Next == nil {
			break
		}
		if *page.Next == cursor {
			return nil, &RemoteError{Err: errors.New("pagination cursor did not advance")}
		}
		cursor = *page.Next
	}

	log.Info().
		Str("from", start.Format(jqlDate)).
		Str("to", end.Format(jqlDate)).
		Int("pages", pages).
		Int("issues", len(all)).
		Msg("Range fetch complete")
	return all, nil
}
