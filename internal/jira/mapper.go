package jira

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// Defaults applied when a field is missing from the raw issue.
const (
	Unassigned    = "Unassigned"
	NoSprint      = "No Sprint"
	NoSquad       = "No Squad"
	UnknownValue  = "Unknown"
	DevDesignFlag = "dev-design"
)

// MapIssue transforms a raw search result into the canonical Issue.
// It is pure: equal input always yields an equal Issue, and absent fields get explicit defaults.
func MapIssue(raw RawIssue, fields FieldMap) Issue {
	fields = fields.WithDefaults()

	issue := Issue{
		ID:           raw.ID,
		Key:          raw.Key,
		Summary:      stringField(raw.Fields, "summary"),
		Developer:    userField(raw.Fields, fields.Developer, Unassigned),
		Assignee:     userField(raw.Fields, "assignee", Unassigned),
		StoryPoint:   pointField(raw.Fields, fields.StoryPoint),
		FEStoryPoint: pointField(raw.Fields, fields.FEStoryPoint),
		BEStoryPoint: pointField(raw.Fields, fields.BEStoryPoint),
		Sprint:       NoSprint,
		Squad:        NoSquad,
		Type:         UnknownValue,
		Labels:       []string{},
		Status:       UnknownValue,
		Created:      stringField(raw.Fields, "created"),
		Updated:      stringField(raw.Fields, "updated"),
	}

	if sprints, ok := decodeField[[]SprintDTO](raw.Fields, fields.Sprint); ok {
		issue.Sprint = ResolveSprint(sprints)
	}
	if squad, ok := decodeField[namedValueDTO](raw.Fields, fields.Squad); ok && squad.Value != "" {
		issue.Squad = squad.Value
	}
	if it, ok := decodeField[namedValueDTO](raw.Fields, "issuetype"); ok && it.Name != "" {
		issue.Type = it.Name
	}
	if st, ok := decodeField[namedValueDTO](raw.Fields, "status"); ok && st.Name != "" {
		issue.Status = st.Name
	}
	if labels, ok := decodeField[[]string](raw.Fields, "labels"); ok {
		for _, l := range labels {
			if l != "" && !slices.Contains(issue.Labels, l) {
				issue.Labels = append(issue.Labels, l)
			}
		}
	}

	return issue
}

// ResolveSprint picks the sprint with the latest end date. Missing or unparseable end dates count
// as the zero time; ties are ordered by name and the last one wins.
func ResolveSprint(sprints []SprintDTO) string {
	if len(sprints) == 0 {
		return NoSprint
	}

	sorted := slices.Clone(sprints)
	slices.SortStableFunc(sorted, func(a, b SprintDTO) int {
		if c := parseSprintDate(a.EndDate).Compare(parseSprintDate(b.EndDate)); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})

	name := sorted[len(sorted)-1].Name
	if name == "" {
		return NoSprint
	}
	return name
}

var timeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339Nano,
	"2006-01-02",
}

// ParseTime accepts the Jira timestamp formats seen on issues and sprints.
func ParseTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func parseSprintDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := ParseTime(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// decodeField unmarshals a single field. Absent, null or mistyped values report false.
func decodeField[T any](fields map[string]json.RawMessage, id string) (T, bool) {
	var out T
	raw, ok := fields[id]
	if !ok || len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}

func stringField(fields map[string]json.RawMessage, id string) string {
	s, _ := decodeField[string](fields, id)
	return s
}

func userField(fields map[string]json.RawMessage, id, fallback string) string {
	u, ok := decodeField[namedValueDTO](fields, id)
	if !ok || u.DisplayName == "" {
		return fallback
	}
	return u.DisplayName
}

func pointField(fields map[string]json.RawMessage, id string) float64 {
	v, ok := decodeField[float64](fields, id)
	if !ok || v < 0 {
		return 0
	}
	return v
}
