package stats

import (
	"slices"
	"strings"
	"time"

	"sprintboard/internal/jira"
)

// NeedsInvestigation flags a Technical Story whose story point estimate disagrees with its
// FE/BE split: smaller than the split, or non-zero with no split at all.
func NeedsInvestigation(i jira.Issue) bool {
	if i.Type != TypeTechnicalStory {
		return false
	}
	split := i.FEStoryPoint + i.BEStoryPoint
	return i.StoryPoint < split || (split == 0 && i.StoryPoint > 0)
}

// ShouldInvestigate returns roster developers' flagged issues, most recently created first.
// Issues with an unparseable creation date sort last.
func ShouldInvestigate(issues []jira.Issue, roster Roster) []jira.Issue {
	out := make([]jira.Issue, 0)
	for _, i := range issues {
		if roster.Contains(i.Developer) && NeedsInvestigation(i) {
			out = append(out, i)
		}
	}
	SortNewestFirst(out)
	return out
}

// DeveloperIssues is a raw lookup by developer or assignee within sprints whose label
// contains sprint. The roster is not applied.
func DeveloperIssues(issues []jira.Issue, sprint, name string) []jira.Issue {
	out := make([]jira.Issue, 0)
	for _, i := range issues {
		if (i.Developer == name || i.Assignee == name) && strings.Contains(i.Sprint, sprint) {
			out = append(out, i)
		}
	}
	return out
}

// SortNewestFirst orders issues by creation time descending, keeping input order for ties.
func SortNewestFirst(issues []jira.Issue) {
	created := make(map[string]time.Time, len(issues))
	at := func(i jira.Issue) time.Time {
		if t, ok := created[i.Created]; ok {
			return t
		}
		t, _ := jira.ParseTime(i.Created)
		created[i.Created] = t
		return t
	}
	slices.SortStableFunc(issues, func(a, b jira.Issue) int {
		return at(b).Compare(at(a))
	})
}
