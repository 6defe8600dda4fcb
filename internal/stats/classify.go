package stats

import (
	"slices"

	"sprintboard/internal/jira"
)

// Issue types and labels that mark design or information-architecture work.
const (
	TypeDesign         = "Design"
	TypeIA             = "IA"
	TypeTechnicalStory = "Technical Story"
	LabelDevDesign     = jira.DevDesignFlag
	sprintSuffixLength = 2
)

// CompletedStatuses are the statuses counted as done in the squad view.
var CompletedStatuses = []string{"DONE", "DoD complete", "Design Done", "IA Done"}

// Roster is the whitelist of developer display names eligible for performance aggregates.
type Roster struct {
	names map[string]struct{}
}

func NewRoster(names []string) Roster {
	r := Roster{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if n != "" {
			r.names[n] = struct{}{}
		}
	}
	return r
}

// Contains reports an exact, case-sensitive match.
func (r Roster) Contains(name string) bool {
	_, ok := r.names[name]
	return ok
}

func (r Roster) Len() int {
	return len(r.names)
}

// IsDesign reports whether the issue counts as design point mass rather than dev point mass.
func IsDesign(i jira.Issue) bool {
	return i.Type == TypeDesign || i.Type == TypeIA || i.HasLabel(LabelDevDesign)
}

// DevPoints is the FE+BE estimate of a non-design issue, zero for design issues.
func DevPoints(i jira.Issue) float64 {
	if IsDesign(i) {
		return 0
	}
	return i.FEStoryPoint + i.BEStoryPoint
}

// DesignPoints is the story point estimate of a design issue, zero otherwise.
func DesignPoints(i jira.Issue) float64 {
	if IsDesign(i) {
		return i.StoryPoint
	}
	return 0
}

func IsDone(i jira.Issue) bool {
	return slices.Contains(CompletedStatuses, i.Status)
}

// EffectiveName is the developer, or the assignee when no developer is set.
func EffectiveName(i jira.Issue) string {
	if i.Developer == jira.Unassigned {
		return i.Assignee
	}
	return i.Developer
}

// SprintSuffix returns the last two characters of a sprint label. Sprint numbers above 99
// collide with their last two digits (sprint 101 groups with sprint 01).
func SprintSuffix(sprint string) string {
	r := []rune(sprint)
	if len(r) <= sprintSuffixLength {
		return sprint
	}
	return string(r[len(r)-sprintSuffixLength:])
}
