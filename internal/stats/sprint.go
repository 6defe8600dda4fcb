package stats

import (
	"slices"
	"strings"

	"sprintboard/internal/jira"
)

// DeveloperLoad is one contributor's share of a squad sprint.
type DeveloperLoad struct {
	Name     string  `json:"name"`
	Story    float64 `json:"story"`
	Point    float64 `json:"point"`
	Design   float64 `json:"design"`
	SumPoint float64 `json:"sumPoint"`
	Total    int     `json:"total"`
	Done     int     `json:"done"`
}

// SquadSprintMetrics aggregates one (squad, sprint) bucket.
type SquadSprintMetrics struct {
	Squad  string `json:"squad"`
	Sprint string `json:"sprint"`
	// PercentComplete is nil when the bucket holds no tickets.
	PercentComplete *float64        `json:"percentComplete"`
	Developers      []DeveloperLoad `json:"developers"`
}

type squadSprintKey struct {
	squad  string
	sprint string
}

// GroupBySprint buckets eligible issues by squad and full sprint label, then by effective
// name. A non-empty sprintFilter keeps only sprint labels containing it.
func GroupBySprint(issues []jira.Issue, roster Roster, sprintFilter string) []SquadSprintMetrics {
	type bucket struct {
		devs  map[string]*DeveloperLoad
		names []string
	}
	buckets := make(map[squadSprintKey]*bucket)

	for _, i := range issues {
		name := EffectiveName(i)
		if !roster.Contains(name) || !strings.Contains(i.Sprint, sprintFilter) {
			continue
		}
		key := squadSprintKey{squad: i.Squad, sprint: i.Sprint}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{devs: make(map[string]*DeveloperLoad)}
			buckets[key] = b
		}
		d, ok := b.devs[name]
		if !ok {
			d = &DeveloperLoad{Name: name}
			b.devs[name] = d
			b.names = append(b.names, name)
		}

		d.Story += i.StoryPoint
		d.Point += DevPoints(i)
		d.Design += DesignPoints(i)
		d.SumPoint += DevPoints(i) + DesignPoints(i)
		d.Total++
		if IsDone(i) {
			d.Done++
		}
	}

	col := newCollator()
	out := make([]SquadSprintMetrics, 0, len(buckets))
	for key, b := range buckets {
		m := SquadSprintMetrics{
			Squad:      key.squad,
			Sprint:     key.sprint,
			Developers: make([]DeveloperLoad, 0, len(b.names)),
		}
		var done, total int
		for _, n := range b.names {
			d := *b.devs[n]
			done += d.Done
			total += d.Total
			m.Developers = append(m.Developers, d)
		}
		m.PercentComplete = percent(done, total)
		slices.SortFunc(m.Developers, func(a, b DeveloperLoad) int {
			return compareNames(col, a.Name, b.Name)
		})
		out = append(out, m)
	}

	slices.SortFunc(out, func(a, b SquadSprintMetrics) int {
		if c := compareNames(col, a.Squad, b.Squad); c != 0 {
			return c
		}
		return compareNames(col, a.Sprint, b.Sprint)
	})
	return out
}

func percent(done, total int) *float64 {
	if total == 0 {
		return nil
	}
	p := float64(done) / float64(total) * 100
	return &p
}
