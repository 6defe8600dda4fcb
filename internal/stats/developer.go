package stats

import (
	"slices"

	"sprintboard/internal/jira"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SprintPoints is the dev and design point mass of one developer in one sprint suffix.
type SprintPoints struct {
	Sprint string  `json:"sprint"`
	Point  float64 `json:"point"`
	Design float64 `json:"design"`
}

// DeveloperMetrics groups a developer's points by sprint suffix.
type DeveloperMetrics struct {
	Developer string         `json:"developer"`
	Sprints   []SprintPoints `json:"sprints"`
}

// SprintDesign is the design point mass of one developer in one sprint suffix.
type SprintDesign struct {
	Sprint string  `json:"sprint"`
	Design float64 `json:"design"`
}

type DeveloperDesign struct {
	Developer string         `json:"developer"`
	Sprints   []SprintDesign `json:"sprints"`
}

type developerSprintKey struct {
	developer string
	suffix    string
}

// newCollator returns a collator for display-name ordering. Collators are not safe for
// concurrent use, so each call builds its own.
func newCollator() *collate.Collator {
	return collate.New(language.English)
}

// GroupByDeveloper buckets roster developers' issues by sprint suffix. Developers and
// sprints are both sorted alphabetically.
func GroupByDeveloper(issues []jira.Issue, roster Roster) []DeveloperMetrics {
	buckets := make(map[developerSprintKey]*SprintPoints)
	order := make(map[string][]developerSprintKey)

	for _, i := range issues {
		if !roster.Contains(i.Developer) {
			continue
		}
		key := developerSprintKey{developer: i.Developer, suffix: SprintSuffix(i.Sprint)}
		b, ok := buckets[key]
		if !ok {
			b = &SprintPoints{Sprint: key.suffix}
			buckets[key] = b
			order[key.developer] = append(order[key.developer], key)
		}
		b.Point += DevPoints(i)
		b.Design += DesignPoints(i)
	}

	col := newCollator()
	out := make([]DeveloperMetrics, 0, len(order))
	for dev, keys := range order {
		m := DeveloperMetrics{Developer: dev, Sprints: make([]SprintPoints, 0, len(keys))}
		for _, k := range keys {
			m.Sprints = append(m.Sprints, *buckets[k])
		}
		slices.SortFunc(m.Sprints, func(a, b SprintPoints) int {
			return compareNames(col, a.Sprint, b.Sprint)
		})
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b DeveloperMetrics) int {
		return compareNames(col, a.Developer, b.Developer)
	})
	return out
}

// GroupDesignByDeveloper is the design-only counterpart of GroupByDeveloper: only
// design-classified issues are counted.
func GroupDesignByDeveloper(issues []jira.Issue, roster Roster) []DeveloperDesign {
	buckets := make(map[developerSprintKey]*SprintDesign)
	order := make(map[string][]developerSprintKey)

	for _, i := range issues {
		if !roster.Contains(i.Developer) || !IsDesign(i) {
			continue
		}
		key := developerSprintKey{developer: i.Developer, suffix: SprintSuffix(i.Sprint)}
		b, ok := buckets[key]
		if !ok {
			b = &SprintDesign{Sprint: key.suffix}
			buckets[key] = b
			order[key.developer] = append(order[key.developer], key)
		}
		b.Design += i.StoryPoint
	}

	col := newCollator()
	out := make([]DeveloperDesign, 0, len(order))
	for dev, keys := range order {
		d := DeveloperDesign{Developer: dev, Sprints: make([]SprintDesign, 0, len(keys))}
		for _, k := range keys {
			d.Sprints = append(d.Sprints, *buckets[k])
		}
		slices.SortFunc(d.Sprints, func(a, b SprintDesign) int {
			return compareNames(col, a.Sprint, b.Sprint)
		})
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b DeveloperDesign) int {
		return compareNames(col, a.Developer, b.Developer)
	})
	return out
}

// compareNames orders by collation and falls back to byte order so that names the collator
// treats as equal still sort deterministically.
func compareNames(col *collate.Collator, a, b string) int {
	if c := col.CompareString(a, b); c != 0 {
		return c
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
