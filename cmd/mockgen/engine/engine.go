package engine

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"sprintboard/internal/cache"
	"sprintboard/internal/config"
	"sprintboard/internal/jira"
)

type GeneratorConfig struct {
	Scenario     string // mild, chaos or drift
	Distribution string // "uniform" or "weibull"
	Count        int    // issues per month
	Developers   int
	Now          time.Time
	Seed         uint64
}

var (
	squads    = []string{"DBM SQ1", "RTL SQ1", "RTL SQ2", "MGL SQ1", "CPL SQ1", "CPL SQ2"}
	fibonacci = []float64{1, 2, 3, 5, 8, 13}
	openState = []string{"To Do", "In Progress", "In Review"}
)

// Dataset is a generated year of issues, partitioned by month of last update.
type Dataset struct {
	Partitions map[cache.Partition][]jira.Issue
	Roster     []string
}

// Generate builds issues for every month from January through the month of cfg.Now.
// Sprints are two weeks long; the drift scenario starts numbering at 95 so labels cross 99.
func Generate(cfg GeneratorConfig) Dataset {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cfg.Developers <= 0 {
		cfg.Developers = 8
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5eed))

	roster := make([]string, cfg.Developers)
	for i := range roster {
		roster[i] = fmt.Sprintf("Developer %02d", i+1)
	}

	firstSprint := 1
	if cfg.Scenario == "drift" {
		firstSprint = 95
	}

	yearStart := time.Date(cfg.Now.Year(), time.January, 1, 0, 0, 0, 0, cfg.Now.Location())
	current := cache.PartitionOf(cfg.Now)
	ds := Dataset{Partitions: make(map[cache.Partition][]jira.Issue), Roster: roster}

	n := 0
	for p := cache.PartitionOf(yearStart); p.Compare(current) <= 0; p = p.Next() {
		first, last := p.Days(cfg.Now.Location())
		if last.After(cfg.Now) {
			last = cfg.Now
		}
		span := last.Sub(first)

		issues := make([]jira.Issue, 0, cfg.Count)
		for i := 0; i < cfg.Count; i++ {
			n++
			updated := first.Add(time.Duration(rng.Float64() * float64(span)))
			created := updated.AddDate(0, 0, -rng.IntN(20))
			sprint := firstSprint + int(updated.Sub(yearStart).Hours()/(24*14))
			issues = append(issues, generateIssue(cfg, rng, n, roster, sprint, created, updated))
		}
		ds.Partitions[p] = issues
	}
	return ds
}

func generateIssue(cfg GeneratorConfig, rng *rand.Rand, n int, roster []string, sprint int, created, updated time.Time) jira.Issue {
	issue := jira.Issue{
		ID:        fmt.Sprintf("%d", 100000+n),
		Key:       fmt.Sprintf("LPS-%d", n),
		Summary:   fmt.Sprintf("Generated work item %d", n),
		Developer: roster[rng.IntN(len(roster))],
		Assignee:  jira.Unassigned,
		Sprint:    fmt.Sprintf("LPS Sprint %d", sprint),
		Squad:     squads[rng.IntN(len(squads))],
		Type:      "Technical Story",
		Labels:    []string{},
		Created:   created.Format("2006-01-02T15:04:05.000-0700"),
		Updated:   updated.Format("2006-01-02T15:04:05.000-0700"),
	}

	switch r := rng.Float64(); {
	case r < 0.10:
		issue.Type = "Design"
	case r < 0.15:
		issue.Type = "IA"
	case r < 0.20:
		issue.Labels = []string{jira.DevDesignFlag}
	case r < 0.30:
		issue.Type = "Task"
	}

	points := samplePoints(cfg, rng)
	issue.StoryPoint = points
	if issue.Type != "Design" && issue.Type != "IA" {
		fe := math.Round(points * rng.Float64())
		issue.FEStoryPoint = fe
		issue.BEStoryPoint = points - fe
	}

	if cfg.Scenario == "chaos" {
		switch r := rng.Float64(); {
		case r < 0.15:
			// estimate below the FE/BE split
			issue.FEStoryPoint += 1 + float64(rng.IntN(5))
		case r < 0.25:
			issue.FEStoryPoint, issue.BEStoryPoint = 0, 0
		case r < 0.35:
			issue.Assignee = issue.Developer
			issue.Developer = jira.Unassigned
		case r < 0.40:
			issue.Developer = "External Contractor"
		}
	}

	if rng.Float64() < 0.6 {
		issue.Status = doneStatus(issue.Type)
	} else {
		issue.Status = openState[rng.IntN(len(openState))]
	}
	return issue
}

func doneStatus(issueType string) string {
	switch issueType {
	case "Design":
		return "Design Done"
	case "IA":
		return "IA Done"
	}
	return "DONE"
}

func samplePoints(cfg GeneratorConfig, rng *rand.Rand) float64 {
	if cfg.Distribution == "weibull" {
		k, lambda := 1.5, 4.0
		if cfg.Scenario == "chaos" {
			k = 0.8
		}
		return math.Max(1, math.Round(weibullSample(rng, k, lambda)))
	}
	return fibonacci[rng.IntN(len(fibonacci))]
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}

// Save writes every partition into the store, stamped with fetchedAt, and a settings file
// whose roster matches the generated developers.
func Save(store *cache.Store, settingsPath string, ds Dataset, fetchedAt time.Time) error {
	for p, issues := range ds.Partitions {
		snap := cache.Snapshot{Data: issues, Timestamp: fetchedAt.UnixMilli()}
		if err := store.Write(store.Path(p), snap); err != nil {
			return fmt.Errorf("failed to write %s: %w", p, err)
		}
	}
	if settingsPath == "" {
		return nil
	}
	settings := config.DefaultSettings()
	settings.Roster = ds.Roster
	return settings.Write(settingsPath)
}
