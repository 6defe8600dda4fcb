package stats

import (
	"reflect"
	"testing"

	"sprintboard/internal/jira"
)

var testRoster = NewRoster([]string{"Roj Wilai", "Sarik Kumpan", "anucha pipit"})

func issue(id, dev, sprint string, mut func(*jira.Issue)) jira.Issue {
	i := jira.Issue{
		ID:        id,
		Key:       "LPS-" + id,
		Developer: dev,
		Assignee:  jira.Unassigned,
		Sprint:    sprint,
		Squad:     "RTL SQ1",
		Type:      TypeTechnicalStory,
		Labels:    []string{},
		Status:    "In Progress",
	}
	if mut != nil {
		mut(&i)
	}
	return i
}

func TestClassification_Exclusive(t *testing.T) {
	cases := []jira.Issue{
		issue("1", "x", "", func(i *jira.Issue) { i.Type = TypeDesign; i.StoryPoint = 3; i.FEStoryPoint = 2 }),
		issue("2", "x", "", func(i *jira.Issue) { i.Type = TypeIA; i.StoryPoint = 1; i.BEStoryPoint = 5 }),
		issue("3", "x", "", func(i *jira.Issue) { i.Labels = []string{LabelDevDesign}; i.StoryPoint = 2; i.FEStoryPoint = 1 }),
		issue("4", "x", "", func(i *jira.Issue) { i.StoryPoint = 8; i.FEStoryPoint = 2; i.BEStoryPoint = 3 }),
		issue("5", "x", "", nil),
	}
	for _, c := range cases {
		if DevPoints(c) != 0 && DesignPoints(c) != 0 {
			t.Errorf("issue %s contributes to both dev and design", c.ID)
		}
	}
	if DesignPoints(cases[0]) != 3 || DevPoints(cases[0]) != 0 {
		t.Error("design issue should count story points as design only")
	}
	if DevPoints(cases[3]) != 5 || DesignPoints(cases[3]) != 0 {
		t.Error("technical story should count FE+BE as dev only")
	}
}

func TestSprintSuffix(t *testing.T) {
	tests := map[string]string{
		"LPS Sprint 12":  "12",
		"LPS Sprint 112": "12",
		"7":              "7",
		"":               "",
		"สปรินต์ ๑๒":     "๑๒",
	}
	for in, want := range tests {
		if got := SprintSuffix(in); got != want {
			t.Errorf("SprintSuffix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGroupByDeveloper(t *testing.T) {
	issues := []jira.Issue{
		issue("1", "Sarik Kumpan", "LPS Sprint 12", func(i *jira.Issue) { i.FEStoryPoint = 2; i.BEStoryPoint = 1 }),
		issue("2", "Sarik Kumpan", "Other Board 12", func(i *jira.Issue) { i.FEStoryPoint = 1 }),
		issue("3", "Sarik Kumpan", "LPS Sprint 11", func(i *jira.Issue) { i.Type = TypeDesign; i.StoryPoint = 5; i.FEStoryPoint = 9 }),
		issue("4", "Roj Wilai", "LPS Sprint 12", func(i *jira.Issue) { i.Labels = []string{LabelDevDesign}; i.StoryPoint = 2 }),
		issue("5", "anucha pipit", "LPS Sprint 12", func(i *jira.Issue) { i.BEStoryPoint = 4 }),
		issue("6", "Stranger", "LPS Sprint 12", func(i *jira.Issue) { i.FEStoryPoint = 100; i.Assignee = "Roj Wilai" }),
	}

	got := GroupByDeveloper(issues, testRoster)
	want := []DeveloperMetrics{
		{Developer: "anucha pipit", Sprints: []SprintPoints{{Sprint: "12", Point: 4}}},
		{Developer: "Roj Wilai", Sprints: []SprintPoints{{Sprint: "12", Design: 2}}},
		{Developer: "Sarik Kumpan", Sprints: []SprintPoints{
			{Sprint: "11", Design: 5},
			{Sprint: "12", Point: 4},
		}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GroupByDeveloper\n got: %+v\nwant: %+v", got, want)
	}
}

func TestGroupByDeveloper_Empty(t *testing.T) {
	got := GroupByDeveloper(nil, testRoster)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", got)
	}
}

func TestGroupDesignByDeveloper(t *testing.T) {
	issues := []jira.Issue{
		issue("1", "Roj Wilai", "LPS Sprint 12", func(i *jira.Issue) { i.Type = TypeIA; i.StoryPoint = 3 }),
		issue("2", "Roj Wilai", "LPS Sprint 12", func(i *jira.Issue) { i.Type = TypeDesign; i.StoryPoint = 1 }),
		issue("3", "Roj Wilai", "LPS Sprint 13", func(i *jira.Issue) { i.StoryPoint = 8; i.FEStoryPoint = 8 }),
		issue("4", "Stranger", "LPS Sprint 12", func(i *jira.Issue) { i.Type = TypeDesign; i.StoryPoint = 5 }),
	}

	got := GroupDesignByDeveloper(issues, testRoster)
	want := []DeveloperDesign{{Developer: "Roj Wilai", Sprints: []SprintDesign{{Sprint: "12", Design: 4}}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestGroupBySprint_PercentComplete(t *testing.T) {
	done := func(i *jira.Issue) { i.Status = "DONE" }
	issues := []jira.Issue{
		issue("1", "Roj Wilai", "LPS Sprint 12", done),
		issue("2", "Roj Wilai", "LPS Sprint 12", func(i *jira.Issue) { i.Status = "DoD complete" }),
		issue("3", "Sarik Kumpan", "LPS Sprint 12", nil),
		issue("4", "Sarik Kumpan", "LPS Sprint 12", nil),
	}

	got := GroupBySprint(issues, testRoster, "")
	if len(got) != 1 {
		t.Fatalf("expected one bucket, got %+v", got)
	}
	if got[0].PercentComplete == nil || *got[0].PercentComplete != 50.0 {
		t.Errorf("expected 50%% complete, got %v", got[0].PercentComplete)
	}
	if len(got[0].Developers) != 2 || got[0].Developers[0].Done != 2 || got[0].Developers[1].Done != 0 {
		t.Errorf("unexpected developers %+v", got[0].Developers)
	}
}

func TestGroupBySprint_EffectiveNameAndTotals(t *testing.T) {
	issues := []jira.Issue{
		issue("1", jira.Unassigned, "LPS Sprint 12", func(i *jira.Issue) {
			i.Assignee = "Roj Wilai"
			i.StoryPoint = 3
			i.FEStoryPoint = 1
			i.BEStoryPoint = 1
		}),
		issue("2", "Roj Wilai", "LPS Sprint 12", func(i *jira.Issue) {
			i.Type = TypeDesign
			i.StoryPoint = 2
			i.Status = "Design Done"
		}),
		// Developer set but not on the roster: the assignee does not rescue it.
		issue("3", "Stranger", "LPS Sprint 12", func(i *jira.Issue) { i.Assignee = "Roj Wilai"; i.StoryPoint = 40 }),
		issue("4", "Roj Wilai", "LPS Sprint 13", nil),
		issue("5", "Roj Wilai", "LPS Sprint 12", func(i *jira.Issue) { i.Squad = "DBM SQ1" }),
	}

	got := GroupBySprint(issues, testRoster, "12")
	if len(got) != 2 {
		t.Fatalf("expected two buckets, got %+v", got)
	}
	if got[0].Squad != "DBM SQ1" || got[1].Squad != "RTL SQ1" {
		t.Errorf("buckets not ordered by squad: %s, %s", got[0].Squad, got[1].Squad)
	}

	want := DeveloperLoad{Name: "Roj Wilai", Story: 5, Point: 2, Design: 2, SumPoint: 4, Total: 2, Done: 1}
	if len(got[1].Developers) != 1 || got[1].Developers[0] != want {
		t.Errorf("got %+v, want %+v", got[1].Developers, want)
	}
}

func TestGroupBySprint_NoTickets(t *testing.T) {
	got := GroupBySprint(nil, testRoster, "")
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", got)
	}
	if percent(0, 0) != nil {
		t.Error("an empty bucket has no completion percentage")
	}
}

func TestShouldInvestigate(t *testing.T) {
	issues := []jira.Issue{
		issue("1", "Roj Wilai", "", func(i *jira.Issue) { i.StoryPoint = 3; i.FEStoryPoint = 1; i.BEStoryPoint = 1; i.Created = "2024-01-05T00:00:00.000+0000" }),
		issue("2", "Roj Wilai", "", func(i *jira.Issue) { i.StoryPoint = 1; i.FEStoryPoint = 2; i.BEStoryPoint = 2; i.Created = "2024-01-01T00:00:00.000+0000" }),
		issue("3", "Roj Wilai", "", func(i *jira.Issue) { i.StoryPoint = 2; i.Created = "2024-02-01T00:00:00.000+0000" }),
		issue("4", "Roj Wilai", "", func(i *jira.Issue) { i.Type = "Task"; i.StoryPoint = 1; i.FEStoryPoint = 5 }),
		issue("5", "Stranger", "", func(i *jira.Issue) { i.StoryPoint = 1; i.FEStoryPoint = 5 }),
		issue("6", "Sarik Kumpan", "", func(i *jira.Issue) { i.StoryPoint = 1; i.BEStoryPoint = 5; i.Created = "" }),
		issue("7", "Sarik Kumpan", "", nil),
	}

	got := ShouldInvestigate(issues, testRoster)
	ids := make([]string, len(got))
	for n, i := range got {
		ids[n] = i.ID
	}
	if want := []string{"3", "2", "6"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("flagged %v, want %v", ids, want)
	}
}

func TestDeveloperIssues_NoWhitelist(t *testing.T) {
	issues := []jira.Issue{
		issue("1", "Stranger", "LPS Sprint 12", nil),
		issue("2", jira.Unassigned, "LPS Sprint 12", func(i *jira.Issue) { i.Assignee = "Stranger" }),
		issue("3", "Stranger", "LPS Sprint 13", nil),
		issue("4", "Roj Wilai", "LPS Sprint 12", nil),
	}

	got := DeveloperIssues(issues, "12", "Stranger")
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "2" {
		t.Errorf("unexpected lookup result %+v", got)
	}
	if none := DeveloperIssues(issues, "99", "Stranger"); none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", none)
	}
}

func TestAggregations_Idempotent(t *testing.T) {
	issues := []jira.Issue{
		issue("1", "Roj Wilai", "LPS Sprint 12", func(i *jira.Issue) { i.FEStoryPoint = 2; i.Created = "2024-01-02" }),
		issue("2", "Sarik Kumpan", "LPS Sprint 11", func(i *jira.Issue) { i.Type = TypeDesign; i.StoryPoint = 2 }),
		issue("3", "Sarik Kumpan", "LPS Sprint 12", func(i *jira.Issue) { i.StoryPoint = 3; i.Created = "2024-01-03" }),
	}
	snapshot := make([]jira.Issue, len(issues))
	copy(snapshot, issues)

	if a, b := GroupByDeveloper(issues, testRoster), GroupByDeveloper(issues, testRoster); !reflect.DeepEqual(a, b) {
		t.Error("GroupByDeveloper not idempotent")
	}
	if a, b := GroupBySprint(issues, testRoster, ""), GroupBySprint(issues, testRoster, ""); !reflect.DeepEqual(a, b) {
		t.Error("GroupBySprint not idempotent")
	}
	if a, b := ShouldInvestigate(issues, testRoster), ShouldInvestigate(issues, testRoster); !reflect.DeepEqual(a, b) {
		t.Error("ShouldInvestigate not idempotent")
	}
	if !reflect.DeepEqual(issues, snapshot) {
		t.Error("aggregation mutated the input")
	}
}
