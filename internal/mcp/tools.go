package mcp

import (
	"context"

	"sprintboard/internal/dashboard"
	"sprintboard/internal/ingest"
)

type noInput struct{}

type sprintInput struct {
	Sprint string `json:"sprint,omitempty" jsonschema:"Sprint number matched against sprint labels, e.g. 12. Omit for every sprint."`
}

type developerIssuesInput struct {
	Sprint string `json:"sprint" jsonschema:"Sprint number matched against sprint labels, e.g. 12"`
	Name   string `json:"name" jsonschema:"Developer or assignee display name, exact match"`
}

func (s *Server) registerTools() error {
	tools := []func() error{
		func() error {
			return addTool(s.srv, "developer_performance",
				"Dev (FE+BE) and design story points per roster developer, grouped by the last two characters of the sprint label.",
				func(ctx context.Context, _ noInput) (any, error) { return s.svc.ByDeveloper(ctx) })
		},
		func() error {
			return addTool(s.srv, "design_performance",
				"Design and IA story points per roster developer and sprint. Only design-classified issues are counted.",
				func(ctx context.Context, _ noInput) (any, error) { return s.svc.DesignByDeveloper(ctx) })
		},
		func() error {
			return addTool(s.srv, "sprint_overview",
				"Per squad and sprint: each contributor's story, dev, design and total points, ticket and done counts, and the bucket's percent complete (null when empty).",
				func(ctx context.Context, in sprintInput) (any, error) { return s.svc.BySprint(ctx, in.Sprint) })
		},
		func() error {
			return addTool(s.srv, "developer_issues",
				"Every issue of a sprint where the given name is the developer or the assignee. The roster is not applied.",
				func(ctx context.Context, in developerIssuesInput) (any, error) {
					return s.svc.DeveloperIssues(ctx, in.Sprint, in.Name)
				})
		},
		func() error {
			return addTool(s.srv, "investigate_estimates",
				"Technical Stories whose story points are lower than their FE+BE split, or non-zero without any split. Newest first.",
				func(ctx context.Context, _ noInput) (any, error) { return s.svc.ShouldInvestigate(ctx) })
		},
		func() error {
			return addTool(s.srv, "cache_status",
				"State of each cached month of the current year. Does not contact Jira.",
				func(ctx context.Context, _ noInput) (any, error) {
					status := s.cache.Status()
					if status == nil {
						status = []ingest.PartitionStatus{}
					}
					return dashboard.Response[[]ingest.PartitionStatus]{Data: status}, nil
				})
		},
	}

	for _, register := range tools {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}
