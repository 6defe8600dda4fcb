package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"sprintboard/internal/dashboard"
	"sprintboard/internal/ingest"

	"github.com/spf13/cobra"
)

var reportSprint string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a dashboard view as JSON",
}

func reportView(use, short string, run func(cmd *cobra.Command, args []string) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := run(cmd, args)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), v)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func init() {
	sprints := reportView("sprints", "Squad and sprint overview", func(cmd *cobra.Command, _ []string) (any, error) {
		return newApp(cfg).service.BySprint(cmd.Context(), reportSprint)
	})
	sprints.Flags().StringVar(&reportSprint, "sprint", "", "only sprints whose label contains this number")

	issues := reportView("issues <sprint> <name>", "Issues of a developer or assignee in a sprint", func(cmd *cobra.Command, args []string) (any, error) {
		return newApp(cfg).service.DeveloperIssues(cmd.Context(), args[0], args[1])
	})
	issues.Args = cobra.ExactArgs(2)

	reportCmd.AddCommand(
		reportView("developers", "Dev and design points per developer and sprint", func(cmd *cobra.Command, _ []string) (any, error) {
			return newApp(cfg).service.ByDeveloper(cmd.Context())
		}),
		reportView("design", "Design points per developer and sprint", func(cmd *cobra.Command, _ []string) (any, error) {
			return newApp(cfg).service.DesignByDeveloper(cmd.Context())
		}),
		reportView("investigate", "Technical Stories with inconsistent estimates", func(cmd *cobra.Command, _ []string) (any, error) {
			return newApp(cfg).service.ShouldInvestigate(cmd.Context())
		}),
		reportView("cache", "State of each cached month, without contacting Jira", func(cmd *cobra.Command, _ []string) (any, error) {
			return dashboard.Response[[]ingest.PartitionStatus]{Data: newApp(cfg).orchestrator.Status()}, nil
		}),
		sprints,
		issues,
	)
}
