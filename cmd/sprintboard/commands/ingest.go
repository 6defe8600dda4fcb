package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion pass and report the cache state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg)
		issues, err := a.orchestrator.Load(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, s := range a.orchestrator.Status() {
			fmt.Fprintf(out, "%s  %-26s %5d issues\n", s.Month, s.State, s.Issues)
		}
		fmt.Fprintf(out, "unified: %d issues\n", len(issues))
		return nil
	},
}
