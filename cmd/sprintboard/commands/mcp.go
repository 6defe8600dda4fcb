package commands

import (
	"os/signal"
	"syscall"

	"sprintboard/internal/mcp"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a := newApp(cfg)
		server, err := mcp.NewServer(a.service, a.orchestrator)
		if err != nil {
			return err
		}
		return server.Serve(ctx)
	},
}
