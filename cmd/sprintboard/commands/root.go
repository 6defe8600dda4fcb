package commands

import (
	"sprintboard/internal/cache"
	"sprintboard/internal/config"
	"sprintboard/internal/dashboard"
	"sprintboard/internal/ingest"
	"sprintboard/internal/jira"
	"sprintboard/internal/logging"
	"sprintboard/internal/stats"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "sprintboard",
	Short: "Sprint performance dashboard backed by Jira",
	Long: `sprintboard pulls issues from Jira, caches them per month on disk and serves
per-developer, per-sprint and per-squad story point aggregates over HTTP, MCP or the terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(logging.Options{Verbose: verbose}); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("command", cmd.Name()).
			Msg("sprintboard starting")
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(serveCmd, mcpCmd, ingestCmd, reportCmd)
}

// app is the object graph shared by every subcommand.
type app struct {
	store        *cache.Store
	orchestrator *ingest.Orchestrator
	service      *dashboard.Service
}

func newApp(c *config.AppConfig) *app {
	client := jira.NewClient(c.Jira)
	fetcher := jira.NewFetcher(client, c.Settings.Filter(), c.Settings.Fields, c.Jira.PageSize)
	store := cache.NewStore(c.CacheDir)
	orch := ingest.NewOrchestrator(fetcher, store, ingest.Options{
		Freshness:   c.Freshness,
		Retain:      c.Retain,
		Concurrency: c.Concurrency,
		Location:    c.Location,
	})
	return &app{
		store:        store,
		orchestrator: orch,
		service:      dashboard.NewService(orch, stats.NewRoster(c.Settings.Roster)),
	}
}
