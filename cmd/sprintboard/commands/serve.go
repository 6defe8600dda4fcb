package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sprintboard/internal/api"
	"sprintboard/internal/jobs"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var openBrowser bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a := newApp(cfg)
		router := api.NewRouter(api.NewHandlers(a.service, a.orchestrator), verbose)
		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		if cfg.RefreshCron != "" {
			cr, err := jobs.NewCron(cfg.RefreshCron, cfg.Location, a.orchestrator)
			if err != nil {
				return err
			}
			cr.Start()
			defer cr.Stop()
			log.Info().Str("schedule", cfg.RefreshCron).Time("next", cr.Next()).Msg("Cache warm-up scheduled")
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		if openBrowser {
			url := "http://" + localAddr(cfg.HTTPAddr) + "/api/sprints"
			if err := browser.OpenURL(url); err != nil {
				log.Warn().Err(err).Str("url", url).Msg("Failed to open browser")
			}
		}

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// localAddr turns a listen address such as ":8080" into one a browser can open.
func localAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return strings.Replace(addr, "0.0.0.0", "localhost", 1)
}

func init() {
	serveCmd.Flags().BoolVar(&openBrowser, "open", false, "open the API in the default browser")
}
