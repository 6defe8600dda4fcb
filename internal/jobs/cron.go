package jobs

import (
	"context"
	"fmt"
	"time"

	"sprintboard/internal/jira"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const warmTimeout = 10 * time.Minute

type loader interface {
	Load(ctx context.Context) ([]jira.Issue, error)
}

// Cron runs an ingestion pass on a schedule so that dashboard requests find a warm cache.
type Cron struct {
	loader loader
	c      *cron.Cron
}

// NewCron schedules the warm-up. A standard five-field spec is expected.
func NewCron(spec string, loc *time.Location, l loader) (*Cron, error) {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{log.Logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		cron.WithLogger(logger),
	)
	cr := &Cron{loader: l, c: c}
	if _, err := c.AddFunc(spec, cr.warm); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return cr, nil
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop halts scheduling and waits for a running warm-up to finish.
func (cr *Cron) Stop() {
	<-cr.c.Stop().Done()
}

// Next returns the next scheduled run.
func (cr *Cron) Next() time.Time {
	entries := cr.c.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now())
}

func (cr *Cron) warm() {
	ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
	defer cancel()
	if err := cr.RunOnce(ctx); err != nil {
		log.Error().Err(err).Msg("cron: cache warm-up failed")
	}
}

// RunOnce performs one warm-up pass.
func (cr *Cron) RunOnce(ctx context.Context) error {
	start := time.Now()
	issues, err := cr.loader.Load(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("issues", len(issues)).Dur("elapsed", time.Since(start)).Msg("cron: cache warmed")
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
