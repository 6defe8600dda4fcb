package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"sprintboard/internal/jira"
)

type countingLoader struct {
	calls int
	err   error
}

func (l *countingLoader) Load(ctx context.Context) ([]jira.Issue, error) {
	l.calls++
	return []jira.Issue{{ID: "1"}}, l.err
}

func TestNewCron_InvalidSpec(t *testing.T) {
	if _, err := NewCron("every now and then", time.UTC, &countingLoader{}); err == nil {
		t.Error("expected an invalid schedule to be rejected")
	}
}

func TestNewCron_Next(t *testing.T) {
	cr, err := NewCron("*/30 * * * *", time.UTC, &countingLoader{})
	if err != nil {
		t.Fatal(err)
	}
	next := cr.Next()
	if next.IsZero() || next.Minute()%30 != 0 {
		t.Errorf("unexpected next run %v", next)
	}
}

func TestRunOnce(t *testing.T) {
	l := &countingLoader{}
	cr, err := NewCron("@hourly", time.UTC, l)
	if err != nil {
		t.Fatal(err)
	}
	if err := cr.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if l.calls != 1 {
		t.Errorf("expected one load, got %d", l.calls)
	}

	l.err = errors.New("jira down")
	if err := cr.RunOnce(context.Background()); err == nil {
		t.Error("expected the load error to surface")
	}
}

func TestStartStop(t *testing.T) {
	cr, err := NewCron("@every 1h", time.UTC, &countingLoader{})
	if err != nil {
		t.Fatal(err)
	}
	cr.Start()
	cr.Stop()
}
