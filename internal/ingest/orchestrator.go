package ingest

import (
	"context"
	"fmt"
	"time"

	"sprintboard/internal/cache"
	"sprintboard/internal/jira"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultFreshness = 3 * time.Hour
	DefaultRetain    = 13
)

// RangeFetcher returns every raw issue updated within a date range.
type RangeFetcher interface {
	FetchRange(ctx context.Context, start, end time.Time) ([]jira.RawIssue, error)
	Fields() jira.FieldMap
}

// Options tune an Orchestrator. Zero values fall back to the defaults.
type Options struct {
	Freshness   time.Duration
	Retain      int
	Concurrency int
	Location    *time.Location
	Now         func() time.Time
}

// Orchestrator resolves every month of the current year against the cache and Jira,
// and returns the unified issue set.
type Orchestrator struct {
	fetcher RangeFetcher
	store   *cache.Store
	opts    Options
	group   singleflight.Group
}

func NewOrchestrator(fetcher RangeFetcher, store *cache.Store, opts Options) *Orchestrator {
	if opts.Freshness <= 0 {
		opts.Freshness = DefaultFreshness
	}
	if opts.Retain <= 0 {
		opts.Retain = DefaultRetain
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{fetcher: fetcher, store: store, opts: opts}
}

// PartitionStatus describes how a partition would be resolved right now.
type PartitionStatus struct {
	Partition cache.Partition `json:"-"`
	Month     string          `json:"month"`
	State     string          `json:"state"`
	Issues    int             `json:"issues"`
	FetchedAt *time.Time      `json:"fetchedAt,omitempty"`
}

// Status inspects the cache for every month of the current year without fetching anything.
func (o *Orchestrator) Status() []PartitionStatus {
	now := o.opts.Now().In(o.opts.Location)
	current := cache.PartitionOf(now)

	var out []PartitionStatus
	for _, p := range o.partitions(now) {
		snap, _ := o.store.Read(o.store.Path(p))
		st := PartitionStatus{
			Partition: p,
			Month:     p.String(),
			State:     Evaluate(p, current, snap, now, o.opts.Freshness).String(),
		}
		if snap != nil {
			at := snap.FetchedAt()
			st.FetchedAt = &at
			st.Issues = len(snap.Data)
		}
		out = append(out, st)
	}
	return out
}

// Load runs one ingestion pass. Concurrent callers share the same pass and the same result,
// which must be treated as read-only. Any fetch failure aborts the pass and no issues are returned.
//
// The shared pass is detached from the caller's cancellation: a caller whose ctx is done stops
// waiting, while the pass runs to completion for everyone else that joined it.
func (o *Orchestrator) Load(ctx context.Context) ([]jira.Issue, error) {
	ch := o.group.DoChan("load", func() (any, error) {
		return o.load(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.Debug().Msg("Joined an in-flight ingestion pass")
		}
		return res.Val.([]jira.Issue), nil
	}
}

func (o *Orchestrator) load(ctx context.Context) ([]jira.Issue, error) {
	started := time.Now()
	now := o.opts.Now().In(o.opts.Location)
	current := cache.PartitionOf(now)
	parts := o.partitions(now)

	results := make([][]jira.Issue, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)
	for i, p := range parts {
		g.Go(func() error {
			issues, err := o.resolve(gctx, p, current, now)
			if err != nil {
				return err
			}
			results[i] = issues
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Ingestion aborted")
		return nil, err
	}

	// Never below the months just loaded, otherwise the next pass refetches them.
	o.store.Cleanup(max(o.opts.Retain, len(parts)))

	unified := Merge(results)
	log.Info().
		Int("partitions", len(parts)).
		Int("issues", len(unified)).
		Dur("elapsed", time.Since(started)).
		Msg("Ingestion complete")
	return unified, nil
}

func (o *Orchestrator) resolve(ctx context.Context, p, current cache.Partition, now time.Time) ([]jira.Issue, error) {
	path := o.store.Path(p)
	snap, _ := o.store.Read(path)

	state := Evaluate(p, current, snap, now, o.opts.Freshness)
	log.Debug().Str("month", p.String()).Str("state", state.String()).Msg("Partition resolved")
	if !state.NeedsFetch() {
		return snap.Data, nil
	}

	first, last := p.Days(o.opts.Location)
	raws, err := o.fetcher.FetchRange(ctx, first, last)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", p, err)
	}

	fields := o.fetcher.Fields()
	issues := make([]jira.Issue, 0, len(raws))
	for _, raw := range raws {
		issues = append(issues, jira.MapIssue(raw, fields))
	}

	snapshot := cache.Snapshot{Data: issues, Timestamp: o.opts.Now().UnixMilli()}
	if err := o.store.Write(path, snapshot); err != nil {
		log.Warn().Err(err).Str("month", p.String()).Msg("Failed to persist partition, serving fetched data")
	}
	return issues, nil
}

// partitions lists January through the month containing now.
func (o *Orchestrator) partitions(now time.Time) []cache.Partition {
	current := cache.PartitionOf(now)
	var parts []cache.Partition
	for p := (cache.Partition{Year: now.Year(), Month: time.January}); p.Compare(current) <= 0; p = p.Next() {
		parts = append(parts, p)
	}
	return parts
}

// Merge concatenates partition results given oldest first. An issue present in several
// partitions is kept once, from the newest partition that holds it. Issues with neither an ID
// nor a key cannot be matched and are all kept.
func Merge(parts [][]jira.Issue) []jira.Issue {
	seen := make(map[string]bool)
	kept := make([][]jira.Issue, len(parts))
	total := 0
	for i := len(parts) - 1; i >= 0; i-- {
		for _, issue := range parts[i] {
			id := issue.ID
			if id == "" {
				id = issue.Key
			}
			if id != "" {
				if seen[id] {
					continue
				}
				seen[id] = true
			}
			kept[i] = append(kept[i], issue)
			total++
		}
	}

	out := make([]jira.Issue, 0, total)
	for _, k := range kept {
		out = append(out, k...)
	}
	return out
}
