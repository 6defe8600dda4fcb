package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"sprintboard/internal/cache"
	"sprintboard/internal/jira"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   []time.Month
	byMonth map[time.Month][]jira.RawIssue
	failOn  time.Month

	// When gate is set every fetch announces itself on started and blocks until gate is closed.
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeFetcher) FetchRange(ctx context.Context, start, end time.Time) ([]jira.RawIssue, error) {
	if f.gate != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, start.Month())
	if start.Month() == f.failOn {
		return nil, &jira.RemoteError{StatusCode: 503, Err: errors.New("unavailable")}
	}
	if end.Month() != start.Month() || start.Day() != 1 {
		return nil, fmt.Errorf("range %v..%v does not cover one month", start, end)
	}
	return f.byMonth[start.Month()], nil
}

func (f *fakeFetcher) Fields() jira.FieldMap {
	return jira.DefaultFieldMap()
}

func (f *fakeFetcher) fetched() []time.Month {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Month(nil), f.calls...)
}

func rawIssue(id, summary string) jira.RawIssue {
	s, _ := json.Marshal(summary)
	return jira.RawIssue{ID: id, Key: "LPS-" + id, Fields: map[string]json.RawMessage{"summary": s}}
}

var march15 = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestOrchestrator(t *testing.T, f *fakeFetcher, opts Options) (*Orchestrator, *cache.Store) {
	t.Helper()
	store := cache.NewStore(t.TempDir())
	if opts.Now == nil {
		opts.Now = func() time.Time { return march15 }
	}
	opts.Location = time.UTC
	return NewOrchestrator(f, store, opts), store
}

func seed(t *testing.T, store *cache.Store, month time.Month, fetchedAt time.Time, issues ...jira.Issue) {
	t.Helper()
	p := cache.Partition{Year: 2024, Month: month}
	if err := store.Write(store.Path(p), cache.Snapshot{Data: issues, Timestamp: fetchedAt.UnixMilli()}); err != nil {
		t.Fatal(err)
	}
}

func TestEvaluate(t *testing.T) {
	current := cache.PartitionOf(march15)
	past := cache.Partition{Year: 2024, Month: time.January}
	snapAt := func(d time.Duration) *cache.Snapshot {
		return &cache.Snapshot{Timestamp: march15.Add(-d).UnixMilli()}
	}

	tests := []struct {
		name string
		p    cache.Partition
		snap *cache.Snapshot
		want State
	}{
		{"missing current", current, nil, CacheMissing},
		{"missing past", past, nil, CacheMissing},
		{"current within window", current, snapAt(time.Hour), CacheFresh},
		{"current past window", current, snapAt(9 * time.Hour), CacheStaleCurrentMonth},
		{"past never stale", past, snapAt(400 * 24 * time.Hour), CacheFresh},
	}

	for _, tt := range tests {
		if got := Evaluate(tt.p, current, tt.snap, march15, 8*time.Hour); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestLoad_ColdCacheFetchesEveryMonth(t *testing.T) {
	f := &fakeFetcher{byMonth: map[time.Month][]jira.RawIssue{
		time.January: {rawIssue("1", "jan")},
		time.March:   {rawIssue("3", "mar")},
	}}
	o, store := newTestOrchestrator(t, f, Options{})

	issues, err := o.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := f.fetched(); !reflect.DeepEqual(got, []time.Month{time.January, time.February, time.March}) {
		t.Errorf("fetched months %v", got)
	}
	if len(issues) != 2 || issues[0].Summary != "jan" || issues[1].Summary != "mar" {
		t.Errorf("unexpected issues %+v", issues)
	}

	parts, _ := store.List()
	if len(parts) != 3 {
		t.Errorf("expected 3 partitions written, got %v", parts)
	}
	snap, ok := store.Read(store.Path(cache.Partition{Year: 2024, Month: time.February}))
	if !ok || len(snap.Data) != 0 || snap.Timestamp != march15.UnixMilli() {
		t.Errorf("empty month not cached correctly: %+v", snap)
	}
}

func TestLoad_StaleCurrentMonthRefetched(t *testing.T) {
	f := &fakeFetcher{byMonth: map[time.Month][]jira.RawIssue{
		time.March: {rawIssue("3", "mar fresh")},
	}}
	o, store := newTestOrchestrator(t, f, Options{Freshness: 8 * time.Hour})

	longAgo := march15.AddDate(-1, 0, 0)
	seed(t, store, time.January, longAgo, jira.Issue{ID: "1", Summary: "jan cached"})
	seed(t, store, time.February, longAgo)
	seed(t, store, time.March, march15.Add(-9*time.Hour), jira.Issue{ID: "3", Summary: "mar cached"})

	issues, err := o.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := f.fetched(); !reflect.DeepEqual(got, []time.Month{time.March}) {
		t.Errorf("expected only March to be fetched, got %v", got)
	}
	if len(issues) != 2 || issues[0].Summary != "jan cached" || issues[1].Summary != "mar fresh" {
		t.Errorf("unexpected issues %+v", issues)
	}
}

func TestLoad_FreshCurrentMonthServedFromCache(t *testing.T) {
	f := &fakeFetcher{}
	o, store := newTestOrchestrator(t, f, Options{Freshness: 8 * time.Hour})

	for _, m := range []time.Month{time.January, time.February} {
		seed(t, store, m, march15.AddDate(0, -1, 0))
	}
	seed(t, store, time.March, march15.Add(-time.Hour), jira.Issue{ID: "9"})

	issues, err := o.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if calls := f.fetched(); len(calls) != 0 {
		t.Errorf("expected no fetches, got %v", calls)
	}
	if len(issues) != 1 {
		t.Errorf("expected cached issue, got %+v", issues)
	}
}

func TestLoad_FetchFailureAborts(t *testing.T) {
	f := &fakeFetcher{
		byMonth: map[time.Month][]jira.RawIssue{time.January: {rawIssue("1", "jan")}},
		failOn:  time.February,
	}
	o, _ := newTestOrchestrator(t, f, Options{})

	issues, err := o.Load(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if issues != nil {
		t.Errorf("expected no partial result, got %+v", issues)
	}
	var remote *jira.RemoteError
	if !errors.As(err, &remote) || remote.StatusCode != 503 {
		t.Errorf("expected RemoteError to surface, got %v", err)
	}
}

func TestLoad_CorruptPartitionRefetched(t *testing.T) {
	f := &fakeFetcher{byMonth: map[time.Month][]jira.RawIssue{time.January: {rawIssue("1", "jan")}}}
	o, store := newTestOrchestrator(t, f, Options{Now: func() time.Time {
		return time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC)
	}})

	path := store.Path(cache.Partition{Year: 2024, Month: time.January})
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}

	issues, err := o.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(f.fetched()) != 1 || len(issues) != 1 {
		t.Errorf("corrupt partition should be treated as missing: calls=%v issues=%+v", f.fetched(), issues)
	}
}

func TestLoad_CleanupKeepsLoadedMonths(t *testing.T) {
	f := &fakeFetcher{}
	o, store := newTestOrchestrator(t, f, Options{Retain: 2})

	old := cache.Partition{Year: 2023, Month: time.June}
	if err := store.Write(store.Path(old), cache.Snapshot{Timestamp: 1}); err != nil {
		t.Fatal(err)
	}

	if _, err := o.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	parts, _ := store.List()
	want := []cache.Partition{{Year: 2024, Month: time.March}, {Year: 2024, Month: time.February}, {Year: 2024, Month: time.January}}
	if !reflect.DeepEqual(parts, want) {
		t.Errorf("after cleanup got %v, want %v", parts, want)
	}

	// A second pass finds every month of the year cached and fetches nothing new.
	before := len(f.fetched())
	if _, err := o.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := f.fetched()[before:]; len(got) != 0 {
		t.Errorf("second pass refetched %v", got)
	}
}

func TestLoad_ConcurrencyDoesNotChangeResult(t *testing.T) {
	months := map[time.Month][]jira.RawIssue{
		time.January:  {rawIssue("1", "a"), rawIssue("2", "b")},
		time.February: {rawIssue("3", "c")},
		time.March:    {rawIssue("4", "d")},
	}

	seq, _ := newTestOrchestrator(t, &fakeFetcher{byMonth: months}, Options{Concurrency: 1})
	par, _ := newTestOrchestrator(t, &fakeFetcher{byMonth: months}, Options{Concurrency: 3})

	a, err := seq.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b, err := par.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("parallel result differs\nseq: %+v\npar: %+v", a, b)
	}
}

func TestMerge_NewestPartitionWins(t *testing.T) {
	jan := []jira.Issue{{ID: "1", Status: "In Progress"}, {ID: "2", Status: "DONE"}}
	feb := []jira.Issue{{ID: "1", Status: "DONE"}, {ID: "3", Status: "To Do"}}

	got := Merge([][]jira.Issue{jan, feb})
	want := []jira.Issue{{ID: "2", Status: "DONE"}, {ID: "1", Status: "DONE"}, {ID: "3", Status: "To Do"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge\n got: %+v\nwant: %+v", got, want)
	}
	if empty := Merge(nil); empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestMerge_KeepsIssuesWithoutIdentity(t *testing.T) {
	jan := []jira.Issue{{Summary: "a"}, {Key: "LPS-9"}}
	feb := []jira.Issue{{Summary: "b"}, {Key: "LPS-9", Status: "DONE"}}

	got := Merge([][]jira.Issue{jan, feb})
	want := []jira.Issue{{Summary: "a"}, {Summary: "b"}, {Key: "LPS-9", Status: "DONE"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge\n got: %+v\nwant: %+v", got, want)
	}
}

func TestLoad_CallerCancellationDoesNotAbortSharedPass(t *testing.T) {
	f := &fakeFetcher{
		byMonth: map[time.Month][]jira.RawIssue{time.February: {rawIssue("2", "feb")}},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	o, store := newTestOrchestrator(t, f, Options{})

	leaderCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	leaderErr := make(chan error, 1)
	go func() {
		_, err := o.Load(leaderCtx)
		leaderErr <- err
	}()

	select {
	case <-f.started:
	case <-time.After(5 * time.Second):
		t.Fatal("ingestion pass never started")
	}

	type result struct {
		issues []jira.Issue
		err    error
	}
	joined := make(chan result, 1)
	go func() {
		issues, err := o.Load(context.Background())
		joined <- result{issues, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-leaderErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("leader: expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(f.gate)
	select {
	case r := <-joined:
		if r.err != nil {
			t.Fatalf("joined caller failed: %v", r.err)
		}
		if len(r.issues) != 1 || r.issues[0].ID != "2" {
			t.Errorf("unexpected issues: %+v", r.issues)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("joined caller never returned")
	}

	if _, ok := store.Read(store.Path(cache.Partition{Year: 2024, Month: time.February})); !ok {
		t.Error("shared pass did not persist February")
	}
}

func TestStatus(t *testing.T) {
	f := &fakeFetcher{}
	o, store := newTestOrchestrator(t, f, Options{Freshness: time.Hour})
	seed(t, store, time.January, march15.AddDate(0, -2, 0), jira.Issue{ID: "1"})
	seed(t, store, time.March, march15.Add(-2*time.Hour))

	got := o.Status()
	states := make([]string, len(got))
	for i, s := range got {
		states[i] = s.Month + "=" + s.State
	}
	want := []string{"2024-01=CACHE_FRESH", "2024-02=CACHE_MISSING", "2024-03=CACHE_STALE_CURRENT_MONTH"}
	if !reflect.DeepEqual(states, want) {
		t.Errorf("Status = %v, want %v", states, want)
	}
	if got[0].Issues != 1 || got[1].FetchedAt != nil {
		t.Errorf("unexpected detail %+v", got)
	}
	if len(f.fetched()) != 0 {
		t.Error("Status must not fetch")
	}
}
