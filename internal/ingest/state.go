package ingest

import (
	"time"

	"sprintboard/internal/cache"
)

// State is the resolution of one partition during an ingestion pass.
type State int

const (
	// CacheMissing means no usable cached data exists; the month is always fetched.
	CacheMissing State = iota
	// CacheFresh means the cached partition is served as-is.
	CacheFresh
	// CacheStaleCurrentMonth means the current month was fetched longer ago than the freshness window.
	CacheStaleCurrentMonth
)

func (s State) String() string {
	switch s {
	case CacheFresh:
		return "CACHE_FRESH"
	case CacheStaleCurrentMonth:
		return "CACHE_STALE_CURRENT_MONTH"
	default:
		return "CACHE_MISSING"
	}
}

// NeedsFetch reports whether the partition must be fetched from Jira.
func (s State) NeedsFetch() bool {
	return s != CacheFresh
}

// Evaluate decides the state of partition p. Closed months with any cached data are fresh
// regardless of age; only the month containing now is subject to the freshness window.
func Evaluate(p, current cache.Partition, snap *cache.Snapshot, now time.Time, freshness time.Duration) State {
	if snap == nil {
		return CacheMissing
	}
	if p.Compare(current) < 0 {
		return CacheFresh
	}
	if now.Sub(snap.FetchedAt()) > freshness {
		return CacheStaleCurrentMonth
	}
	return CacheFresh
}
