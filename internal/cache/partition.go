package cache

import (
	"fmt"
	"time"

	"sprintboard/internal/jira"
)

// Partition identifies one calendar month of cached issues.
type Partition struct {
	Year  int
	Month time.Month
}

// PartitionOf returns the partition containing t, in t's location.
func PartitionOf(t time.Time) Partition {
	return Partition{Year: t.Year(), Month: t.Month()}
}

func (p Partition) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Compare orders partitions chronologically.
func (p Partition) Compare(o Partition) int {
	switch {
	case p.Year != o.Year:
		if p.Year < o.Year {
			return -1
		}
		return 1
	case p.Month < o.Month:
		return -1
	case p.Month > o.Month:
		return 1
	}
	return 0
}

// Days returns the first and last day of the month in loc.
func (p Partition) Days(loc *time.Location) (first, last time.Time) {
	first = time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
	last = first.AddDate(0, 1, -1)
	return first, last
}

// Next returns the following month.
func (p Partition) Next() Partition {
	if p.Month == time.December {
		return Partition{Year: p.Year + 1, Month: time.January}
	}
	return Partition{Year: p.Year, Month: p.Month + 1}
}

// Snapshot is the persisted content of a partition file.
type Snapshot struct {
	Data []jira.Issue `json:"data"`
	// Timestamp is the fetch time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// FetchedAt returns the fetch time.
func (s Snapshot) FetchedAt() time.Time {
	return time.UnixMilli(s.Timestamp)
}
