// ABOUTME: Store interface and data types for absolutelyright persistence
// ABOUTME: Defines the DayCount record and the Store contract used by the HTTP API

package store

import (
	"context"
	"time"
)

// DayLayout is the layout of a day key (YYYY-MM-DD). Keys in this layout
// sort lexicographically in chronological order.
const DayLayout = "2006-01-02"

// DayCount is the counter row for one calendar day.
type DayCount struct {
	Day        string
	Count      uint32
	RightCount uint32
}

// DayKey returns the UTC day key for t.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// Store defines the persistence contract for day counters.
// Reads of a missing day yield a zero-valued DayCount, never an error.
// Writes fully replace both counters of the day.
type Store interface {
	// GetDay returns the counters stored for day, or zeros if absent.
	GetDay(ctx context.Context, day string) (*DayCount, error)

	// Today returns the counters for the current UTC day, or zeros if absent.
	Today(ctx context.Context) (*DayCount, error)

	// History returns every stored row ordered ascending by day.
	History(ctx context.Context) ([]*DayCount, error)

	// UpsertDay inserts the row or overwrites count and right_count on conflict.
	UpsertDay(ctx context.Context, dc *DayCount) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}
