// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows handler tests to run without SQLite and to inject failures

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu     sync.RWMutex
	days   map[string]DayCount // keyed by day
	now    func() time.Time
	err    error
	closed bool
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		days: make(map[string]DayCount),
		now:  time.Now,
	}
}

// SetClock overrides the clock used by Today.
func (m *MockStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// SetError makes every subsequent call fail with err (nil restores normal behavior).
func (m *MockStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// GetDay returns the counters for day, or zeros if absent.
func (m *MockStore) GetDay(ctx context.Context, day string) (*DayCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.err != nil {
		return nil, m.err
	}
	dc, ok := m.days[day]
	if !ok {
		return &DayCount{Day: day}, nil
	}
	return &dc, nil
}

// Today returns the counters for the current UTC day.
func (m *MockStore) Today(ctx context.Context) (*DayCount, error) {
	m.mu.RLock()
	now := m.now
	m.mu.RUnlock()
	return m.GetDay(ctx, DayKey(now()))
}

// History returns all rows sorted by day.
func (m *MockStore) History(ctx context.Context) ([]*DayCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.err != nil {
		return nil, m.err
	}
	history := make([]*DayCount, 0, len(m.days))
	for _, dc := range m.days {
		dc := dc
		history = append(history, &dc)
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].Day < history[j].Day
	})
	return history, nil
}

// UpsertDay stores a copy of dc, replacing any existing row for the day.
func (m *MockStore) UpsertDay(ctx context.Context, dc *DayCount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.days[dc.Day] = *dc
	return nil
}

// Ping returns the injected error, if any.
func (m *MockStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Close marks the store closed.
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockStore) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Len returns the number of stored days.
func (m *MockStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.days)
}

// Ensure MockStore implements Store
var _ Store = (*MockStore)(nil)
