// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers schema creation, legacy migration, upsert semantics, and history ordering

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath, opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func fixedClock(day string) func() time.Time {
	ts, err := time.Parse(DayLayout, day)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return ts.Add(13 * time.Hour) }
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file was not created")
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "counts.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file was not created in nested directory")
}

func TestNewSQLiteStore_InMemory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.UpsertDay(ctx, &DayCount{Day: "2024-01-01", Count: 1}))

	history, err := store.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestNewSQLiteStore_UnknownDriver(t *testing.T) {
	_, err := NewSQLiteStore(filepath.Join(t.TempDir(), "x.db"), WithDriver("nope"))
	require.Error(t, err)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertDay(ctx, &DayCount{Day: "2024-05-01", Count: 4, RightCount: 2}))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.EnsureSchema(ctx))
	}

	got, err := store.GetDay(ctx, "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, &DayCount{Day: "2024-05-01", Count: 4, RightCount: 2}, got)
}

func TestEnsureSchema_ReopenExistingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "counts.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, first.UpsertDay(ctx, &DayCount{Day: "2024-02-02", Count: 7, RightCount: 1}))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.GetDay(ctx, "2024-02-02")
	require.NoError(t, err)
	assert.Equal(t, uint32(7), got.Count)
	assert.Equal(t, uint32(1), got.RightCount)
}

func TestEnsureSchema_AddsRightCountToLegacyTable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "legacy.db")

	legacy, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = legacy.Exec(`CREATE TABLE day_counts (day TEXT PRIMARY KEY, count INTEGER NOT NULL)`)
	require.NoError(t, err)
	_, err = legacy.Exec(`INSERT INTO day_counts (day, count) VALUES ('2023-12-31', 11)`)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	has, err := store.hasColumn(ctx, "day_counts", "right_count")
	require.NoError(t, err)
	assert.True(t, has)

	got, err := store.GetDay(ctx, "2023-12-31")
	require.NoError(t, err)
	assert.Equal(t, &DayCount{Day: "2023-12-31", Count: 11, RightCount: 0}, got)

	require.NoError(t, store.UpsertDay(ctx, &DayCount{Day: "2023-12-31", Count: 12, RightCount: 5}))
	got, err = store.GetDay(ctx, "2023-12-31")
	require.NoError(t, err)
	assert.Equal(t, uint32(5), got.RightCount)
}

func TestGetDay_Missing(t *testing.T) {
	store := setupTestStore(t)

	got, err := store.GetDay(context.Background(), "1999-01-01")
	require.NoError(t, err)
	assert.Equal(t, &DayCount{Day: "1999-01-01"}, got)
}

func TestToday_EmptyStore(t *testing.T) {
	store := setupTestStore(t, WithClock(fixedClock("2024-03-15")))

	got, err := store.Today(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", got.Day)
	assert.Zero(t, got.Count)
	assert.Zero(t, got.RightCount)
}

func TestToday_UsesUTCDay(t *testing.T) {
	// 23:30 at UTC-5 on the 14th is already the 15th in UTC.
	loc := time.FixedZone("EST", -5*60*60)
	clock := func() time.Time { return time.Date(2024, 3, 14, 23, 30, 0, 0, loc) }
	store := setupTestStore(t, WithClock(clock))
	ctx := context.Background()

	require.NoError(t, store.UpsertDay(ctx, &DayCount{Day: "2024-03-15", Count: 3, RightCount: 8}))

	got, err := store.Today(ctx)
	require.NoError(t, err)
	assert.Equal(t, &DayCount{Day: "2024-03-15", Count: 3, RightCount: 8}, got)
}

func TestUpsertDay_WriteThenRead(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	cases := []*DayCount{
		{Day: "2024-01-01", Count: 0, RightCount: 0},
		{Day: "2024-01-02", Count: 1, RightCount: 0},
		{Day: "2024-01-03", Count: 42, RightCount: 17},
		{Day: "2024-01-04", Count: 4294967295, RightCount: 4294967295},
	}
	for _, dc := range cases {
		require.NoError(t, store.UpsertDay(ctx, dc))
	}

	history, err := store.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, cases, history)
}

func TestUpsertDay_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	dc := &DayCount{Day: "2024-06-01", Count: 3, RightCount: 1}
	require.NoError(t, store.UpsertDay(ctx, dc))
	require.NoError(t, store.UpsertDay(ctx, dc))

	history, err := store.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, dc, history[0])
}

func TestUpsertDay_OverwriteReplacesBothCounters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertDay(ctx, &DayCount{Day: "2024-06-02", Count: 5}))
	require.NoError(t, store.UpsertDay(ctx, &DayCount{Day: "2024-06-02", Count: 9, RightCount: 3}))

	got, err := store.GetDay(ctx, "2024-06-02")
	require.NoError(t, err)
	assert.Equal(t, &DayCount{Day: "2024-06-02", Count: 9, RightCount: 3}, got)

	// Omitting right_count on a later write zeroes it.
	require.NoError(t, store.UpsertDay(ctx, &DayCount{Day: "2024-06-02", Count: 10}))
	got, err = store.GetDay(ctx, "2024-06-02")
	require.NoError(t, err)
	assert.Equal(t, &DayCount{Day: "2024-06-02", Count: 10, RightCount: 0}, got)
}

func TestHistory_Empty(t *testing.T) {
	store := setupTestStore(t)

	history, err := store.History(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestHistory_SortedByDay(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, day := range []string{"2024-01-03", "2024-01-01", "2024-01-02"} {
		require.NoError(t, store.UpsertDay(ctx, &DayCount{Day: day, Count: 1}))
	}

	history, err := store.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "2024-01-01", history[0].Day)
	assert.Equal(t, "2024-01-02", history[1].Day)
	assert.Equal(t, "2024-01-03", history[2].Day)
}

func TestHistory_MalformedDaysSortLexicographically(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, day := range []string{"not-a-date", "2024-01-01", "2024-1-2"} {
		require.NoError(t, store.UpsertDay(ctx, &DayCount{Day: day, Count: 1}))
	}

	history, err := store.History(ctx)
	require.NoError(t, err)
	days := make([]string, 0, len(history))
	for _, dc := range history {
		days = append(days, dc.Day)
	}
	assert.Equal(t, []string{"2024-01-01", "2024-1-2", "not-a-date"}, days)
}

func TestUpsertDay_Concurrent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			day := fmt.Sprintf("2024-02-%02d", i+1)
			errs <- store.UpsertDay(ctx, &DayCount{Day: day, Count: uint32(i)})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	history, err := store.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, writers)
}

func TestPingAndClose(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ping.db"))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.Close())

	assert.Error(t, store.Ping(ctx))
	_, err = store.History(ctx)
	assert.Error(t, err)
}

func TestDayKey(t *testing.T) {
	loc := time.FixedZone("PLUS14", 14*60*60)
	assert.Equal(t, "2024-12-31", DayKey(time.Date(2025, 1, 1, 9, 0, 0, 0, loc)))
	assert.Equal(t, "2025-01-01", DayKey(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
}
