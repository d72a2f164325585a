// ABOUTME: SQLite implementation of the Store interface
// ABOUTME: Owns the single day_counts table, its schema upgrade, and the upsert

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// SQLiteStore implements the Store interface using SQLite.
//
// The connection pool is pinned to a single connection, so every call is
// serialized through one handle and SQLite's own locking is the only
// concurrency control.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a SQLiteStore.
type Option func(*sqliteOptions)

type sqliteOptions struct {
	driver string
	now    func() time.Time
	logger *slog.Logger
}

// WithDriver selects the database/sql driver name ("sqlite" or "sqlite3").
func WithDriver(driver string) Option {
	return func(o *sqliteOptions) { o.driver = driver }
}

// WithClock overrides the clock used to compute today's day key.
func WithClock(now func() time.Time) Option {
	return func(o *sqliteOptions) { o.now = now }
}

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(o *sqliteOptions) { o.logger = logger }
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is created or upgraded if needed.
// Parent directories are created if needed.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	o := sqliteOptions{
		driver: "sqlite",
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open(o.driver, path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
		now:    o.now,
	}

	if err := s.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path, "driver", o.driver)
	return s, nil
}

// EnsureSchema creates the day_counts table if it doesn't exist and adds the
// right_count column to databases created before it existed.
// Safe to call on every startup.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS day_counts (
			day TEXT PRIMARY KEY,
			count INTEGER NOT NULL,
			right_count INTEGER DEFAULT 0
		)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating day_counts table: %w", err)
	}

	// SQLite doesn't support ADD COLUMN IF NOT EXISTS, so we check first
	has, err := s.hasColumn(ctx, "day_counts", "right_count")
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `ALTER TABLE day_counts ADD COLUMN right_count INTEGER DEFAULT 0`); err != nil {
		return fmt.Errorf("adding right_count column to day_counts: %w", err)
	}
	s.logger.Info("migrated day_counts", "added_column", "right_count")
	return nil
}

// hasColumn reports whether table has a column with the given name.
func (s *SQLiteStore) hasColumn(ctx context.Context, table, column string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM pragma_table_info(?) WHERE name = ?`, table, column,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspecting %s columns: %w", table, err)
	}
	return true, nil
}

// GetDay returns the counters for day. A missing row yields zeros.
func (s *SQLiteStore) GetDay(ctx context.Context, day string) (*DayCount, error) {
	dc := &DayCount{Day: day}
	err := s.db.QueryRowContext(ctx,
		`SELECT count, COALESCE(right_count, 0) FROM day_counts WHERE day = ?`, day,
	).Scan(&dc.Count, &dc.RightCount)
	if errors.Is(err, sql.ErrNoRows) {
		return dc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying day %q: %w", day, err)
	}
	return dc, nil
}

// Today returns the counters for the current UTC day.
func (s *SQLiteStore) Today(ctx context.Context) (*DayCount, error) {
	return s.GetDay(ctx, DayKey(s.now()))
}

// History returns all rows sorted ascending by day.
func (s *SQLiteStore) History(ctx context.Context) ([]*DayCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, count, COALESCE(right_count, 0) FROM day_counts ORDER BY day`)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	history := make([]*DayCount, 0)
	for rows.Next() {
		dc := &DayCount{}
		if err := rows.Scan(&dc.Day, &dc.Count, &dc.RightCount); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		history = append(history, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return history, nil
}

// UpsertDay inserts dc or, if the day already exists, overwrites both counters.
func (s *SQLiteStore) UpsertDay(ctx context.Context, dc *DayCount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO day_counts (day, count, right_count) VALUES (?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET count = excluded.count, right_count = excluded.right_count`,
		dc.Day, dc.Count, dc.RightCount,
	)
	if err != nil {
		return fmt.Errorf("upserting day %q: %w", dc.Day, err)
	}
	return nil
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
