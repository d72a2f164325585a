// Package store provides persistent storage for day counters using SQLite.
//
// # Data Model
//
// A single table holds one row per UTC calendar day:
//
//	day_counts(day TEXT PRIMARY KEY, count INTEGER NOT NULL, right_count INTEGER DEFAULT 0)
//
// Day keys use the YYYY-MM-DD layout (DayLayout), so ordering by the key is
// chronological. Keys are not validated; whatever a writer sends is stored.
//
// # Semantics
//
//   - Reads of a missing day return zeros, not ErrNoRows.
//   - UpsertDay always replaces both counters; nothing is incremented or merged.
//   - Rows are never deleted.
//
// # Concurrency
//
// SQLiteStore pins database/sql to one connection, so all calls are
// serialized through a single handle. Concurrent writes to the same day are
// last-writer-wins.
//
// # Drivers
//
// Two drivers are registered:
//
//   - "sqlite": modernc.org/sqlite (pure Go, default)
//   - "sqlite3": github.com/mattn/go-sqlite3 (cgo builds only)
//
// # Migrations
//
// EnsureSchema runs on every open. It creates the table if missing and adds
// right_count to databases that predate it, checking pragma_table_info first
// so the upgrade is idempotent.
//
// # Testing
//
// Use NewMockStore() for handler tests, NewSQLiteStore(":memory:") for
// integration tests with real SQLite.
package store
