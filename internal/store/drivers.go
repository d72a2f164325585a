package store

// Both SQLite drivers are registered; database.driver picks one at runtime.
// modernc.org/sqlite registers "sqlite", github.com/mattn/go-sqlite3 registers
// "sqlite3" (which only works in cgo builds).
import (
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)
