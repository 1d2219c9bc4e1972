// Package store opens the SQLite warehouse and owns its baseline schema.
// Input tables (suppliers, purchase_orders, deliveries) are created by the
// loader; the derived tables are created by the KPI and risk stages with
// replace semantics. The store itself only maintains the run log.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Open opens (creating if necessary) the warehouse database at path and
// applies the connection pragmas. The returned handle is safe for concurrent
// readers; the pipeline is the single writer.
func Open(path string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", path+sep+"_journal_mode=WAL&_busy_timeout=10000&_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}

	// SQLite handles 1 writer + multiple readers with WAL mode.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	// Set pragmas explicitly; some drivers don't parse connection string params.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=10000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the tables the store itself owns.
func Migrate(db *sql.DB) error {
	runLog := `CREATE TABLE IF NOT EXISTS pipeline_runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT DEFAULT '',
		status TEXT NOT NULL DEFAULT 'running' CHECK(status IN ('running','succeeded','failed')),
		failed_stage TEXT DEFAULT '',
		error TEXT DEFAULT ''
	)`
	if _, err := db.Exec(runLog); err != nil {
		return fmt.Errorf("pipeline_runs migration: %w", err)
	}
	return nil
}

// TableExists reports whether a table is present in the database. Derived
// tables may legitimately be absent before the first pipeline run or right
// after a failed one; readers use this to degrade instead of erroring.
func TableExists(db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return n > 0, nil
}
