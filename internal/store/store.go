// Package store persists health-check history to SQLite so the
// dashboard can chart backend uptime. Uses WAL mode for crash-safe
// writes without blocking readers.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/taskdeck/taskdeck/internal/health"
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/history.db.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "history.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error { return d.db.Close() }

// Ping checks database connectivity.
func (d *DB) Ping() error { return d.db.Ping() }

func (d *DB) migrate() error {
	_, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS health_checks (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		checked_at         INTEGER NOT NULL,
		online             BOOLEAN NOT NULL,
		response_ms        INTEGER NOT NULL,
		quality            TEXT NOT NULL,
		consecutive_errors INTEGER NOT NULL DEFAULT 0,
		error              TEXT NOT NULL DEFAULT ''
	)`)
	return err
}

// CheckRecord is one persisted health check.
type CheckRecord struct {
	ID                int64          `json:"id"`
	CheckedAt         time.Time      `json:"checked_at"`
	Online            bool           `json:"online"`
	ResponseTime      time.Duration  `json:"-"`
	ResponseMS        int64          `json:"response_ms"`
	Quality           health.Quality `json:"quality"`
	ConsecutiveErrors int            `json:"consecutive_errors"`
	Error             string         `json:"error,omitempty"`
}

// RecordCheck persists one completed health check. Implements
// health.Journal.
func (d *DB) RecordCheck(s health.State) error {
	_, err := d.db.Exec(
		`INSERT INTO health_checks (checked_at, online, response_ms, quality, consecutive_errors, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.LastCheck.Unix(),
		s.Online,
		s.ResponseTime.Milliseconds(),
		string(s.Quality),
		s.ConsecutiveErrors,
		s.ErrorMessage,
	)
	return err
}

// History returns the most recent checks, newest first.
func (d *DB) History(limit int) ([]CheckRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.db.Query(
		`SELECT id, checked_at, online, response_ms, quality, consecutive_errors, error
		 FROM health_checks ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CheckRecord
	for rows.Next() {
		var r CheckRecord
		var checkedAt int64
		if err := rows.Scan(&r.ID, &checkedAt, &r.Online, &r.ResponseMS, &r.Quality, &r.ConsecutiveErrors, &r.Error); err != nil {
			return nil, err
		}
		r.CheckedAt = time.Unix(checkedAt, 0)
		r.ResponseTime = time.Duration(r.ResponseMS) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune keeps only the newest keep records.
func (d *DB) Prune(keep int) error {
	if keep <= 0 {
		keep = 10000
	}
	_, err := d.db.Exec(
		`DELETE FROM health_checks WHERE id NOT IN
		 (SELECT id FROM health_checks ORDER BY id DESC LIMIT ?)`, keep)
	return err
}

// Count returns the number of persisted checks.
func (d *DB) Count() (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM health_checks`).Scan(&n)
	return n, err
}
