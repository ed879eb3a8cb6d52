package scheduler

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStateStore persists the schedule state in a one-row SQLite table.
// Only LastFiredDate crosses process restarts; reports and messages are
// never stored.
type SQLiteStateStore struct {
	db *sql.DB
}

// OpenSQLiteStateStore opens (creating if needed) the state database at
// path and ensures the schema exists.
func OpenSQLiteStateStore(path string) (*SQLiteStateStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating state dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS schedule_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			last_fired_date TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schedule_state table: %w", err)
	}

	return &SQLiteStateStore{db: db}, nil
}

// Load reads the persisted fire date. An empty string means the
// scheduler has never fired.
func (s *SQLiteStateStore) Load() (string, error) {
	var date string
	err := s.db.QueryRow(
		"SELECT last_fired_date FROM schedule_state WHERE id = 1").Scan(&date)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load schedule state: %w", err)
	}
	return date, nil
}

// Save upserts the single state row.
func (s *SQLiteStateStore) Save(lastFiredDate string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO schedule_state (id, last_fired_date, updated_at)
		VALUES (1, ?, ?)`,
		lastFiredDate,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save schedule state: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStateStore) Close() error { return s.db.Close() }

var _ StateStore = (*SQLiteStateStore)(nil)
