// Package sqlite persists the one piece of state that must survive a
// restart: the total number of sessions ever created.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const counterName = "sessions_total"

// CounterStore is a sqlite-backed implementation of ports.CounterStore.
type CounterStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the counter database at path.
func Open(path string) (*CounterStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open counter store: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS counters (
			name  TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create counters table: %w", err)
	}
	if _, err := db.Exec(
		`INSERT OR IGNORE INTO counters (name, value) VALUES (?, 0)`,
		counterName,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed counter row: %w", err)
	}

	return &CounterStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *CounterStore) Close() error {
	return s.db.Close()
}

// TotalSessions returns the current counter value.
func (s *CounterStore) TotalSessions(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM counters WHERE name = ?`, counterName,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", counterName, err)
	}
	return total, nil
}

// IncrementTotalSessions atomically bumps the counter and returns the
// new value.
func (s *CounterStore) IncrementTotalSessions(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE counters SET value = value + 1 WHERE name = ? RETURNING value`,
		counterName,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", counterName, err)
	}
	return total, nil
}
