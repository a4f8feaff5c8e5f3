// Package facts provides durable key/value memory about each caller,
// plus post-hoc extraction of new facts from completed exchanges.
package facts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists facts keyed by (caller, key).
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the fact database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewStoreWithDB creates a fact store using an existing database connection.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS facts (
			caller_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (caller_id, key)
		);

		CREATE INDEX IF NOT EXISTS idx_facts_caller ON facts(caller_id);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert creates or replaces the fact for (callerID, key).
func (s *Store) Upsert(ctx context.Context, callerID, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO facts (caller_id, key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(caller_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, callerID, key, value, now, now)
	if err != nil {
		return fmt.Errorf("upsert fact: %w", err)
	}
	return nil
}

// All returns every fact stored for the caller.
func (s *Store) All(ctx context.Context, callerID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM facts WHERE caller_id = ?`, callerID)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	facts := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		facts[k] = v
	}
	return facts, rows.Err()
}

// Delete removes a fact. Deleting an absent key is an error so the
// caller can report it.
func (s *Store) Delete(ctx context.Context, callerID, key string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM facts WHERE caller_id = ? AND key = ?`, callerID, key)
	if err != nil {
		return fmt.Errorf("delete fact: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("fact not found: %s", key)
	}
	return nil
}
