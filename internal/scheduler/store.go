package scheduler

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a reminder lookup matches nothing.
var ErrNotFound = errors.New("reminder not found")

// Store handles reminder persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a reminder store with a SQLite backend.
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

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reminders (
		id TEXT PRIMARY KEY,
		caller_id TEXT NOT NULL,
		text TEXT NOT NULL,
		next_run TEXT NOT NULL,
		repeat TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reminders_caller ON reminders(caller_id);
	CREATE INDEX IF NOT EXISTS idx_reminders_next_run ON reminders(next_run);
	`
	_, err := s.db.Exec(schema)
	return err
}

// NewID generates a new UUIDv7.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		return uuid.New().String()
	}
	return id.String()
}

// Create persists a new reminder.
func (s *Store) Create(r *Reminder) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO reminders (id, caller_id, text, next_run, repeat, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.CallerID, r.Text,
		r.NextRun.UTC().Format(time.RFC3339Nano),
		r.Repeat,
		r.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

// Get retrieves a reminder by ID.
func (s *Store) Get(id string) (*Reminder, error) {
	return s.scanOne(s.db.QueryRow(`
		SELECT id, caller_id, text, next_run, repeat, created_at
		FROM reminders WHERE id = ?
	`, id))
}

// ByCaller returns the caller's reminders ordered by next firing.
func (s *Store) ByCaller(callerID string) ([]*Reminder, error) {
	rows, err := s.db.Query(`
		SELECT id, caller_id, text, next_run, repeat, created_at
		FROM reminders WHERE caller_id = ? ORDER BY next_run
	`, callerID)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()
	return s.scanAll(rows)
}

// All returns every stored reminder, for rescheduling at startup.
func (s *Store) All() ([]*Reminder, error) {
	rows, err := s.db.Query(`
		SELECT id, caller_id, text, next_run, repeat, created_at
		FROM reminders ORDER BY next_run
	`)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()
	return s.scanAll(rows)
}

// UpdateNextRun advances a recurring reminder to its next firing.
func (s *Store) UpdateNextRun(id string, next time.Time) error {
	result, err := s.db.Exec(`UPDATE reminders SET next_run = ? WHERE id = ?`,
		next.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a reminder scoped to the caller. The id may be a
// unique prefix of the full UUID; an ambiguous prefix is an error.
func (s *Store) Delete(callerID, id string) (*Reminder, error) {
	reminders, err := s.ByCaller(callerID)
	if err != nil {
		return nil, err
	}

	var match *Reminder
	for _, r := range reminders {
		if strings.HasPrefix(r.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("reminder id %q is ambiguous", id)
			}
			match = r
		}
	}
	if match == nil {
		return nil, ErrNotFound
	}

	if _, err := s.db.Exec(`DELETE FROM reminders WHERE id = ?`, match.ID); err != nil {
		return nil, fmt.Errorf("delete reminder: %w", err)
	}
	return match, nil
}

// remove deletes a fired one-shot reminder by exact ID.
func (s *Store) remove(id string) error {
	_, err := s.db.Exec(`DELETE FROM reminders WHERE id = ?`, id)
	return err
}

func (s *Store) scanOne(row *sql.Row) (*Reminder, error) {
	var r Reminder
	var nextStr, createdStr string
	err := row.Scan(&r.ID, &r.CallerID, &r.Text, &nextStr, &r.Repeat, &createdStr)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan reminder: %w", err)
	}
	r.NextRun, _ = time.Parse(time.RFC3339Nano, nextStr)
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return &r, nil
}

func (s *Store) scanAll(rows *sql.Rows) ([]*Reminder, error) {
	var reminders []*Reminder
	for rows.Next() {
		var r Reminder
		var nextStr, createdStr string
		if err := rows.Scan(&r.ID, &r.CallerID, &r.Text, &nextStr, &r.Repeat, &createdStr); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		r.NextRun, _ = time.Parse(time.RFC3339Nano, nextStr)
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		reminders = append(reminders, &r)
	}
	return reminders, rows.Err()
}
