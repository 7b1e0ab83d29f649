// Package history records instance lifecycle events in SQLite so operators
// can answer "what happened to this instance and when" after the fact.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Action is the event class.
type Action string

const (
	ActionCreate    Action = "create"
	ActionStart     Action = "start"
	ActionStop      Action = "stop"
	ActionRemove    Action = "remove"
	ActionKeepAwake Action = "keep-awake"
)

// Event is one recorded lifecycle event.
type Event struct {
	ID         int64
	PublicName string
	Action     Action
	Detail     string
	CreatedAt  time.Time
}

// Store persists events to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	// Set pragmas via DSN so every pooled connection gets them; a PRAGMA
	// run via db.Exec only applies to the one connection it lands on.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	db.SetMaxOpenConns(2)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			public_name TEXT NOT NULL,
			action      TEXT NOT NULL,
			detail      TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_public_name ON events(public_name);
	`)
	return err
}

// Record appends one event.
func (s *Store) Record(publicName string, action Action, detail string) error {
	_, err := s.db.Exec(
		`INSERT INTO events (public_name, action, detail, created_at) VALUES (?, ?, ?, ?)`,
		publicName, string(action), detail, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording %s event: %w", action, err)
	}
	return nil
}

// Recent returns the newest events, most recent first.
func (s *Store) Recent(limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, public_name, action, detail, created_at
		 FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var action, created string
		if err := rows.Scan(&ev.ID, &ev.PublicName, &action, &ev.Detail, &created); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		ev.Action = Action(action)
		ev.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, ev)
	}
	return out, rows.Err()
}
