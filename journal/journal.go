// ABOUTME: SQLite-backed journal of inbound remote events for debugging and session replay.
// ABOUTME: Append is idempotent on event ID; the journal is never a source of truth.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/2389-research/retroboard/board"
)

// Journal records every remote event a session receives. It exists for
// debugging and offline replay; board state stays server-owned.
type Journal struct {
	db *sql.DB
}

// Open opens or creates a journal database at the given path. Use ":memory:"
// for an ephemeral journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			board_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			received_at TEXT NOT NULL,
			payload TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_board ON events(board_id, event_id);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append records an event. Redelivered events (same event ID) are ignored,
// keeping the journal idempotent like the cache it mirrors.
func (j *Journal) Append(ev board.RemoteEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = j.db.Exec(
		`INSERT INTO events (event_id, board_id, event_type, received_at, payload)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(event_id) DO NOTHING`,
		ev.EventID.String(),
		ev.BoardID,
		ev.Payload.EventType(),
		time.Now().UTC().Format(time.RFC3339Nano),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Events returns all recorded events for a board in event-ID (arrival time)
// order.
func (j *Journal) Events(boardID string) ([]board.RemoteEvent, error) {
	rows, err := j.db.Query(
		`SELECT payload FROM events WHERE board_id = ? ORDER BY event_id`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []board.RemoteEvent
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var ev board.RemoteEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Count returns the number of recorded events for a board.
func (j *Journal) Count(boardID string) (int, error) {
	var n int
	err := j.db.QueryRow(
		`SELECT COUNT(*) FROM events WHERE board_id = ?`, boardID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
