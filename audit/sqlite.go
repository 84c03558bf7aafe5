package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteSink stores records in a single audit_events table so a finished
// game can be queried after the fact.
type SQLiteSink struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database at path and migrates it.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	s := &SQLiteSink{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteSink) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ts INTEGER NOT NULL,
    game_id TEXT NOT NULL DEFAULT '',
    event TEXT NOT NULL,
    payload TEXT,
    meta TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_events_event ON audit_events(event);
CREATE INDEX IF NOT EXISTS idx_audit_events_game ON audit_events(game_id);
`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteSink) Write(r Record) error {
	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	meta, err := json.Marshal(r.Meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	gameID, _ := r.Meta["game_id"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT INTO audit_events (ts, game_id, event, payload, meta) VALUES (?, ?, ?, ?, ?)`,
		r.TS.UnixNano(), gameID, r.Event, string(payload), string(meta),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Events returns every stored record with the given name in insertion order.
// An empty name returns all records.
func (s *SQLiteSink) Events(event string) ([]Record, error) {
	q := `SELECT ts, event, payload, meta FROM audit_events`
	var args []any
	if event != "" {
		q += ` WHERE event = ?`
		args = append(args, event)
	}
	q += ` ORDER BY id`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			ts            int64
			r             Record
			payload, meta sql.NullString
		)
		if err := rows.Scan(&ts, &r.Event, &payload, &meta); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		r.TS = time.Unix(0, ts).UTC()
		if payload.Valid && payload.String != "null" {
			if err := json.Unmarshal([]byte(payload.String), &r.Payload); err != nil {
				return nil, fmt.Errorf("decode payload: %w", err)
			}
		}
		if meta.Valid && meta.String != "null" {
			if err := json.Unmarshal([]byte(meta.String), &r.Meta); err != nil {
				return nil, fmt.Errorf("decode meta: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
