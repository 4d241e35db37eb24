// Package audit provides a SQLite-backed compliance audit log
// implementing the safety.Recorder sink.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/baotvdn/chatguard/pkg/chatguard/safety"
)

// Log persists compliance verdicts and safety events.
// An external admin surface can read the same tables; this package only
// writes and lists them.
type Log struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// Compile-time interface check.
var _ safety.Recorder = (*Log)(nil)

// Open creates or opens an audit log at the given path.
// Use ":memory:" for testing.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS compliance_verdicts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			message_id TEXT NOT NULL,
			status TEXT NOT NULL,
			violation_type TEXT NOT NULL,
			reasoning TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create verdicts table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS safety_events (
			id TEXT PRIMARY KEY,
			verdict_id TEXT NOT NULL REFERENCES compliance_verdicts(id),
			event_type TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create events table: %w", err)
	}

	return &Log{db: db}, nil
}

// RecordVerdict implements safety.Recorder.
func (l *Log) RecordVerdict(ctx context.Context, v safety.Verdict) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("audit log closed")
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO compliance_verdicts (id, user_id, message_id, status, violation_type, reasoning, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.UserID, v.MessageID, string(v.Status), string(v.Violation), v.Reasoning,
		v.CreatedAt.UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("record verdict: %w", err)
	}
	return nil
}

// RecordEvent implements safety.Recorder.
func (l *Log) RecordEvent(ctx context.Context, e safety.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("audit log closed")
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO safety_events (id, verdict_id, event_type, created_at)
		VALUES (?, ?, ?, ?)
	`, e.ID, e.VerdictID, string(e.Type), e.CreatedAt.UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// Verdicts returns all verdicts for a user, oldest first.
func (l *Log) Verdicts(ctx context.Context, userID string) ([]safety.Verdict, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, fmt.Errorf("audit log closed")
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, user_id, message_id, status, violation_type, reasoning, created_at
		FROM compliance_verdicts
		WHERE user_id = ?
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	var verdicts []safety.Verdict
	for rows.Next() {
		var v safety.Verdict
		var status, violation, createdAt string
		if err := rows.Scan(&v.ID, &v.UserID, &v.MessageID, &status, &violation, &v.Reasoning, &createdAt); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		v.Status = safety.Status(status)
		v.Violation = safety.ViolationType(violation)
		v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		verdicts = append(verdicts, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}

	return verdicts, nil
}

// Events returns all events linked to a verdict, oldest first.
func (l *Log) Events(ctx context.Context, verdictID string) ([]safety.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, fmt.Errorf("audit log closed")
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, verdict_id, event_type, created_at
		FROM safety_events
		WHERE verdict_id = ?
		ORDER BY created_at
	`, verdictID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []safety.Event
	for rows.Next() {
		var e safety.Event
		var eventType, createdAt string
		if err := rows.Scan(&e.ID, &e.VerdictID, &eventType, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = safety.EventType(eventType)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// Close releases the underlying database handle.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	return l.db.Close()
}
