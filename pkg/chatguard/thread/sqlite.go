package thread

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/baotvdn/chatguard/pkg/chatguard/state"
)

// SQLiteStore persists thread state to SQLite.
// It is suitable for single-process production use. SQLite serializes
// writes, which provides the per-key ordering the store contract needs.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite thread store.
// The path should be a file path (e.g., "./threads.db") or ":memory:"
// for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			user_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (user_id, seq)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create messages table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			user_id TEXT NOT NULL,
			node_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			state BLOB NOT NULL,
			PRIMARY KEY (user_id, node_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkpoints table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// Messages implements Store.
func (s *SQLiteStore) Messages(ctx context.Context, userID string) ([]state.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, created_at
		FROM messages
		WHERE user_id = ?
		ORDER BY seq
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]state.Message, 0)
	for rows.Next() {
		var msg state.Message
		var role, createdAt string
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = state.Role(role)
		msg.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return msgs, nil
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, userID string, msg state.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (user_id, seq, id, role, content, created_at)
		VALUES (
			?,
			COALESCE((SELECT MAX(seq) FROM messages WHERE user_id = ?), 0) + 1,
			?, ?, ?, ?
		)
	`, userID, userID, msg.ID, string(msg.Role), msg.Content,
		msg.CreatedAt.UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Clear implements Store.
// Messages and checkpoint are removed in one transaction.
func (s *SQLiteStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE user_id = ?`, userID); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoints WHERE user_id = ?`, userID); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear checkpoints: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	return nil
}

// SaveCheckpoint implements Store.
func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, userID, nodeID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	// Use an upsert; sequence is max + 1 for this user.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (user_id, node_id, sequence, timestamp, state)
		VALUES (
			?, ?,
			COALESCE((SELECT MAX(sequence) FROM checkpoints WHERE user_id = ?), 0) + 1,
			?, ?
		)
		ON CONFLICT(user_id, node_id) DO UPDATE SET
			sequence = (SELECT MAX(sequence) FROM checkpoints WHERE user_id = excluded.user_id) + 1,
			timestamp = excluded.timestamp,
			state = excluded.state
	`, userID, nodeID, userID, time.Now().UTC().Format(time.RFC3339Nano), data)

	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint implements Store.
func (s *SQLiteStore) LoadCheckpoint(ctx context.Context, userID string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var cp Checkpoint
	var timestamp string
	err := s.db.QueryRowContext(ctx, `
		SELECT node_id, sequence, timestamp, state
		FROM checkpoints
		WHERE user_id = ?
		ORDER BY sequence DESC
		LIMIT 1
	`, userID).Scan(&cp.NodeID, &cp.Sequence, &timestamp, (*[]byte)(&cp.State))

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	cp.UserID = userID
	cp.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
	return &cp, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
