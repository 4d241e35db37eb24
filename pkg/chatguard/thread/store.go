// Package thread provides durable per-user conversation storage: an
// ordered message log plus the pipeline's execution checkpoint, both
// keyed by user identity.
package thread

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/baotvdn/chatguard/pkg/chatguard/state"
)

// Store persists thread state.
// Implementations must be safe for concurrent use and must serialize
// writes per user identity; callers ensure at most one in-flight turn
// per identity.
type Store interface {
	// Messages returns the ordered message log for a user, oldest first.
	// Returns an empty slice (not an error) for an unknown identity.
	Messages(ctx context.Context, userID string) ([]state.Message, error)

	// Append adds a message to the end of the user's log.
	Append(ctx context.Context, userID string, msg state.Message) error

	// Clear removes all messages and resets the checkpoint atomically.
	// Clearing an empty thread is a no-op success; the identity persists.
	Clear(ctx context.Context, userID string) error

	// SaveCheckpoint stores the serialized turn state for (userID, nodeID).
	// Overwrites any existing checkpoint for the same pair.
	SaveCheckpoint(ctx context.Context, userID, nodeID string, data []byte) error

	// LoadCheckpoint retrieves the latest checkpoint for a user.
	// Returns ErrNotFound if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, userID string) (*Checkpoint, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Checkpoint is the persisted snapshot of a turn's execution state.
type Checkpoint struct {
	UserID    string          `json:"user_id"`
	NodeID    string          `json:"node_id"`
	Sequence  int             `json:"sequence"`
	Timestamp time.Time       `json:"timestamp"`
	State     json.RawMessage `json:"state"`
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the requested record doesn't exist.
	ErrNotFound = errors.New("thread: not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("thread: store closed")
)
