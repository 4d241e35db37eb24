package thread

import (
	"context"
	"sync"
	"time"

	"github.com/baotvdn/chatguard/pkg/chatguard/state"
)

// MemoryStore is an in-memory thread store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu          sync.RWMutex
	messages    map[string][]state.Message
	checkpoints map[string]map[string]storedCheckpoint // userID -> nodeID -> checkpoint
	closed      bool
}

// storedCheckpoint holds checkpoint data with ordering metadata.
type storedCheckpoint struct {
	data      []byte
	sequence  int
	timestamp time.Time
}

// NewMemoryStore creates a new in-memory thread store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages:    make(map[string][]state.Message),
		checkpoints: make(map[string]map[string]storedCheckpoint),
	}
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// Messages implements Store.
func (m *MemoryStore) Messages(_ context.Context, userID string) ([]state.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	msgs := m.messages[userID]
	// Return a copy to prevent modification.
	result := make([]state.Message, len(msgs))
	copy(result, msgs)
	return result, nil
}

// Append implements Store.
func (m *MemoryStore) Append(_ context.Context, userID string, msg state.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	m.messages[userID] = append(m.messages[userID], msg)
	return nil
}

// Clear implements Store.
func (m *MemoryStore) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.messages, userID)
	delete(m.checkpoints, userID)
	return nil
}

// SaveCheckpoint implements Store.
func (m *MemoryStore) SaveCheckpoint(_ context.Context, userID, nodeID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if m.checkpoints[userID] == nil {
		m.checkpoints[userID] = make(map[string]storedCheckpoint)
	}

	seq := 1
	for _, cp := range m.checkpoints[userID] {
		if cp.sequence >= seq {
			seq = cp.sequence + 1
		}
	}

	// Copy data to avoid retaining the caller's slice.
	stored := make([]byte, len(data))
	copy(stored, data)

	m.checkpoints[userID][nodeID] = storedCheckpoint{
		data:      stored,
		sequence:  seq,
		timestamp: time.Now().UTC(),
	}

	return nil
}

// LoadCheckpoint implements Store.
// Returns the checkpoint with the highest sequence for the user.
func (m *MemoryStore) LoadCheckpoint(_ context.Context, userID string) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	nodes, ok := m.checkpoints[userID]
	if !ok || len(nodes) == 0 {
		return nil, ErrNotFound
	}

	var latest *Checkpoint
	for nodeID, cp := range nodes {
		if latest == nil || cp.sequence > latest.Sequence {
			data := make([]byte, len(cp.data))
			copy(data, cp.data)
			latest = &Checkpoint{
				UserID:    userID,
				NodeID:    nodeID,
				Sequence:  cp.sequence,
				Timestamp: cp.timestamp,
				State:     data,
			}
		}
	}
	return latest, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.messages = nil
	m.checkpoints = nil
	return nil
}

// Len returns the total number of messages across all threads.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, msgs := range m.messages {
		count += len(msgs)
	}
	return count
}
