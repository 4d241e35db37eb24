package safety

import (
	"context"
	"sync"
)

// Recorder is the compliance audit sink.
// Recording is fire-and-forget from the pipeline's perspective: failures
// are logged by the caller and never block turn completion.
type Recorder interface {
	RecordVerdict(ctx context.Context, v Verdict) error
	RecordEvent(ctx context.Context, e Event) error
}

// NopRecorder discards all records.
type NopRecorder struct{}

// Compile-time interface check.
var _ Recorder = NopRecorder{}

// RecordVerdict does nothing.
func (NopRecorder) RecordVerdict(_ context.Context, _ Verdict) error { return nil }

// RecordEvent does nothing.
func (NopRecorder) RecordEvent(_ context.Context, _ Event) error { return nil }

// MemoryRecorder keeps records in memory for tests.
type MemoryRecorder struct {
	mu       sync.Mutex
	verdicts []Verdict
	events   []Event
}

// Compile-time interface check.
var _ Recorder = (*MemoryRecorder)(nil)

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// RecordVerdict implements Recorder.
func (m *MemoryRecorder) RecordVerdict(_ context.Context, v Verdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verdicts = append(m.verdicts, v)
	return nil
}

// RecordEvent implements Recorder.
func (m *MemoryRecorder) RecordEvent(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// Verdicts returns a copy of the recorded verdicts, in order.
func (m *MemoryRecorder) Verdicts() []Verdict {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Verdict, len(m.verdicts))
	copy(out, m.verdicts)
	return out
}

// Events returns a copy of the recorded events, in order.
func (m *MemoryRecorder) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
