package graph

import (
	"context"
)

// Test state types used across tests

// Counter is a simple state for testing incrementing.
type Counter struct {
	Value int
}

// State is a more complex state for testing routing scenarios.
type State struct {
	Step     int
	Progress []string
	Halt     bool
}

// Helper node functions

// increment is a node that increments the counter.
func increment(ctx Context, s Counter) (Counter, error) {
	s.Value++
	return s, nil
}

// makeTrackingNode creates a node that records its execution.
func makeTrackingNode(name string, tracker *[]string) NodeFunc[State] {
	return func(ctx Context, s State) (State, error) {
		*tracker = append(*tracker, name)
		s.Progress = append(s.Progress, name)
		return s, nil
	}
}

// makeFailingNode creates a node that returns the given error.
func makeFailingNode(err error) NodeFunc[State] {
	return func(ctx Context, s State) (State, error) {
		return s, err
	}
}

// makePanicNode creates a node that panics with the given value.
func makePanicNode(value any) NodeFunc[State] {
	return func(ctx Context, s State) (State, error) {
		panic(value)
	}
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}

// memorySaver is an in-memory CheckpointSaver for tests.
type memorySaver struct {
	saves []savedCheckpoint
	err   error
}

type savedCheckpoint struct {
	threadID string
	nodeID   string
	data     []byte
}

func (m *memorySaver) SaveCheckpoint(_ context.Context, threadID, nodeID string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.saves = append(m.saves, savedCheckpoint{threadID: threadID, nodeID: nodeID, data: data})
	return nil
}
