package graph

import (
	"context"

	"github.com/baotvdn/chatguard/pkg/chatguard/observability"
)

// CheckpointSaver persists serialized state after each node execution.
// The thread store satisfies this interface; the engine itself holds no
// durable state.
type CheckpointSaver interface {
	SaveCheckpoint(ctx context.Context, threadID, nodeID string, state []byte) error
}

// runConfig holds configuration for graph execution.
type runConfig struct {
	maxIterations int
	metrics       observability.MetricsRecorder
	saver         CheckpointSaver
	threadID      string
}

// defaultRunConfig returns the default execution configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxIterations: 100,
		metrics:       observability.NoopMetrics{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxIterations sets the maximum number of node executions.
// Default: 100
//
// This prevents a miswired graph from looping forever. If a run exceeds
// this limit, Run returns ErrMaxIterations.
func WithMaxIterations(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithMetrics sets the metrics recorder for the run.
// Default: no-op.
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithCheckpoints enables checkpoint persistence through the given saver,
// keyed by thread ID. Run returns ErrThreadIDRequired if threadID is empty.
func WithCheckpoints(saver CheckpointSaver, threadID string) RunOption {
	return func(c *runConfig) {
		c.saver = saver
		c.threadID = threadID
	}
}
