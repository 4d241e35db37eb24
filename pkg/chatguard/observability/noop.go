package observability

import (
	"context"
	"time"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordTurn does nothing.
func (NoopMetrics) RecordTurn(_ context.Context, _ bool, _ time.Duration) {}

// RecordNodeExecution does nothing.
func (NoopMetrics) RecordNodeExecution(_ context.Context, _ string, _ time.Duration, _ error) {}

// RecordBlockedQuery does nothing.
func (NoopMetrics) RecordBlockedQuery(_ context.Context, _ string) {}

// RecordStreamChunks does nothing.
func (NoopMetrics) RecordStreamChunks(_ context.Context, _ int64) {}
