package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records pipeline metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordTurn records a completed turn with its outcome and duration.
	RecordTurn(ctx context.Context, success bool, duration time.Duration)

	// RecordNodeExecution records a node execution with its duration and
	// error status.
	RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error)

	// RecordBlockedQuery records a safety rejection with its violation type.
	RecordBlockedQuery(ctx context.Context, violationType string)

	// RecordStreamChunks records the number of fragments delivered for a
	// streamed turn.
	RecordStreamChunks(ctx context.Context, count int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	turns          metric.Int64Counter
	turnLatency    metric.Float64Histogram
	nodeExecutions metric.Int64Counter
	nodeLatency    metric.Float64Histogram
	nodeErrors     metric.Int64Counter
	blockedQueries metric.Int64Counter
	streamChunks   metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("chatguard")

	turns, err := meter.Int64Counter("chatguard.turns",
		metric.WithDescription("Number of completed turns"),
	)
	if err != nil {
		return nil, err
	}

	turnLatency, err := meter.Float64Histogram("chatguard.turn.latency_ms",
		metric.WithDescription("Turn latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	nodeExecutions, err := meter.Int64Counter("chatguard.node.executions",
		metric.WithDescription("Number of node executions"),
	)
	if err != nil {
		return nil, err
	}

	nodeLatency, err := meter.Float64Histogram("chatguard.node.latency_ms",
		metric.WithDescription("Node execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	nodeErrors, err := meter.Int64Counter("chatguard.node.errors",
		metric.WithDescription("Number of node execution errors"),
	)
	if err != nil {
		return nil, err
	}

	blockedQueries, err := meter.Int64Counter("chatguard.safety.blocked",
		metric.WithDescription("Number of queries blocked by the safety stage"),
	)
	if err != nil {
		return nil, err
	}

	streamChunks, err := meter.Int64Histogram("chatguard.stream.chunks",
		metric.WithDescription("Fragments delivered per streamed turn"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		turns:          turns,
		turnLatency:    turnLatency,
		nodeExecutions: nodeExecutions,
		nodeLatency:    nodeLatency,
		nodeErrors:     nodeErrors,
		blockedQueries: blockedQueries,
		streamChunks:   streamChunks,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordTurn records a completed turn.
func (m *otelMetrics) RecordTurn(ctx context.Context, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.turns.Add(ctx, 1, attrs)
	m.turnLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordNodeExecution records a node execution.
func (m *otelMetrics) RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("node_id", nodeID))
	m.nodeExecutions.Add(ctx, 1, attrs)
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.nodeErrors.Add(ctx, 1, attrs)
	}
}

// RecordBlockedQuery records a safety rejection.
func (m *otelMetrics) RecordBlockedQuery(ctx context.Context, violationType string) {
	m.blockedQueries.Add(ctx, 1,
		metric.WithAttributes(attribute.String("violation_type", violationType)))
}

// RecordStreamChunks records fragment counts for a streamed turn.
func (m *otelMetrics) RecordStreamChunks(ctx context.Context, count int64) {
	m.streamChunks.Record(ctx, count)
}
