// Package observability provides structured logging and metrics for the
// turn pipeline.
//
// Logging uses slog (Go stdlib). Metrics use OpenTelemetry and fall back
// to a no-op recorder when disabled or when initialization fails.
package observability

import (
	"log/slog"
	"time"
)

// LogTurnStart logs the start of a turn execution.
func LogTurnStart(logger *slog.Logger, runID, userID string) {
	if logger == nil {
		return
	}
	logger.Info("turn starting",
		slog.String("run_id", runID),
		slog.String("user_id", userID),
	)
}

// LogTurnComplete logs successful turn completion.
func LogTurnComplete(logger *slog.Logger, runID string, durationMs float64, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("turn completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("nodes_executed", nodeCount),
	)
}

// LogTurnError logs turn failure.
func LogTurnError(logger *slog.Logger, runID string, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("turn failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs node execution error.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogCheckpoint logs checkpoint creation.
func LogCheckpoint(logger *slog.Logger, threadID, nodeID string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.String("thread_id", threadID),
		slog.String("node_id", nodeID),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogVerdict logs a safety verdict.
func LogVerdict(logger *slog.Logger, userID, status, violation string) {
	if logger == nil {
		return
	}
	logger.Info("safety verdict",
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("violation_type", violation),
	)
}

// LogRecorderError logs an audit-sink failure.
// Recorder failures never block turn completion, so they only surface here.
func LogRecorderError(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("audit record failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in
// milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
