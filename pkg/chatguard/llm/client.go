// Package llm defines the language model port: a provider-neutral client
// interface with blocking and streaming completion modes, plus concrete
// clients for Anthropic and OpenAI-compatible APIs and a scriptable mock.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Client is the language model port.
// Implementations must be safe for concurrent use.
type Client interface {
	// Complete performs a blocking completion call.
	// Blocks until the full response is available.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Stream performs a streaming completion call.
	// The returned channel delivers a finite, non-restartable sequence of
	// chunks and is closed after the final chunk (Done or Error set).
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)
}

// Error wraps provider failures with the operation and retryability.
type Error struct {
	// Op is the operation that failed ("complete", "stream").
	Op string
	// Err is the underlying error.
	Err error
	// Retryable indicates whether retrying may help.
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a provider error.
func NewError(op string, err error, retryable bool) *Error {
	return &Error{Op: op, Err: err, Retryable: retryable}
}

// IsRetryable reports whether the error looks transient.
// Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}

	return isRetryableMessage(err.Error())
}

// isRetryableMessage matches provider error text that indicates a
// transient condition.
func isRetryableMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range []string{
		"rate limit",
		"rate_limit",
		"overloaded",
		"timeout",
		"timed out",
		"connection refused",
		"connection reset",
		"temporarily unavailable",
		"503",
		"529",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
