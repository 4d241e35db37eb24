// Package retry handles transient language model failures with
// exponential backoff and jitter.
//
// The Client decorator retries blocking completions and the initial
// stream call. Once a stream has started delivering chunks it is not
// restarted; partial output handling belongs to the streaming bridge.
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/baotvdn/chatguard/pkg/chatguard/llm"
)

// Config configures retry behavior.
type Config struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	MaxAttempts int

	// InitialBackoff is the starting backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied to backoff after each attempt.
	BackoffFactor float64

	// Jitter is the random jitter factor (0.0-1.0).
	Jitter float64

	// RetryableFunc optionally overrides the default retryability check.
	RetryableFunc func(error) bool
}

// Default is the standard retry configuration.
var Default = Config{
	MaxAttempts:    3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// None disables retries.
var None = Config{
	MaxAttempts: 1,
}

// Do executes fn with retries, respecting context cancellation.
// Only errors the retryable check accepts are retried; by default that
// is llm.IsRetryable.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	isRetryable := cfg.RetryableFunc
	if isRetryable == nil {
		isRetryable = llm.IsRetryable
	}

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	backoff := cfg.InitialBackoff
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return zero, err
		}

		// Don't sleep after the last attempt.
		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(withJitter(backoff, cfg.Jitter)):
			}

			backoff = time.Duration(float64(backoff) * cfg.BackoffFactor)
			if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}
		}
	}

	return zero, lastErr
}

// withJitter returns the backoff duration with jitter applied.
func withJitter(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return base
	}

	// base +/- (base * jitter * random)
	amount := float64(base) * jitter * (rand.Float64()*2 - 1)
	return time.Duration(float64(base) + amount)
}

// Client wraps an llm.Client with retry behavior.
type Client struct {
	inner llm.Client
	cfg   Config
}

// Compile-time interface check.
var _ llm.Client = (*Client)(nil)

// Wrap decorates client with the given retry configuration.
func Wrap(client llm.Client, cfg Config) *Client {
	return &Client{inner: client, cfg: cfg}
}

// Complete implements llm.Client with retries.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return Do(ctx, c.cfg, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return c.inner.Complete(ctx, req)
	})
}

// Stream implements llm.Client, retrying only the initial call.
// Chunks already delivered cannot be replayed, so mid-stream failures
// pass through to the consumer.
func (c *Client) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return Do(ctx, c.cfg, func(ctx context.Context) (<-chan llm.StreamChunk, error) {
		return c.inner.Stream(ctx, req)
	})
}
