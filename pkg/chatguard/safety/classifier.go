package safety

import (
	"context"
	"log/slog"

	"github.com/baotvdn/chatguard/pkg/chatguard/llm"
	"github.com/baotvdn/chatguard/pkg/chatguard/observability"
	"github.com/baotvdn/chatguard/pkg/chatguard/state"
)

// Classifier evaluates the latest user message against the safety policy.
//
// The classifier fails open: a transport error or unparseable response
// approves the turn so a transient model outage never blocks legitimate
// conversation. Rejection is only ever driven by an explicit REJECT
// status parsed from the model's answer.
type Classifier struct {
	client   llm.Client
	recorder Recorder
	refusal  string
	model    string
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithRecorder sets the audit sink. Default: NopRecorder.
func WithRecorder(r Recorder) Option {
	return func(c *Classifier) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithRefusal overrides the fixed refusal message.
func WithRefusal(msg string) Option {
	return func(c *Classifier) {
		if msg != "" {
			c.refusal = msg
		}
	}
}

// WithModel sets the model used for classification calls.
func WithModel(model string) Option {
	return func(c *Classifier) { c.model = model }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. Default: no-op.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *Classifier) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewClassifier creates a classifier backed by the given model client.
func NewClassifier(client llm.Client, opts ...Option) *Classifier {
	c := &Classifier{
		client:   client,
		recorder: NopRecorder{},
		refusal:  RefusalMessage,
		logger:   slog.Default(),
		metrics:  observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refusal returns the fixed refusal text this classifier appends on
// rejection.
func (c *Classifier) Refusal() string {
	return c.refusal
}

// Evaluate classifies the turn's trailing message and returns the
// updated turn. It never returns an error: every failure mode degrades
// to approval.
//
// Only user-authored trailing messages are evaluated; anything else
// passes through unchanged. On rejection the verdict and its linked
// QUERY_BLOCKED event are recorded before the routing decision is
// written, and a fixed refusal message is appended as the assistant.
func (c *Classifier) Evaluate(ctx context.Context, userID string, t state.Turn) state.Turn {
	last, ok := t.Last()
	if !ok || last.Role != state.RoleUser {
		t.Decision = state.DecideContinue
		return t
	}

	resp, err := c.client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: InstructionPrompt,
		Model:        c.model,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "User message to analyze: " + last.Content},
		},
	})
	if err != nil {
		// Fail open: no verdict is recorded for this turn.
		c.logger.Warn("safety check unavailable, failing open",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		t.Decision = state.DecideContinue
		return t
	}

	parsed := ParseVerdict(resp.Content)
	verdict := NewVerdict(userID, last.ID, parsed.Status, parsed.Violation, parsed.Reasoning)

	// Audit records are written before the routing decision is used.
	if err := c.recorder.RecordVerdict(ctx, verdict); err != nil {
		observability.LogRecorderError(c.logger, "record_verdict", err)
	}

	observability.LogVerdict(c.logger, userID, string(verdict.Status), string(verdict.Violation))

	if parsed.Status == StatusReject {
		event := NewEvent(verdict.ID, EventQueryBlocked)
		if err := c.recorder.RecordEvent(ctx, event); err != nil {
			observability.LogRecorderError(c.logger, "record_event", err)
		}
		c.metrics.RecordBlockedQuery(ctx, string(verdict.Violation))

		t = t.WithMessage(state.NewMessage(state.RoleAssistant, c.refusal))
		t.Decision = state.DecideHalt
		return t
	}

	t.Decision = state.DecideContinue
	return t
}
