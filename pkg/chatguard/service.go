package chatguard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/baotvdn/chatguard/pkg/chatguard/graph"
	"github.com/baotvdn/chatguard/pkg/chatguard/llm"
	"github.com/baotvdn/chatguard/pkg/chatguard/observability"
	"github.com/baotvdn/chatguard/pkg/chatguard/responder"
	"github.com/baotvdn/chatguard/pkg/chatguard/safety"
	"github.com/baotvdn/chatguard/pkg/chatguard/state"
	"github.com/baotvdn/chatguard/pkg/chatguard/thread"
)

// Pipeline node identifiers.
const (
	nodeSafety = "safety"
	nodeDomain = "domain"
)

// Service orchestrates turns: it loads thread state, runs the safety and
// domain stages in order, and persists the result.
//
// Callers must ensure at most one in-flight turn per user identity;
// concurrent turns for different users are safe.
type Service struct {
	store      thread.Store
	classifier *safety.Classifier
	responder  *responder.Responder
	pipeline   *graph.CompiledGraph[state.Turn]
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
}

// Option configures a Service.
type Option func(*serviceConfig)

// serviceConfig collects constructor options before wiring.
type serviceConfig struct {
	recorder         safety.Recorder
	refusal          string
	model            string
	maxTokens        int
	classifierClient llm.Client
	logger           *slog.Logger
	metrics          observability.MetricsRecorder
}

// WithRecorder sets the compliance audit sink. Default: discard.
func WithRecorder(r safety.Recorder) Option {
	return func(c *serviceConfig) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithRefusal overrides the fixed refusal message for rejected turns.
func WithRefusal(msg string) Option {
	return func(c *serviceConfig) { c.refusal = msg }
}

// WithModel sets the model for both pipeline stages.
func WithModel(model string) Option {
	return func(c *serviceConfig) { c.model = model }
}

// WithMaxTokens sets the domain responder's completion token budget.
func WithMaxTokens(n int) Option {
	return func(c *serviceConfig) { c.maxTokens = n }
}

// WithClassifierClient routes safety calls through a different client
// than the domain responder. Default: the service's main client.
func WithClassifierClient(client llm.Client) Option {
	return func(c *serviceConfig) { c.classifierClient = client }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. Default: no-op.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *serviceConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// New creates a Service from its dependencies.
// The service does not take ownership of the store or client; close what
// you open.
func New(store thread.Store, client llm.Client, opts ...Option) (*Service, error) {
	cfg := serviceConfig{
		recorder: safety.NopRecorder{},
		logger:   slog.Default(),
		metrics:  observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	classifierClient := cfg.classifierClient
	if classifierClient == nil {
		classifierClient = client
	}

	classifierOpts := []safety.Option{
		safety.WithRecorder(cfg.recorder),
		safety.WithLogger(cfg.logger),
		safety.WithMetrics(cfg.metrics),
		safety.WithModel(cfg.model),
	}
	if cfg.refusal != "" {
		classifierOpts = append(classifierOpts, safety.WithRefusal(cfg.refusal))
	}

	responderOpts := []responder.Option{responder.WithModel(cfg.model)}
	if cfg.maxTokens > 0 {
		responderOpts = append(responderOpts, responder.WithMaxTokens(cfg.maxTokens))
	}

	s := &Service{
		store:      store,
		classifier: safety.NewClassifier(classifierClient, classifierOpts...),
		responder:  responder.New(client, responderOpts...),
		logger:     cfg.logger,
		metrics:    cfg.metrics,
	}

	pipeline, err := s.buildPipeline()
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	s.pipeline = pipeline

	return s, nil
}

// buildPipeline wires the fixed two-node graph:
//
//	safety -> (decision) -> domain -> END
//	               \-> END
//
// The conditional edge reads the explicit decision the safety node wrote
// into the state; it never infers rejection from message shape.
func (s *Service) buildPipeline() (*graph.CompiledGraph[state.Turn], error) {
	return graph.New[state.Turn]().
		AddNode(nodeSafety, s.safetyNode).
		AddNode(nodeDomain, s.domainNode).
		AddConditionalEdge(nodeSafety, s.route).
		AddEdge(nodeDomain, graph.END).
		SetEntry(nodeSafety).
		Compile()
}

// safetyNode runs the classifier. It never fails the turn.
func (s *Service) safetyNode(ctx graph.Context, t state.Turn) (state.Turn, error) {
	return s.classifier.Evaluate(ctx, t.UserID, t), nil
}

// domainNode runs the responder on the unmodified turn.
func (s *Service) domainNode(ctx graph.Context, t state.Turn) (state.Turn, error) {
	return s.responder.Respond(ctx, t)
}

// route terminates the turn when the safety stage decided to halt.
func (s *Service) route(_ graph.Context, t state.Turn) string {
	if t.Decision == state.DecideHalt {
		return graph.END
	}
	return nodeDomain
}

// Respond submits a turn and blocks until the full reply is available.
//
// The user message is persisted before the pipeline runs and remains
// persisted even when the turn fails; exactly one assistant message is
// appended on success (the reply or the fixed refusal).
func (s *Service) Respond(ctx context.Context, userID, text string) (string, error) {
	turn, err := s.beginTurn(ctx, userID, text)
	if err != nil {
		return "", err
	}

	gctx := graph.NewContext(ctx, graph.WithLogger(s.logger))
	observability.LogTurnStart(s.logger, gctx.RunID(), userID)

	result, err := s.pipeline.Run(gctx, turn,
		graph.WithMetrics(s.metrics),
		graph.WithCheckpoints(s.store, userID),
	)
	if err != nil {
		return "", &TurnError{UserID: userID, Stage: "respond", Err: err}
	}

	last, ok := result.Last()
	if !ok || last.Role != state.RoleAssistant {
		return "", &TurnError{UserID: userID, Stage: "respond",
			Err: fmt.Errorf("pipeline produced no assistant message")}
	}

	if err := s.store.Append(ctx, userID, last); err != nil {
		return "", &TurnError{UserID: userID, Stage: "persist", Err: err}
	}

	return last.Content, nil
}

// History returns the thread's messages, oldest first.
// A positive limit keeps only the last limit entries.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]state.Message, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	msgs, err := s.store.Messages(ctx, userID)
	if err != nil {
		return nil, &TurnError{UserID: userID, Stage: "load", Err: err}
	}

	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// Clear removes all messages and resets the thread's checkpoint.
// Clearing an empty thread is a no-op success.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}

	if err := s.store.Clear(ctx, userID); err != nil {
		return &TurnError{UserID: userID, Stage: "clear", Err: err}
	}
	return nil
}

// beginTurn validates the request, persists the user message, and builds
// the initial turn state.
func (s *Service) beginTurn(ctx context.Context, userID, text string) (state.Turn, error) {
	if userID == "" {
		return state.Turn{}, ErrEmptyUserID
	}
	if strings.TrimSpace(text) == "" {
		return state.Turn{}, ErrEmptyMessage
	}

	history, err := s.store.Messages(ctx, userID)
	if err != nil {
		return state.Turn{}, &TurnError{UserID: userID, Stage: "load", Err: err}
	}

	user := state.NewMessage(state.RoleUser, text)
	if err := s.store.Append(ctx, userID, user); err != nil {
		return state.Turn{}, &TurnError{UserID: userID, Stage: "persist", Err: err}
	}

	return state.Turn{
		UserID:   userID,
		Messages: append(history, user),
		Current:  &user,
	}, nil
}
