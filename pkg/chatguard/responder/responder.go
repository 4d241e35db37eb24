// Package responder implements the domain response stage: it forwards
// the full thread history to the language model and appends the reply.
// It has no safety awareness; all gating happens upstream.
package responder

import (
	"context"

	"github.com/baotvdn/chatguard/pkg/chatguard/llm"
	"github.com/baotvdn/chatguard/pkg/chatguard/state"
)

// Responder generates the assistant reply for a turn.
type Responder struct {
	client    llm.Client
	model     string
	maxTokens int
}

// Option configures a Responder.
type Option func(*Responder)

// WithModel sets the model used for domain calls.
func WithModel(model string) Option {
	return func(r *Responder) { r.model = model }
}

// WithMaxTokens sets the completion token budget.
func WithMaxTokens(n int) Option {
	return func(r *Responder) {
		if n > 0 {
			r.maxTokens = n
		}
	}
}

// New creates a responder backed by the given model client.
func New(client llm.Client, opts ...Option) *Responder {
	r := &Responder{client: client}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond generates a reply from the full message history and returns
// the turn with the assistant message appended.
func (r *Responder) Respond(ctx context.Context, t state.Turn) (state.Turn, error) {
	resp, err := r.client.Complete(ctx, r.buildRequest(t.Messages))
	if err != nil {
		return t, err
	}

	return t.WithMessage(state.NewMessage(state.RoleAssistant, resp.Content)), nil
}

// Stream starts a streaming reply from the full message history.
// The returned channel is the model's raw chunk sequence; accumulation
// and persistence belong to the streaming bridge.
func (r *Responder) Stream(ctx context.Context, history []state.Message) (<-chan llm.StreamChunk, error) {
	return r.client.Stream(ctx, r.buildRequest(history))
}

// buildRequest converts thread history into a completion request.
func (r *Responder) buildRequest(history []state.Message) llm.CompletionRequest {
	messages := make([]llm.Message, 0, len(history))
	for _, msg := range history {
		messages = append(messages, llm.Message{
			Role:    llm.Role(msg.Role),
			Content: msg.Content,
		})
	}

	return llm.CompletionRequest{
		Messages:  messages,
		Model:     r.model,
		MaxTokens: r.maxTokens,
	}
}
