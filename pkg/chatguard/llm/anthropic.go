package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
)

// AnthropicClient implements Client using the Anthropic Messages API.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// AnthropicOption configures AnthropicClient.
type AnthropicOption func(*AnthropicClient)

// WithAnthropicModel sets the default model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(c *AnthropicClient) { c.model = model }
}

// WithAnthropicMaxTokens sets the default max_tokens.
func WithAnthropicMaxTokens(n int) AnthropicOption {
	return func(c *AnthropicClient) { c.maxTokens = n }
}

// NewAnthropicClient creates an Anthropic-backed client.
// baseURL overrides the API endpoint when non-empty.
func NewAnthropicClient(apiKey, baseURL string, opts ...AnthropicOption) *AnthropicClient {
	var clientOpts []anthropic.ClientOption
	if baseURL != "" {
		clientOpts = append(clientOpts, anthropic.WithBaseURL(baseURL))
	}

	c := &AnthropicClient{
		client:    anthropic.NewClient(apiKey, clientOpts...),
		model:     string(anthropic.ModelClaude3Dot5SonnetLatest),
		maxTokens: 1024,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete implements Client.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	resp, err := c.client.CreateMessages(ctx, c.buildRequest(req))
	if err != nil {
		return nil, NewError("complete", err, isAnthropicRetryable(err))
	}

	content := resp.GetFirstContentText()
	return &CompletionResponse{
		Content:      content,
		Model:        string(resp.Model),
		FinishReason: string(resp.StopReason),
		Usage: TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		Duration: time.Since(start),
	}, nil
}

// Stream implements Client.
func (c *AnthropicClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	ch := make(chan StreamChunk)

	go func() {
		defer close(ch)

		streamReq := anthropic.MessagesStreamRequest{
			MessagesRequest: c.buildRequest(req),
			OnContentBlockDelta: func(data anthropic.MessagesEventContentBlockDeltaData) {
				text := data.Delta.GetText()
				if text == "" {
					return
				}
				select {
				case ch <- StreamChunk{Content: text}:
				case <-ctx.Done():
				}
			},
		}

		resp, err := c.client.CreateMessagesStream(ctx, streamReq)
		if err != nil {
			ch <- StreamChunk{Error: NewError("stream", err, isAnthropicRetryable(err))}
			return
		}

		ch <- StreamChunk{
			Done: true,
			Usage: &TokenUsage{
				InputTokens:  resp.Usage.InputTokens,
				OutputTokens: resp.Usage.OutputTokens,
				TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
			},
		}
	}()

	return ch, nil
}

// buildRequest translates the port request into the provider request.
func (c *AnthropicClient) buildRequest(req CompletionRequest) anthropic.MessagesRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	messages := make([]anthropic.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantTextMessage(msg.Content))
		default:
			messages = append(messages, anthropic.NewUserTextMessage(msg.Content))
		}
	}

	out := anthropic.MessagesRequest{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: maxTokens,
		System:    req.SystemPrompt,
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		out.Temperature = &temp
	}
	return out
}

// isAnthropicRetryable classifies provider errors.
// Rate limits and overload are transient; auth and validation are not.
func isAnthropicRetryable(err error) bool {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRateLimitErr() || apiErr.IsOverloadedErr()
	}
	return isRetryableMessage(fmt.Sprint(err))
}
