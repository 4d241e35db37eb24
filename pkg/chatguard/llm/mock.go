package llm

import (
	"context"
	"strings"
	"sync"
)

// MockClient is a scriptable Client for tests and local development.
// It returns fixed or sequential responses and records every request.
type MockClient struct {
	mu        sync.Mutex
	responses []string
	index     int
	err       error

	// Streaming script
	chunkSize int
	failAfter int // emit this many chunks, then fail (0 = never)
	streamErr error

	// Calls records every request, in order.
	Calls []CompletionRequest
}

// NewMockClient creates a mock that always returns response.
func NewMockClient(response string) *MockClient {
	return &MockClient{
		responses: []string{response},
		chunkSize: 8,
	}
}

// WithResponses sets sequential responses, cycling when exhausted.
func (m *MockClient) WithResponses(responses ...string) *MockClient {
	m.responses = responses
	m.index = 0
	return m
}

// WithError makes every call fail with err.
func (m *MockClient) WithError(err error) *MockClient {
	m.err = err
	return m
}

// WithChunkSize sets the streaming chunk size in bytes. Default: 8.
func (m *MockClient) WithChunkSize(n int) *MockClient {
	if n > 0 {
		m.chunkSize = n
	}
	return m
}

// WithStreamFailure makes Stream emit n chunks and then fail with err.
func (m *MockClient) WithStreamFailure(n int, err error) *MockClient {
	m.failAfter = n
	m.streamErr = err
	return m
}

// Complete implements Client.
func (m *MockClient) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if m.err != nil {
		return nil, m.err
	}

	content := m.next()
	return &CompletionResponse{
		Content:      content,
		Model:        "mock",
		FinishReason: "stop",
		Usage: TokenUsage{
			OutputTokens: len(content),
			TotalTokens:  len(content),
		},
	}, nil
}

// Stream implements Client.
// The response is split into fixed-size chunks; a WithStreamFailure script
// truncates the sequence with an error chunk.
func (m *MockClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)

	if m.err != nil {
		m.mu.Unlock()
		return nil, m.err
	}

	content := m.next()
	chunkSize := m.chunkSize
	failAfter := m.failAfter
	streamErr := m.streamErr
	m.mu.Unlock()

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)

		sent := 0
		for pos := 0; pos < len(content); pos += chunkSize {
			if failAfter > 0 && sent >= failAfter {
				ch <- StreamChunk{Error: streamErr}
				return
			}

			end := pos + chunkSize
			if end > len(content) {
				end = len(content)
			}

			select {
			case ch <- StreamChunk{Content: content[pos:end]}:
				sent++
			case <-ctx.Done():
				ch <- StreamChunk{Error: ctx.Err()}
				return
			}
		}

		ch <- StreamChunk{
			Done: true,
			Usage: &TokenUsage{
				OutputTokens: len(content),
				TotalTokens:  len(content),
			},
		}
	}()

	return ch, nil
}

// CallCount returns the number of requests received.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or nil if none.
func (m *MockClient) LastCall() *CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	call := m.Calls[len(m.Calls)-1]
	return &call
}

// LastPrompt returns the concatenated user content of the most recent
// request, for convenient assertions.
func (m *MockClient) LastPrompt() string {
	call := m.LastCall()
	if call == nil {
		return ""
	}
	var parts []string
	for _, msg := range call.Messages {
		if msg.Role == RoleUser {
			parts = append(parts, msg.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// next returns the current scripted response and advances the cycle.
// Caller must hold m.mu.
func (m *MockClient) next() string {
	if len(m.responses) == 0 {
		return ""
	}
	content := m.responses[m.index%len(m.responses)]
	m.index++
	return content
}
