package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMockClient_Complete tests the fixed-response path.
func TestMockClient_Complete(t *testing.T) {
	client := NewMockClient("hello")

	resp, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "mock", resp.Model)
	assert.Equal(t, 1, client.CallCount())
	assert.Equal(t, "hi", client.LastPrompt())
}

// TestMockClient_ResponseCycling tests sequential responses wrapping around.
func TestMockClient_ResponseCycling(t *testing.T) {
	client := NewMockClient("").WithResponses("one", "two")
	ctx := context.Background()

	for _, want := range []string{"one", "two", "one"} {
		resp, err := client.Complete(ctx, CompletionRequest{})
		require.NoError(t, err)
		assert.Equal(t, want, resp.Content)
	}
}

// TestMockClient_WithError tests scripted failures.
func TestMockClient_WithError(t *testing.T) {
	scriptErr := errors.New("scripted failure")
	client := NewMockClient("unused").WithError(scriptErr)

	_, err := client.Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, scriptErr)

	_, err = client.Stream(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, scriptErr)
}

// TestMockClient_Stream tests chunking and the terminal Done chunk.
func TestMockClient_Stream(t *testing.T) {
	client := NewMockClient("abcdefghij").WithChunkSize(4)

	chunks, err := client.Stream(context.Background(), CompletionRequest{})
	require.NoError(t, err)

	var contents []string
	var sawDone bool
	for chunk := range chunks {
		require.NoError(t, chunk.Error)
		if chunk.Done {
			sawDone = true
			require.NotNil(t, chunk.Usage)
			assert.Equal(t, 10, chunk.Usage.OutputTokens)
			continue
		}
		contents = append(contents, chunk.Content)
	}

	assert.True(t, sawDone)
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, contents)
}

// TestMockClient_StreamFailure tests scripted mid-stream failure.
func TestMockClient_StreamFailure(t *testing.T) {
	streamErr := errors.New("connection dropped")
	client := NewMockClient("abcdefghij").
		WithChunkSize(2).
		WithStreamFailure(3, streamErr)

	chunks, err := client.Stream(context.Background(), CompletionRequest{})
	require.NoError(t, err)

	var delivered int
	var gotErr error
	for chunk := range chunks {
		if chunk.Error != nil {
			gotErr = chunk.Error
			break
		}
		delivered++
	}

	assert.Equal(t, 3, delivered)
	assert.ErrorIs(t, gotErr, streamErr)
}

// TestMockClient_RecordsRequests tests call capture for assertions.
func TestMockClient_RecordsRequests(t *testing.T) {
	client := NewMockClient("ok")
	ctx := context.Background()

	_, err := client.Complete(ctx, CompletionRequest{Model: "m1"})
	require.NoError(t, err)
	_, err = client.Complete(ctx, CompletionRequest{Model: "m2"})
	require.NoError(t, err)

	assert.Equal(t, 2, client.CallCount())
	assert.Equal(t, "m2", client.LastCall().Model)
	assert.Equal(t, "m1", client.Calls[0].Model)
}
