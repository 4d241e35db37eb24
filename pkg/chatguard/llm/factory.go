package llm

import (
	"fmt"
	"strings"
)

// NewClient creates a Client for the named provider.
//
// Supported providers:
//   - "anthropic": Anthropic Messages API
//   - "openai":    OpenAI chat completions
//   - "ollama":    local Ollama via its OpenAI-compatible endpoint
//   - "mock":      scripted mock (no network)
func NewClient(provider, apiKey, model, baseURL string) (Client, error) {
	switch strings.ToLower(provider) {
	case "anthropic":
		var opts []AnthropicOption
		if model != "" {
			opts = append(opts, WithAnthropicModel(model))
		}
		return NewAnthropicClient(apiKey, baseURL, opts...), nil

	case "openai":
		return NewOpenAIClient(apiKey, model, baseURL), nil

	case "ollama":
		// Ollama ignores the API key but the client config requires one.
		if apiKey == "" {
			apiKey = "ollama"
		}
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		} else if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		return NewOpenAIClient(apiKey, model, baseURL), nil

	case "mock":
		return NewMockClient("This is a mock response."), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
