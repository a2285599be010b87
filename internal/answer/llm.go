// Package answer turns retrieved corpus context and a user question into a
// grounded answer. It defines a provider-agnostic LLM interface with an OpenAI
// implementation and a deterministic mock for testing, the fixed prompt
// template, and the Composer that ties them together.
package answer

import (
	"context"
	"errors"
	"time"
)

var (
	ErrLLMFailed     = errors.New("LLM request failed")
	ErrInvalidConfig = errors.New("invalid LLM configuration")
)

// LLM defines the interface for interacting with language models.
// Implementations must be stateless and thread-safe.
type LLM interface {
	// Generate produces text from a prompt using the configured model.
	// Returns the generated text or an error if generation fails.
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMConfig holds common configuration options for LLM providers.
type LLMConfig struct {
	// Model specifies the model identifier (e.g., "gpt-4o-mini")
	Model string

	// Temperature controls randomness (0.0 = deterministic, 2.0 = very random)
	Temperature float32

	// MaxTokens limits the response length (0 = use provider default)
	MaxTokens int

	// APIKey is the authentication key for the provider
	APIKey string

	// BaseURL overrides the provider endpoint (empty = provider default)
	BaseURL string

	// Timeout bounds a single generation call (0 = no client-side limit)
	Timeout time.Duration
}

// DefaultLLMConfig returns the defaults used for answering questions.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		Timeout:     60 * time.Second,
	}
}
