package answer

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockLLM is a deterministic LLM implementation for testing.
// It returns predictable responses based on prompt content.
type MockLLM struct {
	// Response is the fixed text returned by Generate.
	// If empty, a default response is generated from the prompt.
	Response string

	// Error, if set, is returned by Generate instead of a response.
	Error error

	// LastPrompt stores the most recent prompt passed to Generate.
	LastPrompt string

	mu    sync.Mutex
	calls int
}

// NewMockLLM creates a mock LLM with the given fixed response.
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

// NewMockLLMWithError creates a mock LLM that always returns an error.
func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Error: err}
}

// Generate returns the configured response or generates a deterministic one.
func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastPrompt = prompt
	m.calls++

	if m.Error != nil {
		return "", m.Error
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if m.Response != "" {
		return m.Response, nil
	}

	return generateMockResponse(prompt), nil
}

// Calls returns how many times Generate was invoked.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// generateMockResponse echoes the question and the size of the context block.
func generateMockResponse(prompt string) string {
	question := "unknown"
	if _, after, ok := strings.Cut(prompt, "Question: "); ok {
		question, _, _ = strings.Cut(after, "\n")
		question = strings.TrimSpace(question)
	}

	contextLines := 0
	if _, after, ok := strings.Cut(prompt, "Context:\n"); ok {
		block, _, _ := strings.Cut(after, "\n\nQuestion: ")
		if strings.TrimSpace(block) != "" {
			contextLines = len(strings.Split(block, "\n"))
		}
	}

	return fmt.Sprintf("Answer to %q based on %d context lines.", question, contextLines)
}
