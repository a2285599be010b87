package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrGenerationFailed = errors.New("answer generation failed")
)

// Answer is a generated response to a user question.
type Answer struct {
	// Question is the question as it was put into the prompt
	Question string `json:"question"`

	// Text is the model output, unmodified
	Text string `json:"text"`

	// Model is the LLM model used to generate this answer
	Model string `json:"model"`

	// ContextCount is the number of context passages in the prompt
	ContextCount int `json:"context_count"`

	// Sources lists the documents the context passages came from, if known
	Sources []string `json:"sources,omitempty"`

	// GeneratedAt is when this answer was created
	GeneratedAt time.Time `json:"generated_at"`
}

// Composer produces answers from retrieved context using an LLM.
type Composer struct {
	llm    LLM
	config LLMConfig
}

// NewComposer creates an answer composer with the given LLM implementation.
func NewComposer(llm LLM, config LLMConfig) *Composer {
	return &Composer{
		llm:    llm,
		config: config,
	}
}

// Compose assembles the prompt for question and contexts and invokes the LLM.
// The model's output is returned verbatim in Answer.Text.
func (c *Composer) Compose(ctx context.Context, question string, contexts []string) (*Answer, error) {
	if c.llm == nil {
		return nil, fmt.Errorf("%w: LLM is required", ErrGenerationFailed)
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is required", ErrGenerationFailed)
	}

	prompt := AssemblePrompt(question, contexts)

	text, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: LLM invocation failed: %w", ErrGenerationFailed, err)
	}

	return &Answer{
		Question:     question,
		Text:         text,
		Model:        c.config.Model,
		ContextCount: len(contexts),
		GeneratedAt:  time.Now(),
	}, nil
}
