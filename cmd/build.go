package cmd

import (
	"fmt"
	"log/slog"

	"github.com/Yates-Labs/coursebot/internal/answer"
	"github.com/Yates-Labs/coursebot/internal/chatbot"
	"github.com/Yates-Labs/coursebot/internal/config"
	"github.com/Yates-Labs/coursebot/internal/ingest/web"
	"github.com/Yates-Labs/coursebot/internal/rag"
)

// newEmbedder creates the embedder selected by EMBEDDING_PROVIDER. The
// returned close function releases any model runtime.
func newEmbedder(cfg config.Config) (rag.Embedder, func() error, error) {
	noop := func() error { return nil }

	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		e, err := rag.NewOpenAIEmbedder(rag.OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.OpenAIBaseURL,
			Model:     cfg.EmbeddingModel,
			Dimension: cfg.EmbeddingDimension,
			Timeout:   cfg.LLMTimeout,
		})
		return e, noop, err
	case config.ProviderLexical:
		return rag.NewLexicalEmbedder(cfg.EmbeddingDimension), noop, nil
	default:
		e, err := rag.NewHugotEmbedder(cfg.EmbeddingModel, cfg.ModelDir)
		if err != nil {
			return nil, noop, err
		}
		return e, e.Close, nil
	}
}

// newSystem wires the fetcher, embedder and LLM into an uninitialized chatbot.
func newSystem(cfg config.Config, logger *slog.Logger) (*chatbot.System, func() error, error) {
	embedder, closeEmbedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	llmConfig := answer.LLMConfig{
		Model:       cfg.LLMModel,
		Temperature: float32(cfg.Temperature),
		MaxTokens:   cfg.MaxTokens,
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Timeout:     cfg.LLMTimeout,
	}
	llm, err := answer.NewOpenAILLM(llmConfig)
	if err != nil {
		_ = closeEmbedder()
		return nil, nil, fmt.Errorf("failed to create LLM: %w", err)
	}

	sys, err := chatbot.New(chatbot.Deps{
		Fetcher:  web.NewHTTPFetcher(cfg.ScrapeTimeout),
		Embedder: embedder,
		LLM:      llm,
		LLMModel: cfg.LLMModel,
		Logger:   logger,
	}, chatbot.Options{
		SourceURLs:       cfg.SourceURLs,
		ChunkSize:        cfg.ChunkSize,
		ChunkOverlap:     cfg.ChunkOverlap,
		BatchSize:        cfg.EmbeddingBatchSize,
		TopK:             cfg.TopK,
		FetchConcurrency: chatbot.DefaultOptions().FetchConcurrency,
	})
	if err != nil {
		_ = closeEmbedder()
		return nil, nil, fmt.Errorf("failed to create chatbot: %w", err)
	}

	return sys, closeEmbedder, nil
}
