package cmd

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yates-Labs/coursebot/internal/chatbot"
	"github.com/Yates-Labs/coursebot/internal/config"
	"github.com/Yates-Labs/coursebot/internal/rag"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.OpenAIAPIKey = "sk-test"
	cfg.EmbeddingProvider = config.ProviderLexical
	return cfg
}

func TestNewEmbedder(t *testing.T) {
	t.Run("Lexical", func(t *testing.T) {
		cfg := testConfig()
		cfg.EmbeddingDimension = 256

		e, closeFn, err := newEmbedder(cfg)

		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &rag.LexicalEmbedder{}, e)
		assert.Equal(t, 256, e.GetDimension())
	})

	t.Run("OpenAI", func(t *testing.T) {
		cfg := testConfig()
		cfg.EmbeddingProvider = config.ProviderOpenAI
		cfg.EmbeddingModel = "text-embedding-3-small"

		e, closeFn, err := newEmbedder(cfg)

		require.NoError(t, err)
		defer closeFn()
		assert.Equal(t, "text-embedding-3-small", e.GetModel())
	})
}

func TestNewSystem(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("Builds an uninitialized system", func(t *testing.T) {
		sys, closeFn, err := newSystem(testConfig(), logger)

		require.NoError(t, err)
		defer closeFn()
		assert.Equal(t, chatbot.StateUninitialized, sys.State())
	})

	t.Run("Missing API key", func(t *testing.T) {
		cfg := testConfig()
		cfg.OpenAIAPIKey = ""

		_, _, err := newSystem(cfg, logger)

		assert.Error(t, err)
	})
}

func TestRenderBanner(t *testing.T) {
	cfg := testConfig()

	banner := renderBanner(cfg)

	assert.Contains(t, banner, "http://127.0.0.1:5000/chat")
	assert.Contains(t, banner, "POST")
	assert.Contains(t, banner, `{"question": "your question here"}`)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short text", truncate("short   text", 20))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.True(t, strings.HasSuffix(truncate(strings.Repeat("é", 10), 4), "..."))
}
