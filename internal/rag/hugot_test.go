package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeModelName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Empty uses default", "", DefaultLocalModel},
		{"Whitespace uses default", "   ", DefaultLocalModel},
		{"Short name gets hub prefix", "all-MiniLM-L6-v2", "sentence-transformers/all-MiniLM-L6-v2"},
		{"Qualified name is kept", "BAAI/bge-small-en-v1.5", "BAAI/bge-small-en-v1.5"},
		{"Surrounding space trimmed", " all-mpnet-base-v2 ", "sentence-transformers/all-mpnet-base-v2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeModelName(tt.in))
		})
	}
}

func TestPrepareModel(t *testing.T) {
	t.Run("Return existing model path when model exists", func(t *testing.T) {
		dir := t.TempDir()
		modelPath := filepath.Join(dir, "test_mock-model")
		require.NoError(t, os.MkdirAll(modelPath, 0o750))

		path, err := prepareModel("test/mock-model", dir)

		require.NoError(t, err)
		assert.Equal(t, modelPath, path)
	})

	t.Run("Model name with several slashes is sanitized", func(t *testing.T) {
		dir := t.TempDir()
		modelPath := filepath.Join(dir, "org_team_model")
		require.NoError(t, os.MkdirAll(modelPath, 0o750))

		path, err := prepareModel("org/team/model", dir)

		require.NoError(t, err)
		assert.Equal(t, modelPath, path)
	})

	t.Run("Unusable model directory", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "not-a-dir")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

		_, err := prepareModel("test/mock-model", blocker)

		assert.Error(t, err)
	})
}

func TestHugotEmbedder_Embed(t *testing.T) {
	ctx := context.Background()

	fake := func(texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = Vector{float32(len(text)), 1}
		}
		return out, nil
	}

	t.Run("Records follow input order", func(t *testing.T) {
		e := &HugotEmbedder{run: fake, model: DefaultLocalModel, dimension: 2}

		records, err := e.Embed(ctx, []string{"a", "bbb"})

		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "bbb", records[1].Text)
		assert.Equal(t, 1, records[1].Index)
		assert.Equal(t, Vector{3, 1}, records[1].Embedding)
		assert.Equal(t, DefaultLocalModel, records[0].Model)
	})

	t.Run("Empty batch", func(t *testing.T) {
		e := &HugotEmbedder{run: fake}

		_, err := e.Embed(ctx, nil)

		assert.ErrorIs(t, err, ErrEmptyTexts)
	})

	t.Run("Count mismatch", func(t *testing.T) {
		e := &HugotEmbedder{run: func(texts []string) ([][]float32, error) {
			return [][]float32{{1}}, nil
		}}

		_, err := e.Embed(ctx, []string{"a", "b"})

		assert.ErrorIs(t, err, ErrEmbeddingFailed)
	})

	t.Run("Pipeline error", func(t *testing.T) {
		e := &HugotEmbedder{run: func(texts []string) ([][]float32, error) {
			return nil, errors.New("onnx failure")
		}}

		_, err := e.Embed(ctx, []string{"a"})

		assert.ErrorIs(t, err, ErrEmbeddingFailed)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		called := false
		e := &HugotEmbedder{run: func(texts []string) ([][]float32, error) {
			called = true
			return fake(texts)
		}}

		_, err := e.Embed(cctx, []string{"a"})

		assert.ErrorIs(t, err, ErrEmbeddingFailed)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})
}

func TestHugotEmbedder_CloseWithoutSession(t *testing.T) {
	e := &HugotEmbedder{}

	assert.NoError(t, e.Close())
}

func TestNewHugotEmbedder(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping model download in short mode")
	}

	e, err := NewHugotEmbedder("all-MiniLM-L6-v2", t.TempDir())
	if err != nil {
		// Depends on network access to the model hub
		t.Skipf("local model unavailable: %v", err)
	}
	defer e.Close()

	assert.Equal(t, DefaultLocalModel, e.GetModel())
	assert.Equal(t, 384, e.GetDimension())

	records, err := e.Embed(context.Background(), []string{"cats are mammals", "cats are animals", "the stock market fell"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	near := CosineSimilarity(records[0].Embedding, records[1].Embedding)
	far := CosineSimilarity(records[0].Embedding, records[2].Embedding)
	assert.Greater(t, near, far)
}
