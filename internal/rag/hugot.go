package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
)

// DefaultLocalModel is the sentence transformer used when no model is configured.
// It produces 384-dimensional embeddings.
const DefaultLocalModel = "sentence-transformers/all-MiniLM-L6-v2"

// HugotEmbedder runs a sentence transformer locally through a hugot
// feature-extraction pipeline.
type HugotEmbedder struct {
	session   *hugot.Session
	run       func(texts []string) ([][]float32, error)
	model     string
	dimension int
}

// NewHugotEmbedder prepares the model (downloading it into modelDir if needed),
// starts a pure Go hugot session and probes the embedding dimension.
func NewHugotEmbedder(model, modelDir string) (*HugotEmbedder, error) {
	model = normalizeModelName(model)

	modelPath, err := prepareModel(model, modelDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create hugot session: %w", ErrEmbeddingFailed, err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "coursebot-embedder",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("%w: failed to create embedding pipeline: %w (cleanup error: %v)", ErrEmbeddingFailed, err, destroyErr)
		}
		return nil, fmt.Errorf("%w: failed to create embedding pipeline: %w", ErrEmbeddingFailed, err)
	}

	e := &HugotEmbedder{
		session: session,
		model:   model,
		run: func(texts []string) ([][]float32, error) {
			result, err := pipeline.RunPipeline(texts)
			if err != nil {
				return nil, err
			}
			return result.Embeddings, nil
		},
	}

	probe, err := e.run([]string{"dimension probe"})
	if err != nil || len(probe) == 0 {
		_ = e.Close()
		return nil, fmt.Errorf("%w: model %s produced no embedding: %v", ErrEmbeddingFailed, model, err)
	}
	e.dimension = len(probe[0])

	return e, nil
}

// GetModel returns the embedding model identifier
func (e *HugotEmbedder) GetModel() string {
	return e.model
}

// GetDimension returns the embedding vector dimension
func (e *HugotEmbedder) GetDimension() int {
	return e.dimension
}

// Embed generates embeddings for the provided texts with the local model.
func (e *HugotEmbedder) Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}

	embeddings, err := e.run(texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingFailed, len(texts), len(embeddings))
	}

	records := make([]EmbeddingRecord, len(texts))
	for i, embedding := range embeddings {
		records[i] = EmbeddingRecord{
			Text:      texts[i],
			Embedding: embedding,
			Index:     i,
			Model:     e.model,
		}
	}
	return records, nil
}

// Close releases the hugot session.
func (e *HugotEmbedder) Close() error {
	if e.session != nil {
		return e.session.Destroy()
	}
	return nil
}

// normalizeModelName maps short sentence-transformers names such as
// "all-MiniLM-L6-v2" to their hub identifier.
func normalizeModelName(model string) string {
	model = strings.TrimSpace(model)
	if model == "" {
		return DefaultLocalModel
	}
	if !strings.Contains(model, "/") {
		return "sentence-transformers/" + model
	}
	return model
}

// prepareModel downloads the model if it doesn't exist and returns the model path
func prepareModel(model, modelDir string) (string, error) {
	if modelDir == "" {
		modelDir = "./models"
	}
	modelPath := filepath.Join(modelDir, strings.ReplaceAll(model, "/", "_"))

	if _, err := os.Stat(modelPath); err == nil {
		return modelPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to stat model directory: %w", err)
	}

	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}
	downloadOptions := hugot.NewDownloadOptions()
	downloadOptions.OnnxFilePath = "onnx/model.onnx"
	downloadedPath, err := hugot.DownloadModel(model, modelDir, downloadOptions)
	if err != nil {
		return "", fmt.Errorf("failed to download model %s: %w", model, err)
	}
	return downloadedPath, nil
}
