package rag

import (
	"context"
	"fmt"
	"strings"
)

// Retriever provides high-level semantic retrieval over an Index.
type Retriever struct {
	embedder Embedder
	index    *Index
}

// NewRetriever creates a new Retriever instance.
func NewRetriever(embedder Embedder, index *Index) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("index cannot be nil")
	}

	return &Retriever{
		embedder: embedder,
		index:    index,
	}, nil
}

// RetrieveContextForQuery performs semantic search using a free-text query.
func (r *Retriever) RetrieveContextForQuery(ctx context.Context, query string, topK int) ([]ContextChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", ErrRetrieval, topK)
	}

	// Generate embedding for the query
	embeddingRecords, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddingRecords) == 0 {
		return nil, fmt.Errorf("%w: no embedding generated for query", ErrEmbeddingFailed)
	}

	queryVector := embeddingRecords[0].Embedding

	// Perform vector similarity search
	chunks, err := r.index.Search(queryVector, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search for query: %w", err)
	}

	return chunks, nil
}
