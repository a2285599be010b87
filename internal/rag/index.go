package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDimension is returned when embeddings in one corpus disagree on length.
var ErrInvalidDimension = errors.New("invalid vector dimension")

// Index is the in-memory retrieval corpus: chunks and their vectors,
// index-aligned. It is immutable once built.
type Index struct {
	chunks    []Chunk
	vectors   []Vector
	documents int
	model     string
	dimension int
}

// NewIndex pairs chunks with vectors. Both slices must have the same length
// and every vector the same dimension.
func NewIndex(chunks []Chunk, vectors []Vector, model string) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunk/vector count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyCorpus
	}

	dimension := len(vectors[0])
	if dimension == 0 {
		return nil, fmt.Errorf("%w: empty vector at position 0", ErrInvalidDimension)
	}
	for i, vec := range vectors {
		if len(vec) != dimension {
			return nil, fmt.Errorf("%w: expected %d, got %d at position %d", ErrInvalidDimension, dimension, len(vec), i)
		}
	}

	sources := make(map[string]struct{})
	for _, ch := range chunks {
		sources[ch.Source] = struct{}{}
	}

	return &Index{
		chunks:    chunks,
		vectors:   vectors,
		documents: len(sources),
		model:     model,
		dimension: dimension,
	}, nil
}

// BuildIndex chunks every document, embeds the chunks in batches and returns
// the resulting index.
// This function:
// 1. Validates the chunk configuration before splitting anything
// 2. Splits each document into overlapping chunks, dropping blank ones
// 3. Generates embeddings in batches
// 4. Pairs chunks and vectors into an Index
func BuildIndex(ctx context.Context, documents []Document, embedder Embedder, opts IndexOptions) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if err := ValidateChunkConfig(opts.ChunkSize, opts.ChunkOverlap); err != nil {
		return nil, err
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultIndexOptions().BatchSize
	}

	var chunks []Chunk
	for _, doc := range documents {
		docChunks, err := SplitText(doc.Text, doc.Source, opts.ChunkSize, opts.ChunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("failed to split document %s: %w", doc.Source, err)
		}
		for _, ch := range docChunks {
			if strings.TrimSpace(ch.Text) == "" {
				continue
			}
			chunks = append(chunks, ch)
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks produced from %d documents: %w", len(documents), ErrEmptyCorpus)
	}

	vectors := make([]Vector, 0, len(chunks))

	// Process chunks in batches
	for batchStart := 0; batchStart < len(chunks); batchStart += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("indexing cancelled: %w", err)
		}

		batchEnd := min(batchStart+opts.BatchSize, len(chunks))
		batch := chunks[batchStart:batchEnd]

		texts := make([]string, len(batch))
		for i, ch := range batch {
			texts[i] = ch.Text
		}

		records, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings for batch starting at %d: %w", batchStart, err)
		}
		if len(records) != len(batch) {
			return nil, fmt.Errorf("%w: batch starting at %d: expected %d embeddings, got %d",
				ErrEmbeddingFailed, batchStart, len(batch), len(records))
		}

		for _, rec := range records {
			vectors = append(vectors, rec.Embedding)
		}
	}

	return NewIndex(chunks, vectors, embedder.GetModel())
}

// Len returns the number of chunks in the index.
func (idx *Index) Len() int {
	return len(idx.chunks)
}

// Chunk returns the chunk at position i.
func (idx *Index) Chunk(i int) Chunk {
	return idx.chunks[i]
}

// Documents returns the number of distinct sources in the index.
func (idx *Index) Documents() int {
	return idx.documents
}

// Model returns the embedding model the index was built with.
func (idx *Index) Model() string {
	return idx.model
}

// Dimension returns the vector dimension shared by every entry.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Search performs top-K cosine similarity search against the index.
func (idx *Index) Search(queryVector Vector, topK int) ([]ContextChunk, error) {
	matches, err := Rank(queryVector, idx.vectors, topK)
	if err != nil {
		return nil, err
	}

	results := make([]ContextChunk, len(matches))
	for i, m := range matches {
		results[i] = ContextChunk{
			Chunk:    idx.chunks[m.Index],
			Position: m.Index,
			Score:    m.Score,
		}
	}
	return results, nil
}
