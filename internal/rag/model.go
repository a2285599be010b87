package rag

// Document is the raw text of one scraped source.
type Document struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Vector is a fixed-dimension embedding.
type Vector = []float32

// Chunk is a contiguous substring of a source document used as a retrieval unit.
type Chunk struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
	Offset int    `json:"offset"` // Rune offset of the chunk start within its document
	Index  int    `json:"index"`  // Position of the chunk within its document
}

// ContextChunk represents a retrieved chunk with its similarity score.
// Used to provide relevant corpus context to the answer composer.
type ContextChunk struct {
	Chunk
	Position int     `json:"position"` // Position in the retrieval index
	Score    float64 `json:"score"`    // Cosine similarity to the query
}

// IndexOptions provides configuration for corpus indexing
type IndexOptions struct {
	// ChunkSize is the maximum chunk length in characters
	ChunkSize int

	// ChunkOverlap is the number of characters shared by adjacent chunks
	ChunkOverlap int

	// BatchSize determines how many chunks to embed at once
	BatchSize int
}

// DefaultIndexOptions returns sensible defaults for indexing
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		BatchSize:    32,
	}
}

// Texts returns the chunk texts of the given context chunks, in order.
func Texts(chunks []ContextChunk) []string {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	return texts
}
