package rag

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// DefaultLexicalDimension is the bucket count of the lexical embedder.
const DefaultLexicalDimension = 1024

// stopWords are dropped before hashing so that question words do not dominate
// the similarity of short texts.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"can": {}, "did": {}, "do": {}, "does": {}, "for": {}, "from": {}, "how": {},
	"i": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {}, "that": {},
	"the": {}, "this": {}, "to": {}, "was": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "who": {}, "why": {}, "with": {}, "you": {},
}

// LexicalEmbedder maps text to a bag-of-words vector by hashing lowercase
// tokens into fixed buckets. It needs no model or network access.
type LexicalEmbedder struct {
	dimension int
}

// NewLexicalEmbedder creates a lexical embedder with the given dimension.
// A non-positive dimension selects DefaultLexicalDimension.
func NewLexicalEmbedder(dimension int) *LexicalEmbedder {
	if dimension <= 0 {
		dimension = DefaultLexicalDimension
	}
	return &LexicalEmbedder{dimension: dimension}
}

// GetModel returns the embedding model identifier
func (e *LexicalEmbedder) GetModel() string {
	return "lexical-fnv"
}

// GetDimension returns the embedding vector dimension
func (e *LexicalEmbedder) GetDimension() int {
	return e.dimension
}

// Embed hashes the tokens of every text into a term-count vector.
func (e *LexicalEmbedder) Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}

	records := make([]EmbeddingRecord, len(texts))
	for i, text := range texts {
		records[i] = EmbeddingRecord{
			Text:      text,
			Embedding: e.vectorize(text),
			Index:     i,
			Model:     e.GetModel(),
		}
	}
	return records, nil
}

func (e *LexicalEmbedder) vectorize(text string) Vector {
	vec := make(Vector, e.dimension)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		if _, skip := stopWords[tok]; skip {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dimension)]++
	}
	return vec
}
