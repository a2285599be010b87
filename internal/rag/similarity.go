package rag

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
)

// Common errors for retrieval operations
var (
	ErrRetrieval   = errors.New("retrieval failed")
	ErrEmptyCorpus = fmt.Errorf("%w: corpus is empty", ErrRetrieval)
)

// Match is one ranked corpus entry.
type Match struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// CosineSimilarity returns dot(a, b) / (|a| * |b|).
// Vectors with zero norm or mismatched lengths score -Inf so they always rank
// below every comparable vector.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(-1)
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return math.Inf(-1)
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores query against every corpus vector and returns the k best matches
// ordered by descending score. Ties keep corpus order. A k larger than the
// corpus is clamped to the corpus size.
func Rank(query Vector, corpus []Vector, k int) ([]Match, error) {
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrRetrieval, k)
	}

	matches := make([]Match, len(corpus))
	for i, vec := range corpus {
		if len(vec) != len(query) {
			return nil, fmt.Errorf("%w: dimension mismatch at corpus entry %d: query has %d, entry has %d",
				ErrRetrieval, i, len(query), len(vec))
		}
		matches[i] = Match{Index: i, Score: CosineSimilarity(query, vec)}
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})

	return matches[:min(k, len(matches))], nil
}
