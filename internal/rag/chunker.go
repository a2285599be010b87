package rag

import (
	"errors"
	"fmt"
	"iter"
)

// ErrInvalidChunkConfig is returned when the chunk size/overlap pair cannot
// make progress through the text.
var ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

// ValidateChunkConfig checks that maxSize and overlap describe a splitter that
// terminates.
func ValidateChunkConfig(maxSize, overlap int) error {
	if maxSize <= 0 {
		return fmt.Errorf("%w: max size must be positive, got %d", ErrInvalidChunkConfig, maxSize)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap cannot be negative, got %d", ErrInvalidChunkConfig, overlap)
	}
	if overlap >= maxSize {
		return fmt.Errorf("%w: overlap (%d) must be smaller than max size (%d)", ErrInvalidChunkConfig, overlap, maxSize)
	}
	return nil
}

// Chunks splits text into windows of at most maxSize characters. Each window
// after the first starts maxSize-overlap characters after the previous one and
// the last window ends at the end of the text. The sequence can be ranged over
// any number of times.
func Chunks(text string, maxSize, overlap int) (iter.Seq[Chunk], error) {
	if err := ValidateChunkConfig(maxSize, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	step := maxSize - overlap

	return func(yield func(Chunk) bool) {
		for start, idx := 0, 0; start < len(runes); start, idx = start+step, idx+1 {
			end := min(start+maxSize, len(runes))
			if !yield(Chunk{Text: string(runes[start:end]), Offset: start, Index: idx}) {
				return
			}
			if end == len(runes) {
				return
			}
		}
	}, nil
}

// SplitText collects the chunks of text and tags each one with source.
func SplitText(text, source string, maxSize, overlap int) ([]Chunk, error) {
	seq, err := Chunks(text, maxSize, overlap)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	for ch := range seq {
		ch.Source = source
		chunks = append(chunks, ch)
	}
	return chunks, nil
}
