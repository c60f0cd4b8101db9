// Package chunk splits document text into overlapping token windows for
// embedding and retrieval.
package chunk

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidChunkSize indicates a non-positive chunk size.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrInvalidOverlap indicates the overlap does not leave the window
	// room to advance.
	ErrInvalidOverlap = errors.New("overlap must be >= 0 and < chunk size")
)

// Tokenizer encodes text to token ids and back. The production
// implementation wraps the cl100k_base BPE; tests substitute a simple
// whitespace tokenizer.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Splitter produces overlapping token-window chunks.
type Splitter struct {
	tokenizer Tokenizer
	chunkSize int
	overlap   int
}

// NewSplitter creates a Splitter. The window holds chunkSize tokens and
// advances by chunkSize-overlap each step.
func NewSplitter(tokenizer Tokenizer, chunkSize, overlap int) (*Splitter, error) {
	if tokenizer == nil {
		return nil, errors.New("tokenizer is required")
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: got overlap %d for chunk size %d", ErrInvalidOverlap, overlap, chunkSize)
	}
	return &Splitter{tokenizer: tokenizer, chunkSize: chunkSize, overlap: overlap}, nil
}

// Split returns the chunk texts for the document, in order.
// Text that fits within one window yields a single chunk; empty or
// whitespace-only text yields none.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tokens := s.tokenizer.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	if len(tokens) <= s.chunkSize {
		return []string{text}
	}

	step := s.chunkSize - s.overlap
	chunks := make([]string, 0, (len(tokens)+step-1)/step)

	for start := 0; start < len(tokens); start += step {
		end := min(start+s.chunkSize, len(tokens))
		chunks = append(chunks, s.tokenizer.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}

	return chunks
}

// ChunkSize reports the configured window size in tokens.
func (s *Splitter) ChunkSize() int { return s.chunkSize }
