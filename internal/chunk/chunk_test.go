package chunk

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// wordTokenizer treats each whitespace-separated word as one token.
// Deterministic and dependency-free for unit tests.
type wordTokenizer struct {
	words []string
}

func (t *wordTokenizer) Encode(text string) []int {
	t.words = strings.Fields(text)
	ids := make([]int, len(t.words))
	for i := range ids {
		ids[i] = i
	}
	return ids
}

func (t *wordTokenizer) Decode(tokens []int) string {
	parts := make([]string, len(tokens))
	for i, id := range tokens {
		parts[i] = t.words[id]
	}
	return strings.Join(parts, " ")
}

// words generates "w1 w2 ... wn".
func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i+1)
	}
	return strings.Join(parts, " ")
}

// TestNewSplitterValidation tests constructor parameter validation.
func TestNewSplitterValidation(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
		wantErr   error
	}{
		{name: "valid", chunkSize: 100, overlap: 20},
		{name: "valid zero overlap", chunkSize: 100, overlap: 0},
		{name: "zero chunk size", chunkSize: 0, overlap: 0, wantErr: ErrInvalidChunkSize},
		{name: "negative chunk size", chunkSize: -5, overlap: 0, wantErr: ErrInvalidChunkSize},
		{name: "negative overlap", chunkSize: 100, overlap: -1, wantErr: ErrInvalidOverlap},
		{name: "overlap equals size", chunkSize: 100, overlap: 100, wantErr: ErrInvalidOverlap},
		{name: "overlap above size", chunkSize: 100, overlap: 150, wantErr: ErrInvalidOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(&wordTokenizer{}, tt.chunkSize, tt.overlap)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("NewSplitter() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewSplitter() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestNewSplitterNilTokenizer tests that a tokenizer is required.
func TestNewSplitterNilTokenizer(t *testing.T) {
	if _, err := NewSplitter(nil, 100, 10); err == nil {
		t.Error("NewSplitter(nil, ...) expected error, got nil")
	}
}

// TestSplitWindows tests window advancement and overlap.
func TestSplitWindows(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		chunkSize  int
		overlap    int
		wantChunks []string
	}{
		{
			name:       "empty text",
			text:       "",
			chunkSize:  10,
			overlap:    2,
			wantChunks: nil,
		},
		{
			name:       "whitespace only",
			text:       "   \n\t  ",
			chunkSize:  10,
			overlap:    2,
			wantChunks: nil,
		},
		{
			name:       "fits in one window",
			text:       "a b c",
			chunkSize:  10,
			overlap:    2,
			wantChunks: []string{"a b c"},
		},
		{
			name:       "exactly one window",
			text:       words(10),
			chunkSize:  10,
			overlap:    2,
			wantChunks: []string{words(10)},
		},
		{
			name:      "two windows with overlap",
			text:      words(15),
			chunkSize: 10,
			overlap:   2,
			wantChunks: []string{
				"w1 w2 w3 w4 w5 w6 w7 w8 w9 w10",
				"w9 w10 w11 w12 w13 w14 w15",
			},
		},
		{
			name:      "no overlap",
			text:      words(7),
			chunkSize: 3,
			overlap:   0,
			wantChunks: []string{
				"w1 w2 w3",
				"w4 w5 w6",
				"w7",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSplitter(&wordTokenizer{}, tt.chunkSize, tt.overlap)
			if err != nil {
				t.Fatalf("NewSplitter() unexpected error: %v", err)
			}

			got := s.Split(tt.text)
			if len(got) != len(tt.wantChunks) {
				t.Fatalf("Split() returned %d chunks, want %d: %q", len(got), len(tt.wantChunks), got)
			}
			for i := range got {
				if got[i] != tt.wantChunks[i] {
					t.Errorf("chunk[%d] = %q, want %q", i, got[i], tt.wantChunks[i])
				}
			}
		})
	}
}

// TestSplitOverlapConsistency tests that consecutive chunks share exactly
// the configured number of tokens.
func TestSplitOverlapConsistency(t *testing.T) {
	const (
		chunkSize = 50
		overlap   = 10
		total     = 230
	)

	s, err := NewSplitter(&wordTokenizer{}, chunkSize, overlap)
	if err != nil {
		t.Fatalf("NewSplitter() unexpected error: %v", err)
	}

	chunks := s.Split(words(total))
	// ceil((230-50)/40)+1 = 6 windows
	if len(chunks) != 6 {
		t.Fatalf("Split() returned %d chunks, want 6", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1])
		cur := strings.Fields(chunks[i])
		tail := prev[len(prev)-overlap:]
		head := cur[:overlap]
		for j := range tail {
			if tail[j] != head[j] {
				t.Fatalf("chunks %d/%d overlap mismatch: tail %v, head %v", i-1, i, tail, head)
			}
		}
	}
}
