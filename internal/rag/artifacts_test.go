package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func quizJSON(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(
			`{"question": "Q%d?", "options": ["a", "b", "c", "d"], "answer": "b"}`, i+1)
	}
	return "[" + strings.Join(items, ",") + "]"
}

func keywordsJSON(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf("%q", fmt.Sprintf("keyword %d", i+1))
	}
	return "[" + strings.Join(items, ",") + "]"
}

// TestSummarizeCachesResult tests generation, caching and cache reuse.
func TestSummarizeCachesResult(t *testing.T) {
	retriever := &mockRetriever{sample: "course content"}
	generator := &mockGenerator{response: "a fine summary"}
	cache := newMapCache()
	e := newTestEngine(t, retriever, generator, cache)
	ctx := context.Background()

	got, err := e.Summarize(ctx, "go-basics")
	if err != nil {
		t.Fatalf("Summarize() unexpected error: %v", err)
	}
	if got != "a fine summary" {
		t.Errorf("Summarize() = %q, want %q", got, "a fine summary")
	}
	if !strings.Contains(generator.lastPrompt, "course content") {
		t.Errorf("prompt should embed the sampled content, got: %q", generator.lastPrompt)
	}

	// Second call must come from cache.
	got, err = e.Summarize(ctx, "go-basics")
	if err != nil {
		t.Fatalf("Summarize() cached call error: %v", err)
	}
	if got != "a fine summary" {
		t.Errorf("cached Summarize() = %q", got)
	}
	if generator.calls != 1 {
		t.Errorf("generator called %d times, want 1 (cache hit)", generator.calls)
	}
}

// TestArtifactsInsufficientData tests the typed outcome for empty courses.
func TestArtifactsInsufficientData(t *testing.T) {
	e := newTestEngine(t, &mockRetriever{sample: "   "}, &mockGenerator{response: "x"}, newMapCache())
	ctx := context.Background()

	if _, err := e.Summarize(ctx, "empty-course"); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Summarize() = %v, want ErrInsufficientData", err)
	}
	if _, err := e.GenerateQuiz(ctx, "empty-course", 3); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("GenerateQuiz() = %v, want ErrInsufficientData", err)
	}
	if _, err := e.ExtractKeywords(ctx, "empty-course"); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("ExtractKeywords() = %v, want ErrInsufficientData", err)
	}
	if _, err := e.GenerateStudyQuestions(ctx, "empty-course", 3); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("GenerateStudyQuestions() = %v, want ErrInsufficientData", err)
	}
}

// TestArtifactsBackendUnavailable tests error normalization for store and
// model failures.
func TestArtifactsBackendUnavailable(t *testing.T) {
	ctx := context.Background()

	e := newTestEngine(t, &mockRetriever{sampleErr: errors.New("db down")},
		&mockGenerator{response: "x"}, newMapCache())
	if _, err := e.Summarize(ctx, "go-basics"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Summarize() with store failure = %v, want ErrBackendUnavailable", err)
	}

	e = newTestEngine(t, &mockRetriever{sample: "content"},
		&mockGenerator{err: errors.New("model down")}, newMapCache())
	if _, err := e.Summarize(ctx, "go-basics"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Summarize() with model failure = %v, want ErrBackendUnavailable", err)
	}
}

// TestGenerateQuiz tests contract validation and the n-aware cache key.
func TestGenerateQuiz(t *testing.T) {
	retriever := &mockRetriever{sample: "content"}
	generator := &mockGenerator{response: quizJSON(3)}
	cache := newMapCache()
	e := newTestEngine(t, retriever, generator, cache)
	ctx := context.Background()

	quiz, err := e.GenerateQuiz(ctx, "go-basics", 3)
	if err != nil {
		t.Fatalf("GenerateQuiz() unexpected error: %v", err)
	}
	if len(quiz) != 3 {
		t.Fatalf("GenerateQuiz() returned %d questions, want 3", len(quiz))
	}
	if quiz[0].Answer != "b" || len(quiz[0].Options) != 4 {
		t.Errorf("question shape wrong: %+v", quiz[0])
	}

	// A different n must not reuse the size-3 cache entry.
	generator.response = quizJSON(5)
	quiz, err = e.GenerateQuiz(ctx, "go-basics", 5)
	if err != nil {
		t.Fatalf("GenerateQuiz(5) unexpected error: %v", err)
	}
	if len(quiz) != 5 {
		t.Errorf("GenerateQuiz(5) returned %d questions", len(quiz))
	}
	if generator.calls != 2 {
		t.Errorf("generator called %d times, want 2", generator.calls)
	}
}

// TestGenerateQuizMalformedOutput tests that contract violations map to
// ErrMalformedOutput and are never cached.
func TestGenerateQuizMalformedOutput(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "not JSON", response: "Sure! Here are your questions: 1) ..."},
		{name: "wrong count", response: quizJSON(2)},
		{name: "three options", response: `[{"question": "Q?", "options": ["a", "b", "c"], "answer": "a"},` +
			strings.TrimPrefix(quizJSON(2), "[")},
		{name: "answer not an option", response: `[{"question": "Q?", "options": ["a", "b", "c", "d"], "answer": "e"},` +
			strings.TrimPrefix(quizJSON(2), "[")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newMapCache()
			e := newTestEngine(t, &mockRetriever{sample: "content"},
				&mockGenerator{response: tt.response}, cache)

			_, err := e.GenerateQuiz(context.Background(), "go-basics", 3)
			if !errors.Is(err, ErrMalformedOutput) {
				t.Fatalf("GenerateQuiz() = %v, want ErrMalformedOutput", err)
			}
			if errors.Is(err, ErrBackendUnavailable) {
				t.Error("malformed output must stay distinct from backend errors")
			}
			if cache.puts != 0 {
				t.Error("malformed output must never be cached")
			}
		})
	}
}

// TestGenerateQuizStripsCodeFences tests that fenced JSON still parses.
func TestGenerateQuizStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + quizJSON(2) + "\n```"
	e := newTestEngine(t, &mockRetriever{sample: "content"},
		&mockGenerator{response: fenced}, newMapCache())

	quiz, err := e.GenerateQuiz(context.Background(), "go-basics", 2)
	if err != nil {
		t.Fatalf("GenerateQuiz() unexpected error: %v", err)
	}
	if len(quiz) != 2 {
		t.Errorf("GenerateQuiz() returned %d questions, want 2", len(quiz))
	}
}

// TestExtractKeywords tests the 10-15 count contract.
func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		wantErr bool
	}{
		{name: "minimum", count: 10},
		{name: "maximum", count: 15},
		{name: "too few", count: 9, wantErr: true},
		{name: "too many", count: 16, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, &mockRetriever{sample: "content"},
				&mockGenerator{response: keywordsJSON(tt.count)}, newMapCache())

			keywords, err := e.ExtractKeywords(context.Background(), "go-basics")
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedOutput) {
					t.Errorf("ExtractKeywords() = %v, want ErrMalformedOutput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractKeywords() unexpected error: %v", err)
			}
			if len(keywords) != tt.count {
				t.Errorf("got %d keywords, want %d", len(keywords), tt.count)
			}
		})
	}
}

// TestGenerateStudyQuestions tests the exact-count contract.
func TestGenerateStudyQuestions(t *testing.T) {
	e := newTestEngine(t, &mockRetriever{sample: "content"},
		&mockGenerator{response: `["Explain X", "Compare Y and Z"]`}, newMapCache())
	ctx := context.Background()

	questions, err := e.GenerateStudyQuestions(ctx, "go-basics", 2)
	if err != nil {
		t.Fatalf("GenerateStudyQuestions() unexpected error: %v", err)
	}
	if len(questions) != 2 {
		t.Errorf("got %d questions, want 2", len(questions))
	}

	// Count mismatch is malformed output.
	if _, err := e.GenerateStudyQuestions(ctx, "go-basics", 5); !errors.Is(err, ErrMalformedOutput) {
		t.Errorf("count mismatch = %v, want ErrMalformedOutput", err)
	}
}

// TestStripCodeFences tests fence removal edge cases.
func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no fences", in: `["a"]`, want: `["a"]`},
		{name: "json fence", in: "```json\n[\"a\"]\n```", want: `["a"]`},
		{name: "bare fence", in: "```\n[\"a\"]\n```", want: `["a"]`},
		{name: "surrounding whitespace", in: "  ```json\n[\"a\"]\n```  ", want: `["a"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFences(tt.in); got != tt.want {
				t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
