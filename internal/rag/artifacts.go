package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Cache feature keys. Parameterized artifacts include the count so a
// 5-question quiz never serves a request for 10.
const (
	featureSummary  = "summary"
	featureKeywords = "keywords"
)

// maxArtifactResponseBytes limits model output size before JSON parsing.
const maxArtifactResponseBytes = 64 * 1024

// Keyword count bounds enforced on extracted keyword lists.
const (
	minKeywords = 10
	maxKeywords = 15
)

// QuizQuestion is one multiple-choice question of a generated quiz.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// summaryPayload is the cached form of a course summary.
type summaryPayload struct {
	Summary string `json:"summary"`
}

// Summarize returns a prose summary of the course content.
// Cached until the course's document set changes.
func (e *Engine) Summarize(ctx context.Context, courseID string) (string, error) {
	var cached summaryPayload
	if e.cache.Get(ctx, courseID, featureSummary, &cached) {
		return cached.Summary, nil
	}

	content, err := e.sampleContent(ctx, courseID)
	if err != nil {
		return "", err
	}

	text, err := e.generate(ctx, fmt.Sprintf(e.cfg.SummaryPrompt, content))
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty summary", ErrMalformedOutput)
	}

	e.cache.Put(ctx, courseID, featureSummary, summaryPayload{Summary: text})
	return text, nil
}

// GenerateQuiz returns exactly n multiple-choice questions derived from
// the course content. Malformed model output is never cached.
func (e *Engine) GenerateQuiz(ctx context.Context, courseID string, n int) ([]QuizQuestion, error) {
	if n < 1 {
		return nil, fmt.Errorf("quiz size must be positive, got %d", n)
	}

	featureKey := fmt.Sprintf("quiz-%d", n)

	var cached []QuizQuestion
	if e.cache.Get(ctx, courseID, featureKey, &cached) {
		return cached, nil
	}

	content, err := e.sampleContent(ctx, courseID)
	if err != nil {
		return nil, err
	}

	text, err := e.generate(ctx, fmt.Sprintf(e.cfg.QuizPrompt, n, n, content))
	if err != nil {
		return nil, err
	}

	questions, err := parseQuiz(text, n)
	if err != nil {
		return nil, err
	}

	e.cache.Put(ctx, courseID, featureKey, questions)
	return questions, nil
}

// ExtractKeywords returns the 10-15 most important keywords of the
// course content.
func (e *Engine) ExtractKeywords(ctx context.Context, courseID string) ([]string, error) {
	var cached []string
	if e.cache.Get(ctx, courseID, featureKeywords, &cached) {
		return cached, nil
	}

	content, err := e.sampleContent(ctx, courseID)
	if err != nil {
		return nil, err
	}

	text, err := e.generate(ctx, fmt.Sprintf(keywordsPrompt, content))
	if err != nil {
		return nil, err
	}

	keywords, err := parseStringList(text)
	if err != nil {
		return nil, err
	}
	if len(keywords) < minKeywords || len(keywords) > maxKeywords {
		return nil, fmt.Errorf("%w: got %d keywords, want %d-%d",
			ErrMalformedOutput, len(keywords), minKeywords, maxKeywords)
	}

	e.cache.Put(ctx, courseID, featureKeywords, keywords)
	return keywords, nil
}

// GenerateStudyQuestions returns exactly n open-ended study questions.
func (e *Engine) GenerateStudyQuestions(ctx context.Context, courseID string, n int) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("question count must be positive, got %d", n)
	}

	featureKey := fmt.Sprintf("questions-%d", n)

	var cached []string
	if e.cache.Get(ctx, courseID, featureKey, &cached) {
		return cached, nil
	}

	content, err := e.sampleContent(ctx, courseID)
	if err != nil {
		return nil, err
	}

	text, err := e.generate(ctx, fmt.Sprintf(studyQuestionsPrompt, n, n, content))
	if err != nil {
		return nil, err
	}

	questions, err := parseStringList(text)
	if err != nil {
		return nil, err
	}
	if len(questions) != n {
		return nil, fmt.Errorf("%w: got %d study questions, want %d",
			ErrMalformedOutput, len(questions), n)
	}

	e.cache.Put(ctx, courseID, featureKey, questions)
	return questions, nil
}

// sampleContent loads the whole-course context sample for artifact
// prompts. An empty sample means there is nothing to derive from.
func (e *Engine) sampleContent(ctx context.Context, courseID string) (string, error) {
	content, err := e.retriever.SampleContext(ctx, courseID, e.cfg.SampleChunks)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: course %q", ErrInsufficientData, courseID)
	}
	return content, nil
}

// generate issues a non-streaming generation and normalizes its failure
// mode to ErrBackendUnavailable.
func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	text, err := e.generator.Generate(ctx, "", prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(text) > maxArtifactResponseBytes {
		return "", fmt.Errorf("%w: response too large (%d bytes)", ErrMalformedOutput, len(text))
	}
	return text, nil
}

// parseQuiz validates the quiz JSON contract: exactly n items, 4 options
// each, answer present among the options.
func parseQuiz(text string, n int) ([]QuizQuestion, error) {
	var questions []QuizQuestion
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &questions); err != nil {
		return nil, fmt.Errorf("%w: %v (raw: %q)", ErrMalformedOutput, err, truncate(text, 200))
	}

	if len(questions) != n {
		return nil, fmt.Errorf("%w: got %d questions, want %d", ErrMalformedOutput, len(questions), n)
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			return nil, fmt.Errorf("%w: question %d is empty", ErrMalformedOutput, i+1)
		}
		if len(q.Options) != 4 {
			return nil, fmt.Errorf("%w: question %d has %d options, want 4", ErrMalformedOutput, i+1, len(q.Options))
		}
		if !slices.Contains(q.Options, q.Answer) {
			return nil, fmt.Errorf("%w: question %d answer is not among its options", ErrMalformedOutput, i+1)
		}
	}
	return questions, nil
}

// parseStringList parses a JSON array of non-empty strings.
func parseStringList(text string) ([]string, error) {
	var items []string
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &items); err != nil {
		return nil, fmt.Errorf("%w: %v (raw: %q)", ErrMalformedOutput, err, truncate(text, 200))
	}
	for i, item := range items {
		if strings.TrimSpace(item) == "" {
			return nil, fmt.Errorf("%w: item %d is empty", ErrMalformedOutput, i+1)
		}
	}
	return items, nil
}

// stripCodeFences removes ```json ... ``` wrapping from model output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

// truncate shortens s to at most n bytes for logging.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
