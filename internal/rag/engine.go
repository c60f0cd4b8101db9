// Package rag answers questions over a course's ingested documents and
// produces cached derived artifacts (summary, quiz, keywords, study
// questions).
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pnote/pnote/internal/config"
	"github.com/pnote/pnote/internal/log"
	"github.com/pnote/pnote/internal/model"
)

var (
	// ErrBackendUnavailable indicates the model or vector store failed.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrMalformedOutput indicates the model answered but its output did
	// not satisfy the required structure. Distinct from backend errors:
	// the service is up, the response is unusable.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrInsufficientData indicates the course has no ingested content to
	// derive an artifact from.
	ErrInsufficientData = errors.New("course has no ingested documents")
)

// Retriever is the vector-store surface the engine needs.
type Retriever interface {
	Query(ctx context.Context, courseID, text string, k int) ([]string, error)
	SampleContext(ctx context.Context, courseID string, maxChunks int) (string, error)
}

// Generator is the model surface the engine needs.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	GenerateStream(ctx context.Context, system, prompt string, history []model.Turn, cb model.StreamCallback) (string, error)
}

// Cache is the response-cache surface the engine needs. Both methods are
// best-effort; Get reports a miss on any failure.
type Cache interface {
	Get(ctx context.Context, courseID, featureKey string, out any) bool
	Put(ctx context.Context, courseID, featureKey string, value any)
}

// contextSeparator joins retrieved chunks in the prompt.
const contextSeparator = "\n---\n"

// Config holds engine tuning. Empty prompt fields fall back to the
// built-in templates.
type Config struct {
	TopK          int
	SampleChunks  int
	SystemPrompt  string
	SummaryPrompt string
	QuizPrompt    string
}

// Engine answers chat questions with retrieval-augmented generation and
// derives cached study artifacts from whole-course context.
//
// Engine is safe for concurrent use.
type Engine struct {
	retriever Retriever
	generator Generator
	cache     Cache
	cfg       Config
	logger    log.Logger
}

// New creates an Engine.
func New(retriever Retriever, generator Generator, cache Cache, cfg Config, logger log.Logger) (*Engine, error) {
	if retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if cache == nil {
		return nil, errors.New("cache is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = config.DefaultTopK
	}
	if cfg.SampleChunks <= 0 {
		cfg.SampleChunks = config.DefaultSampleChunks
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = config.DefaultSystemPrompt
	}
	if cfg.SummaryPrompt == "" {
		cfg.SummaryPrompt = defaultSummaryPrompt
	}
	if cfg.QuizPrompt == "" {
		cfg.QuizPrompt = defaultQuizPrompt
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Engine{retriever: retriever, generator: generator, cache: cache, cfg: cfg, logger: logger}, nil
}

// Answer streams a retrieval-augmented answer to onFragment.
//
// Answers are never cached: the same question may deserve a different
// answer as documents come and go. Upstream failures (retrieval or
// generation) degrade to a single terminal error fragment so the stream
// always completes; only a callback abort propagates as an error.
func (e *Engine) Answer(ctx context.Context, courseID, question string, history []model.Turn, onFragment model.StreamCallback) error {
	if onFragment == nil {
		return errors.New("fragment callback is required")
	}

	chunks, err := e.retriever.Query(ctx, courseID, question, e.cfg.TopK)
	if err != nil {
		e.logger.Error("retrieval failed", "course", courseID, "error", err)
		return e.emitErrorFragment(ctx, onFragment)
	}

	prompt := fmt.Sprintf("CONTEXT:\n%s\n\nQUESTION:\n%s",
		strings.Join(chunks, contextSeparator), question)

	var aborted error
	_, err = e.generator.GenerateStream(ctx, e.cfg.SystemPrompt, prompt, history,
		func(ctx context.Context, fragment string) error {
			if cbErr := onFragment(ctx, fragment); cbErr != nil {
				aborted = cbErr
				return cbErr
			}
			return nil
		})

	switch {
	case aborted != nil:
		// The consumer stopped the stream; that is their error to own.
		return aborted
	case err != nil:
		e.logger.Error("generation failed", "course", courseID, "error", err)
		return e.emitErrorFragment(ctx, onFragment)
	default:
		return nil
	}
}

// errorFragment is the inline message shown when chat degrades.
const errorFragment = "\n[The assistant is temporarily unavailable. Please try again.]"

// emitErrorFragment delivers the terminal degradation fragment. The
// stream still "completes": a callback abort here is the only error.
func (e *Engine) emitErrorFragment(ctx context.Context, onFragment model.StreamCallback) error {
	if err := onFragment(ctx, errorFragment); err != nil {
		return err
	}
	return nil
}
