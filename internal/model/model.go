// Package model adapts the Genkit generative API for the rest of the
// application: provider-qualified model selection, proactive rate
// limiting and a plain-string streaming callback.
package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/pnote/pnote/internal/log"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one prior message of a chat conversation.
type Turn struct {
	Role Role
	Text string
}

// StreamCallback receives response text fragments as they are generated.
// Returning an error aborts the stream.
type StreamCallback func(ctx context.Context, fragment string) error

// Generator issues generation requests against one configured model.
//
// Generator is safe for concurrent use; the rate limiter serializes
// bursts across goroutines.
type Generator struct {
	g         *genkit.Genkit
	modelName string
	limiter   *rate.Limiter
	logger    log.Logger
}

// New creates a Generator. modelName must be provider-qualified
// (e.g. "googleai/gemini-2.5-flash"). A nil limiter gets the default of
// 5 requests/sec sustained with a burst of 10.
func New(g *genkit.Genkit, modelName string, limiter *rate.Limiter, logger log.Logger) (*Generator, error) {
	if g == nil {
		return nil, errors.New("genkit instance is required")
	}
	if modelName == "" {
		return nil, errors.New("model name is required")
	}
	if limiter == nil {
		limiter = rate.NewLimiter(5, 10)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Generator{g: g, modelName: modelName, limiter: limiter, logger: logger}, nil
}

// Generate produces a complete response for the prompt.
func (m *Generator) Generate(ctx context.Context, system, prompt string) (string, error) {
	return m.generate(ctx, system, prompt, nil, nil)
}

// GenerateStream produces a response, delivering fragments to cb as they
// arrive. history is replayed before the prompt so the model sees the
// conversation so far. The full response text is returned on completion.
func (m *Generator) GenerateStream(ctx context.Context, system, prompt string, history []Turn, cb StreamCallback) (string, error) {
	return m.generate(ctx, system, prompt, history, cb)
}

func (m *Generator) generate(ctx context.Context, system, prompt string, history []Turn, cb StreamCallback) (string, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	messages := make([]*ai.Message, 0, len(history)+1)
	for _, turn := range history {
		switch turn.Role {
		case RoleModel:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(turn.Text)))
		default:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(turn.Text)))
		}
	}
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(prompt)))

	opts := []ai.GenerateOption{
		ai.WithModelName(m.modelName),
		ai.WithMessages(messages...),
	}
	if system != "" {
		opts = append(opts, ai.WithSystem(system))
	}
	if cb != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			text := chunk.Text()
			if text == "" {
				return nil
			}
			return cb(ctx, text)
		}))
	}

	m.logger.Debug("generating",
		"model", m.modelName,
		"streaming", cb != nil,
		"history_turns", len(history),
		"prompt_chars", len(prompt))

	resp, err := genkit.Generate(ctx, m.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}

	return strings.TrimSpace(resp.Text()), nil
}
