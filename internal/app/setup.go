package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pnote/pnote/db"
	"github.com/pnote/pnote/internal/analytics"
	"github.com/pnote/pnote/internal/cache"
	"github.com/pnote/pnote/internal/chunk"
	"github.com/pnote/pnote/internal/config"
	"github.com/pnote/pnote/internal/course"
	"github.com/pnote/pnote/internal/extract"
	"github.com/pnote/pnote/internal/ingest"
	"github.com/pnote/pnote/internal/log"
	"github.com/pnote/pnote/internal/model"
	"github.com/pnote/pnote/internal/rag"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = log.NewNop()
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	responseCache := cache.New(cfg.DataDir, logger)

	courses, err := course.NewStore(pool, embedder, responseCache, cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("creating course store: %w", err)
	}
	a.Courses = courses

	pipeline, err := providePipeline(cfg, courses, logger)
	if err != nil {
		return nil, err
	}
	a.Pipeline = pipeline

	generator, err := model.New(g, cfg.FullModelName(), nil, logger)
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	engine, err := rag.New(courses, generator, responseCache, rag.Config{
		TopK:          cfg.TopK,
		SampleChunks:  cfg.SampleChunks,
		SystemPrompt:  cfg.SystemPrompt,
		SummaryPrompt: cfg.SummaryPrompt,
		QuizPrompt:    cfg.QuizPrompt,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating rag engine: %w", err)
	}
	a.Engine = engine

	stats, err := analytics.New(courses, cfg.ChunkSize, logger)
	if err != nil {
		return nil, fmt.Errorf("creating analytics service: %w", err)
	}
	a.Analytics = stats

	_, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	return a, nil
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports gemini (default), ollama and openai.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGemini
	}

	var g *genkit.Genkit

	switch provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery).
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // gemini
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider plugin.
// Each provider registers embedders differently: gemini by model name,
// ollama by server address (registered in provideGenkit), openai
// auto-registered in Init().
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// providePipeline assembles the ingestion pipeline: tokenizer, splitter,
// extractor and the size-capped pipeline itself.
func providePipeline(cfg *config.Config, courses *course.Store, logger log.Logger) (*ingest.Pipeline, error) {
	tokenizer, err := chunk.NewTiktokenTokenizer()
	if err != nil {
		return nil, fmt.Errorf("creating tokenizer: %w", err)
	}

	splitter, err := chunk.NewSplitter(tokenizer, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("creating splitter: %w", err)
	}

	extractor := extract.New(extract.Config{
		TranscriptLanguage: cfg.TranscriptLanguage,
		TranscriptFallback: cfg.TranscriptFallback,
	}, &http.Client{Timeout: 30 * time.Second}, logger)

	pipeline, err := ingest.New(courses, extractor, splitter, cfg.MaxUploadBytes(), logger)
	if err != nil {
		return nil, fmt.Errorf("creating ingestion pipeline: %w", err)
	}
	return pipeline, nil
}
