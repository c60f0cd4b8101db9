// Package app provides application initialization and dependency wiring.
//
// App is the container that assembles all components: Genkit, the
// database pool, the course store, the ingestion pipeline, the RAG
// engine and the analytics service. Setup builds it, Close releases it.
package app

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pnote/pnote/internal/analytics"
	"github.com/pnote/pnote/internal/config"
	"github.com/pnote/pnote/internal/course"
	"github.com/pnote/pnote/internal/ingest"
	"github.com/pnote/pnote/internal/log"
	"github.com/pnote/pnote/internal/rag"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Courses   *course.Store
	Pipeline  *ingest.Pipeline
	Engine    *rag.Engine
	Analytics *analytics.Service

	cancel context.CancelFunc
}

// Close releases all resources held by the application.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.cancel != nil {
		a.cancel()
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		if a.Logger != nil {
			a.Logger.Debug("database pool closed")
		}
	}

	return nil
}
