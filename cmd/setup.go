package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Ell-716/starting-ragchatbot-codebase/db"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/config"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/course"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/gemini"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/index"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/rag"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/session"
)

// app bundles everything a command needs after wiring.
type app struct {
	cfg    *config.Config
	system *rag.System
	close  func()
}

// setup loads configuration and assembles the pipeline: Gemini client,
// vector backend (running migrations for postgres), chunker, sessions, and
// the orchestrator.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := slog.Default()

	client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, err
	}
	embedder := gemini.NewEmbedder(client, gemini.EmbedderConfig{
		Model:     cfg.EmbedderModel,
		Dimension: index.VectorDimension,
	})
	generator := gemini.NewGenerator(client, gemini.GeneratorConfig{
		Model:       cfg.ModelName,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, logger)

	var (
		backend index.Backend
		cleanup = func() {}
	)
	switch cfg.VectorBackend {
	case config.BackendMemory:
		backend = index.NewMemoryBackend(embedder)
	default:
		if err := db.Migrate(cfg.PostgresURL()); err != nil {
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		pool, err := index.NewPool(ctx, cfg.PostgresURL())
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		backend = index.NewPostgresBackend(pool, embedder, logger)
		cleanup = pool.Close
	}

	chunker, err := course.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	system, err := rag.New(
		index.New(backend, logger),
		generator,
		session.NewManager(cfg.MaxHistory),
		chunker,
		rag.Options{
			MaxResults:     cfg.MaxResults,
			ScoreThreshold: cfg.ScoreThreshold,
			MaxToolRounds:  cfg.MaxToolRounds,
			GenerateRPS:    cfg.GenerateRPS,
			Logger:         logger,
		},
	)
	if err != nil {
		cleanup()
		return nil, err
	}

	return &app{cfg: cfg, system: system, close: cleanup}, nil
}
