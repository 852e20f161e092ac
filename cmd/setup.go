package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minirag/minirag/internal/chunks"
	"github.com/minirag/minirag/internal/config"
	"github.com/minirag/minirag/internal/log"
	"github.com/minirag/minirag/internal/provider"
	"github.com/minirag/minirag/internal/rag"
	"github.com/minirag/minirag/internal/vectorstore/factory"
)

// app holds everything a command needs, wired from config.
type app struct {
	cfg    *config.Config
	system *rag.System
	logger *slog.Logger

	cleanup []func()
}

// setup loads config and wires the store, cache, chunk source and AI
// provider into a rag.System. Callers must defer a.close().
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: slog.LevelInfo})

	a := &app{cfg: cfg, logger: logger}

	store, cache, err := factory.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := store.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting vector store: %w", err)
	}
	a.cleanup = append(a.cleanup, func() { _ = store.Disconnect(context.Background()) })

	if err := cache.Connect(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("connecting cache store: %w", err)
	}
	a.cleanup = append(a.cleanup, func() { _ = cache.Disconnect(context.Background()) })

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connecting metadata database: %w", err)
	}
	a.cleanup = append(a.cleanup, pool.Close)

	client, err := provider.New(ctx, provider.Config{
		ModelName:          cfg.ModelName,
		EmbedderModel:      cfg.EmbedderModel,
		EmbeddingDimension: cfg.EmbeddingDimension,
	}, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("initializing AI provider: %w", err)
	}

	source := chunks.NewStore(pool, logger)

	a.system = rag.New(store, cache, client, client, source, rag.Config{
		EmbeddingDimension: cfg.EmbeddingDimension,
		CacheThreshold:     cfg.CacheThreshold,
		SearchLimit:        cfg.SearchLimit,
		InsertBatchSize:    cfg.InsertBatchSize,
	}, logger)

	return a, nil
}

// close releases resources in reverse acquisition order.
func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}
