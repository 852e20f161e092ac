// Package factory constructs vector store backends from configuration.
//
// Backend dispatch happens exactly once, here: the rest of the system sees
// only the vectorstore.Store and vectorstore.CacheStore interfaces and
// never inspects the backend type at runtime.
package factory

import (
	"fmt"
	"log/slog"

	"github.com/minirag/minirag/internal/config"
	"github.com/minirag/minirag/internal/vectorstore"
	"github.com/minirag/minirag/internal/vectorstore/pgvector"
	"github.com/minirag/minirag/internal/vectorstore/qdrant"
)

// New builds the main store and the semantic cache store selected by
// cfg.VectorBackend. The two are distinct resources: callers must Connect
// and Disconnect each independently.
func New(cfg *config.Config, logger *slog.Logger) (vectorstore.Store, vectorstore.CacheStore, error) {
	distance := vectorstore.DistanceMetric(cfg.DistanceMethod)

	switch cfg.VectorBackend {
	case config.BackendQdrant:
		store := qdrant.New(qdrant.Config{
			Host:     cfg.Qdrant.Host,
			Port:     cfg.Qdrant.Port,
			APIKey:   cfg.Qdrant.APIKey,
			UseTLS:   cfg.Qdrant.UseTLS,
			Distance: distance,
		}, logger)
		cache := qdrant.NewCache(qdrant.Config{
			Host:   cfg.QdrantCache.Host,
			Port:   cfg.QdrantCache.Port,
			APIKey: cfg.QdrantCache.APIKey,
			UseTLS: cfg.QdrantCache.UseTLS,
		}, logger)
		return store, cache, nil

	case config.BackendPGVector:
		store := pgvector.New(pgvector.Config{
			ConnString:     cfg.PostgresConnectionString(),
			Distance:       distance,
			IndexThreshold: cfg.IndexThreshold,
		}, logger)
		cache := pgvector.NewCache(cfg.PostgresConnectionString(), logger)
		return store, cache, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, cfg.VectorBackend)
	}
}
