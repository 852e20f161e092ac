package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/minirag/minirag/internal/vectorstore"
)

const responseField = "response_text"

// CacheProvider implements vectorstore.CacheStore on a dedicated Qdrant
// endpoint. It is a separate resource from the main store: its client is
// created and closed independently, and it always uses Euclidean distance
// on a single unnamed dense field, whatever the main store's metric.
type CacheProvider struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	client *qdrant.Client
}

// NewCache creates a CacheProvider. Connect must be called before use.
func NewCache(cfg Config, logger *slog.Logger) *CacheProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheProvider{cfg: cfg, logger: logger.With("component", "qdrant-cache")}
}

// Connect establishes the cache endpoint client.
func (c *CacheProvider) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   c.cfg.Host,
		Port:   c.cfg.Port,
		APIKey: c.cfg.APIKey,
		UseTLS: c.cfg.UseTLS,
	})
	if err != nil {
		return fmt.Errorf("%w: creating qdrant cache client: %w", vectorstore.ErrBackendUnavailable, err)
	}
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("%w: qdrant cache health check: %w", vectorstore.ErrBackendUnavailable, err)
	}

	c.client = client
	return nil
}

// Disconnect closes the cache client. Idempotent.
func (c *CacheProvider) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	if err != nil {
		return fmt.Errorf("closing qdrant cache client: %w", err)
	}
	return nil
}

func (c *CacheProvider) conn() (*qdrant.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil, fmt.Errorf("%w: cache not connected", vectorstore.ErrBackendUnavailable)
	}
	return c.client, nil
}

// CreateCache creates the named cache collection with Euclidean distance.
func (c *CacheProvider) CreateCache(ctx context.Context, name string, embeddingSize int, doReset bool) (bool, error) {
	client, err := c.conn()
	if err != nil {
		return false, err
	}

	if doReset {
		exists, err := client.CollectionExists(ctx, name)
		if err == nil && exists {
			if err := client.DeleteCollection(ctx, name); err != nil {
				c.logger.Warn("cache reset delete failed, continuing", "cache", name, "error", err)
			}
		}
	}

	exists, err := client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("checking cache %q: %w", name, err)
	}
	if exists {
		return false, nil
	}

	c.logger.Info("creating cache collection", "cache", name, "embedding_size", embeddingSize)

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(embeddingSize), // #nosec G115 -- validated positive by config
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return false, fmt.Errorf("creating cache %q: %w", name, err)
	}
	return true, nil
}

// Probe returns the nearest stored query embedding with its raw Euclidean
// distance, or (nil, nil) when the cache is empty. The caller applies the
// hit threshold.
func (c *CacheProvider) Probe(ctx context.Context, name string, queryVector []float32) (*vectorstore.CacheHit, error) {
	client, err := c.conn()
	if err != nil {
		return nil, err
	}

	exists, err := client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("checking cache %q: %w", name, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: cache %s", vectorstore.ErrNotFound, name)
	}

	points, err := client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQueryDense(queryVector),
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("probing cache %q: %w", name, err)
	}
	if len(points) == 0 {
		return nil, nil
	}

	point := points[0]

	var id uuid.UUID
	if point.Id != nil {
		if parsed, err := uuid.Parse(point.Id.GetUuid()); err == nil {
			id = parsed
		}
	}

	response := ""
	if v, ok := point.Payload[responseField]; ok {
		response = v.GetStringValue()
	}

	// With Euclidean distance the engine reports raw distance as the score;
	// lower means nearer.
	return &vectorstore.CacheHit{
		Record: vectorstore.CacheRecord{
			ID:           id,
			ResponseText: response,
		},
		Distance: point.Score,
	}, nil
}

// Store appends a new cache entry under a generated uuid. Entries are
// append-only; older answers for similar queries are superseded by rank,
// never rewritten.
func (c *CacheProvider) Store(ctx context.Context, name string, queryVector []float32, responseText string) (bool, error) {
	client, err := c.conn()
	if err != nil {
		return false, err
	}

	exists, err := client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("checking cache %q: %w", name, err)
	}
	if !exists {
		c.logger.Error("store into missing cache collection", "cache", name)
		return false, nil
	}

	_, err = client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(uuid.NewString()),
				Vectors: qdrant.NewVectors(queryVector...),
				Payload: qdrant.NewValueMap(map[string]any{responseField: responseText}),
			},
		},
	})
	if err != nil {
		return false, fmt.Errorf("storing cache entry in %q: %w", name, err)
	}
	return true, nil
}

var _ vectorstore.CacheStore = (*CacheProvider)(nil)
