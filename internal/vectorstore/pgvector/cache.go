package pgvector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"

	"github.com/minirag/minirag/internal/vectorstore"
)

// CacheProvider implements vectorstore.CacheStore on PostgreSQL + pgvector.
//
// Cache tables use the Euclidean operator (<->) for the nearest-neighbor
// probe regardless of the main store's metric: hit/miss is a nearness
// threshold decision, not a ranking one. The pool is independent from the
// main Provider's pool so the two lifecycles stay separate.
type CacheProvider struct {
	connString string
	logger     *slog.Logger

	mu   sync.Mutex
	pool *pgxpool.Pool
}

// NewCache creates a CacheProvider. Connect must be called before use.
func NewCache(connString string, logger *slog.Logger) *CacheProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheProvider{connString: connString, logger: logger.With("component", "pgvector-cache")}
}

// NewCacheWithPool wraps an existing pool, for tests.
func NewCacheWithPool(pool *pgxpool.Pool, logger *slog.Logger) *CacheProvider {
	c := NewCache("", logger)
	c.pool = pool
	return c
}

// Connect creates the cache connection pool.
func (c *CacheProvider) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool != nil {
		return nil
	}
	pool, err := pgxpool.New(ctx, c.connString)
	if err != nil {
		return fmt.Errorf("%w: creating cache pool: %w", vectorstore.ErrBackendUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("%w: pinging postgres: %w", vectorstore.ErrBackendUnavailable, err)
	}
	c.pool = pool
	return nil
}

// Disconnect closes the cache pool. Idempotent.
func (c *CacheProvider) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
	return nil
}

func (c *CacheProvider) conn() (*pgxpool.Pool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool == nil {
		return nil, fmt.Errorf("%w: cache not connected", vectorstore.ErrBackendUnavailable)
	}
	return c.pool, nil
}

func (c *CacheProvider) tableExists(ctx context.Context, pool *pgxpool.Pool, name string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_tables WHERE tablename = $1)", name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking cache table %q: %w", name, err)
	}
	return exists, nil
}

// CreateCache creates the cache table. Same reset semantics as
// Provider.CreateCollection.
func (c *CacheProvider) CreateCache(ctx context.Context, name string, embeddingSize int, doReset bool) (bool, error) {
	pool, err := c.conn()
	if err != nil {
		return false, err
	}

	if doReset {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+ident(name)); err != nil {
			c.logger.Warn("cache reset drop failed, continuing", "cache", name, "error", err)
		}
	}

	exists, err := c.tableExists(ctx, pool, name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	c.logger.Info("creating cache table", "cache", name, "embedding_size", embeddingSize)

	ddl := fmt.Sprintf(
		`CREATE TABLE %s (
			id uuid PRIMARY KEY,
			vector vector(%d),
			response_text text
		)`, ident(name), embeddingSize)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return false, fmt.Errorf("creating cache table %q: %w", name, err)
	}
	return true, nil
}

// Probe returns the nearest stored query embedding and its raw Euclidean
// distance, or (nil, nil) on an empty cache.
func (c *CacheProvider) Probe(ctx context.Context, name string, queryVector []float32) (*vectorstore.CacheHit, error) {
	pool, err := c.conn()
	if err != nil {
		return nil, err
	}

	exists, err := c.tableExists(ctx, pool, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: cache %s", vectorstore.ErrNotFound, name)
	}

	sql := fmt.Sprintf(
		"SELECT id, response_text, vector <-> $1::vector AS distance FROM %s ORDER BY distance LIMIT 1", ident(name))

	var hit vectorstore.CacheHit
	var distance float64
	err = pool.QueryRow(ctx, sql, pgvec.NewVector(queryVector).String()).
		Scan(&hit.Record.ID, &hit.Record.ResponseText, &distance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("probing cache %q: %w", name, err)
	}
	hit.Distance = float32(distance)
	return &hit, nil
}

// Store appends a new cache row under a generated uuid.
func (c *CacheProvider) Store(ctx context.Context, name string, queryVector []float32, responseText string) (bool, error) {
	pool, err := c.conn()
	if err != nil {
		return false, err
	}

	exists, err := c.tableExists(ctx, pool, name)
	if err != nil {
		return false, err
	}
	if !exists {
		c.logger.Error("store into missing cache table", "cache", name)
		return false, nil
	}

	sql := fmt.Sprintf(
		"INSERT INTO %s (id, vector, response_text) VALUES ($1, $2::vector, $3)", ident(name))
	if _, err := pool.Exec(ctx, sql, uuid.New(), pgvec.NewVector(queryVector).String(), responseText); err != nil {
		return false, fmt.Errorf("storing cache entry in %q: %w", name, err)
	}
	return true, nil
}

var _ vectorstore.CacheStore = (*CacheProvider)(nil)
