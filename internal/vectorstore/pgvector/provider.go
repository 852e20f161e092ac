// Package pgvector implements the vectorstore interfaces on PostgreSQL
// with the pgvector extension.
//
// Each logical collection is one table named after the collection, holding
// the chunk text, a vector column fixed to the collection's embedding size,
// JSONB metadata and a foreign key to the external chunks table. Similarity
// indexes are not created with the table: index creation is gated by a
// configurable row-count threshold, since building an HNSW structure over a
// near-empty table wastes work and produces a low-quality graph.
//
// Vector values cross the wire as bracketed comma-joined decimal literals
// ("[v0,v1,...,vn]", no spaces); pgvector-go's Vector type produces exactly
// this encoding.
package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"

	"github.com/minirag/minirag/internal/vectorstore"
)

// Config holds the relational backend configuration.
type Config struct {
	// ConnString is a pgx-compatible DSN or URL.
	ConnString string

	// Distance selects the operator class for similarity indexes.
	// Search scoring always uses cosine distance (1 - (vector <=> q)).
	Distance vectorstore.DistanceMetric

	// IndexThreshold is the minimum row count before a similarity index is
	// built on a collection table.
	IndexThreshold int
}

// Provider implements vectorstore.Store on PostgreSQL + pgvector.
//
// The pgxpool is the process-wide session factory: each operation acquires
// an independent session from the pool, so the Provider is safe for
// concurrent use. Index creation is not serialized against concurrent
// inserts; the threshold race is tolerated because index maintenance is
// not correctness-critical.
type Provider struct {
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	pool *pgxpool.Pool

	// sizes records the embedding size per collection created by this
	// process, for client-side dimension checks on insert.
	sizes sync.Map // map[string]int
}

// New creates a Provider. Connect must be called before use.
func New(cfg Config, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{cfg: cfg, logger: logger.With("component", "pgvector")}
}

// NewWithPool wraps an existing pool, primarily for tests that manage their
// own database lifecycle. Disconnect closes the given pool.
func NewWithPool(pool *pgxpool.Pool, cfg Config, logger *slog.Logger) *Provider {
	p := New(cfg, logger)
	p.pool = pool
	return p
}

// Connect creates the connection pool and ensures the vector extension is
// installed.
func (p *Provider) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pool == nil {
		pool, err := pgxpool.New(ctx, p.cfg.ConnString)
		if err != nil {
			return fmt.Errorf("%w: creating pool: %w", vectorstore.ErrBackendUnavailable, err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("%w: pinging postgres: %w", vectorstore.ErrBackendUnavailable, err)
		}
		p.pool = pool
	}

	if _, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		// Non-fatal: the extension may already be installed by a role with
		// more privileges than ours.
		p.logger.Warn("vector extension setup", "error", err)
	}
	return nil
}

// Disconnect closes the pool. Idempotent.
func (p *Provider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}

func (p *Provider) conn() (*pgxpool.Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool == nil {
		return nil, fmt.Errorf("%w: not connected", vectorstore.ErrBackendUnavailable)
	}
	return p.pool, nil
}

// CollectionExists reports whether the collection table exists.
func (p *Provider) CollectionExists(ctx context.Context, name string) (bool, error) {
	pool, err := p.conn()
	if err != nil {
		return false, err
	}

	var exists bool
	err = pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_tables WHERE tablename = $1)", name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking table %q: %w", name, err)
	}
	return exists, nil
}

// ListCollections returns all main collection tables.
func (p *Provider) ListCollections(ctx context.Context) ([]string, error) {
	pool, err := p.conn()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx,
		"SELECT tablename FROM pg_tables WHERE tablename LIKE $1",
		vectorstore.CollectionPrefix+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning collection name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetCollectionInfo returns the row count and pg_tables metadata for a
// collection table.
func (p *Provider) GetCollectionInfo(ctx context.Context, name string) (*vectorstore.CollectionInfo, error) {
	pool, err := p.conn()
	if err != nil {
		return nil, err
	}

	var schema, owner string
	var hasIndexes bool
	err = pool.QueryRow(ctx,
		"SELECT schemaname, tableowner, hasindexes FROM pg_tables WHERE tablename = $1", name,
	).Scan(&schema, &owner, &hasIndexes)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", vectorstore.ErrNotFound, name)
		}
		return nil, fmt.Errorf("reading table info for %q: %w", name, err)
	}

	var count int64
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+ident(name)).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting rows in %q: %w", name, err)
	}

	return &vectorstore.CollectionInfo{
		Name:        name,
		RecordCount: count,
		Backend: map[string]any{
			"schemaname": schema,
			"tableowner": owner,
			"hasindexes": hasIndexes,
		},
	}, nil
}

// DeleteCollection drops the collection table if it exists.
func (p *Provider) DeleteCollection(ctx context.Context, name string) (bool, error) {
	pool, err := p.conn()
	if err != nil {
		return false, err
	}

	exists, err := p.CollectionExists(ctx, name)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	p.logger.Info("deleting collection", "collection", name)
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+ident(name)); err != nil {
		return false, fmt.Errorf("dropping table %q: %w", name, err)
	}
	p.sizes.Delete(name)
	return true, nil
}

// CreateCollection creates the collection table. When doReset is set the
// existing table is dropped and the drop completes before creation
// proceeds; a failed drop is logged and creation continues.
func (p *Provider) CreateCollection(ctx context.Context, name string, embeddingSize int, doReset bool) (bool, error) {
	pool, err := p.conn()
	if err != nil {
		return false, err
	}

	if doReset {
		if _, err := p.DeleteCollection(ctx, name); err != nil {
			p.logger.Warn("reset delete failed, continuing with create", "collection", name, "error", err)
		}
	}

	exists, err := p.CollectionExists(ctx, name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	p.logger.Info("creating collection", "collection", name, "embedding_size", embeddingSize)

	ddl := fmt.Sprintf(
		`CREATE TABLE %s (
			id bigserial PRIMARY KEY,
			text text,
			vector vector(%d),
			metadata jsonb DEFAULT '{}',
			chunk_id bigint,
			FOREIGN KEY (chunk_id) REFERENCES chunks(chunk_id)
		)`, ident(name), embeddingSize)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return false, fmt.Errorf("creating table %q: %w", name, err)
	}

	p.sizes.Store(name, embeddingSize)
	return true, nil
}

// IndexExists reports whether the similarity index for a collection exists.
func (p *Provider) IndexExists(ctx context.Context, name string) (bool, error) {
	pool, err := p.conn()
	if err != nil {
		return false, err
	}

	var exists bool
	err = pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE tablename = $1 AND indexname = $2)",
		name, vectorstore.IndexName(name),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking index on %q: %w", name, err)
	}
	return exists, nil
}

// CreateVectorIndex builds the HNSW similarity index for a collection once
// its row count reaches the configured threshold. Returns true only when an
// index was actually created. Runs after every insert; skipping below the
// threshold keeps near-empty tables index-free.
func (p *Provider) CreateVectorIndex(ctx context.Context, name string) (bool, error) {
	pool, err := p.conn()
	if err != nil {
		return false, err
	}

	exists, err := p.IndexExists(ctx, name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	var count int64
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+ident(name)).Scan(&count); err != nil {
		return false, fmt.Errorf("counting rows in %q: %w", name, err)
	}
	if count < int64(p.cfg.IndexThreshold) {
		return false, nil
	}

	p.logger.Info("creating vector index", "collection", name, "rows", count)

	ddl := fmt.Sprintf("CREATE INDEX %s ON %s USING hnsw (vector %s)",
		ident(vectorstore.IndexName(name)), ident(name), opClass(p.cfg.Distance))
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return false, fmt.Errorf("creating index on %q: %w", name, err)
	}
	return true, nil
}

// ResetVectorIndex drops and rebuilds the similarity index. The rebuild is
// still subject to the row-count threshold.
func (p *Provider) ResetVectorIndex(ctx context.Context, name string) (bool, error) {
	pool, err := p.conn()
	if err != nil {
		return false, err
	}

	if _, err := pool.Exec(ctx, "DROP INDEX IF EXISTS "+ident(vectorstore.IndexName(name))); err != nil {
		return false, fmt.Errorf("dropping index on %q: %w", name, err)
	}
	return p.CreateVectorIndex(ctx, name)
}

// InsertOne stores a single record and triggers the index policy check.
func (p *Provider) InsertOne(ctx context.Context, name string, rec vectorstore.Record) (bool, error) {
	pool, err := p.conn()
	if err != nil {
		return false, err
	}

	exists, err := p.CollectionExists(ctx, name)
	if err != nil {
		return false, err
	}
	if !exists {
		p.logger.Error("insert into missing collection", "collection", name)
		return false, nil
	}
	if rec.ID == 0 {
		p.logger.Error("insert without chunk id", "collection", name)
		return false, nil
	}
	if err := p.checkDimension(name, rec.Vector); err != nil {
		return false, err
	}

	metadata, err := metadataJSON(rec.Metadata)
	if err != nil {
		return false, err
	}

	sql := fmt.Sprintf(
		"INSERT INTO %s (text, vector, metadata, chunk_id) VALUES ($1, $2::vector, $3, $4)", ident(name))
	if _, err := pool.Exec(ctx, sql, rec.Text, pgvec.NewVector(rec.Vector).String(), metadata, rec.ID); err != nil {
		return false, fmt.Errorf("inserting into %q: %w", name, err)
	}

	if _, err := p.CreateVectorIndex(ctx, name); err != nil {
		p.logger.Warn("index maintenance after insert failed", "collection", name, "error", err)
	}
	return true, nil
}

// InsertMany stores records as one multi-row insert per batch, all batches
// inside a single transaction. A failure mid-batch rolls back and aborts
// the remaining batches.
func (p *Provider) InsertMany(ctx context.Context, name string, texts []string, vectors [][]float32, metadatas []map[string]any, ids []int64, batchSize int) (bool, error) {
	pool, err := p.conn()
	if err != nil {
		return false, err
	}

	if len(vectors) != len(ids) || len(vectors) != len(texts) {
		return false, fmt.Errorf("%w: texts=%d vectors=%d ids=%d", vectorstore.ErrPrecondition, len(texts), len(vectors), len(ids))
	}
	if metadatas == nil {
		metadatas = make([]map[string]any, len(texts))
	}
	if len(metadatas) != len(texts) {
		return false, fmt.Errorf("%w: metadatas=%d texts=%d", vectorstore.ErrPrecondition, len(metadatas), len(texts))
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	exists, err := p.CollectionExists(ctx, name)
	if err != nil {
		return false, err
	}
	if !exists {
		p.logger.Error("insert into missing collection", "collection", name)
		return false, nil
	}

	for _, vec := range vectors {
		if err := p.checkDimension(name, vec); err != nil {
			return false, err
		}
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: beginning insert transaction: %w", vectorstore.ErrBackendUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))

		sql, args, err := batchInsertSQL(name, texts[start:end], vectors[start:end], metadatas[start:end], ids[start:end])
		if err != nil {
			return false, err
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return false, fmt.Errorf("%w: collection %q batch at %d: %w", vectorstore.ErrPartialBatch, name, start, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing insert into %q: %w", name, err)
	}

	if _, err := p.CreateVectorIndex(ctx, name); err != nil {
		p.logger.Warn("index maintenance after insert failed", "collection", name, "error", err)
	}
	return true, nil
}

// SearchByVector runs a similarity-ordered query. The reported score is
// 1 - cosine_distance so higher is always better, matching the native
// backend's convention. queryText is ignored; this backend has no sparse
// path.
func (p *Provider) SearchByVector(ctx context.Context, name string, queryVector []float32, limit int, queryText string) ([]vectorstore.RetrievedDocument, error) {
	pool, err := p.conn()
	if err != nil {
		return nil, err
	}

	exists, err := p.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", vectorstore.ErrNotFound, name)
	}

	sql := fmt.Sprintf(
		"SELECT text, 1 - (vector <=> $1::vector) AS score FROM %s ORDER BY score DESC LIMIT $2", ident(name))
	rows, err := pool.Query(ctx, sql, pgvec.NewVector(queryVector).String(), limit)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", name, err)
	}
	defer rows.Close()

	var docs []vectorstore.RetrievedDocument
	for rows.Next() {
		var doc vectorstore.RetrievedDocument
		var score float64
		if err := rows.Scan(&doc.Text, &score); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		doc.Score = float32(score)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (p *Provider) checkDimension(name string, vec []float32) error {
	if size, ok := p.sizes.Load(name); ok {
		if want := size.(int); len(vec) != want {
			return fmt.Errorf("%w: vector dimension %d, collection %q expects %d", vectorstore.ErrPrecondition, len(vec), name, want)
		}
	}
	return nil
}

// batchInsertSQL builds one multi-row insert statement for a batch.
func batchInsertSQL(name string, texts []string, vectors [][]float32, metadatas []map[string]any, ids []int64) (string, []any, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (text, vector, metadata, chunk_id) VALUES ", ident(name))

	args := make([]any, 0, len(texts)*4)
	for i := range texts {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 4
		fmt.Fprintf(&sb, "($%d, $%d::vector, $%d, $%d)", base+1, base+2, base+3, base+4)

		metadata, err := metadataJSON(metadatas[i])
		if err != nil {
			return "", nil, err
		}
		args = append(args, texts[i], pgvec.NewVector(vectors[i]).String(), metadata, ids[i])
	}
	return sb.String(), args, nil
}

func metadataJSON(metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling metadata: %w", vectorstore.ErrPrecondition, err)
	}
	return string(raw), nil
}

// ident quotes a collection or index name for interpolation into DDL and
// queries, where placeholders cannot be used for identifiers.
func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func opClass(metric vectorstore.DistanceMetric) string {
	switch metric {
	case vectorstore.DistanceEuclidean:
		return "vector_l2_ops"
	case vectorstore.DistanceDot:
		return "vector_ip_ops"
	default:
		return "vector_cosine_ops"
	}
}

const defaultBatchSize = 50

var _ vectorstore.Store = (*Provider)(nil)
