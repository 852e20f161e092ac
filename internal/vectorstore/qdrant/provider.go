// Package qdrant implements the vectorstore interfaces on the Qdrant
// vector engine.
//
// Each logical collection carries two named vector fields per point: a
// dense field holding the caller-supplied embedding and a sparse field
// holding IDF-weighted term weights derived from the raw text. Searches
// prefetch candidates from both fields and fuse them server-side with
// distribution-based score fusion.
//
// The semantic cache lives on its own Qdrant endpoint with an independent
// connection lifecycle (see cache.go); never assume one client serves both.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/qdrant/go-client/qdrant"

	"github.com/minirag/minirag/internal/vectorstore"
)

// Named vector fields configured on every collection.
const (
	denseField  = "dense"
	sparseField = "sparse"
)

// Config holds Qdrant connection configuration for one endpoint.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool

	// Distance is the metric for the dense field. Defaults to cosine.
	Distance vectorstore.DistanceMetric
}

// Provider implements vectorstore.Store backed by Qdrant.
// Safe for concurrent use; the underlying gRPC client multiplexes calls.
type Provider struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	client *qdrant.Client

	// sizes records the embedding size per collection created or observed
	// by this process, for client-side dimension checks on insert.
	sizes sync.Map // map[string]int
}

// New creates a Provider. Connect must be called before use.
func New(cfg Config, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{cfg: cfg, logger: logger.With("component", "qdrant")}
}

// Connect establishes the gRPC client and verifies the server is reachable.
func (p *Provider) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return nil
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   p.cfg.Host,
		Port:   p.cfg.Port,
		APIKey: p.cfg.APIKey,
		UseTLS: p.cfg.UseTLS,
	})
	if err != nil {
		return fmt.Errorf("%w: creating qdrant client: %w", vectorstore.ErrBackendUnavailable, err)
	}

	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("%w: qdrant health check: %w", vectorstore.ErrBackendUnavailable, err)
	}

	p.client = client
	p.logger.Debug("connected", "host", p.cfg.Host, "port", p.cfg.Port)
	return nil
}

// Disconnect closes the client. Idempotent.
func (p *Provider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	if err != nil {
		return fmt.Errorf("closing qdrant client: %w", err)
	}
	return nil
}

func (p *Provider) conn() (*qdrant.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil, fmt.Errorf("%w: not connected", vectorstore.ErrBackendUnavailable)
	}
	return p.client, nil
}

// CollectionExists reports whether the named collection exists.
func (p *Provider) CollectionExists(ctx context.Context, name string) (bool, error) {
	client, err := p.conn()
	if err != nil {
		return false, err
	}
	exists, err := client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("checking collection %q: %w", name, err)
	}
	return exists, nil
}

// ListCollections returns all collection names on the endpoint.
func (p *Provider) ListCollections(ctx context.Context) ([]string, error) {
	client, err := p.conn()
	if err != nil {
		return nil, err
	}
	names, err := client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return names, nil
}

// GetCollectionInfo returns point count and engine status for a collection.
func (p *Provider) GetCollectionInfo(ctx context.Context, name string) (*vectorstore.CollectionInfo, error) {
	client, err := p.conn()
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

	info, err := client.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("getting collection info for %q: %w", name, err)
	}

	var count int64
	if info.PointsCount != nil {
		count = int64(*info.PointsCount) // #nosec G115 -- point counts fit in int64
	}

	backend := map[string]any{
		"status":         info.GetStatus().String(),
		"segments_count": info.GetSegmentsCount(),
	}
	if info.IndexedVectorsCount != nil {
		backend["indexed_vectors_count"] = *info.IndexedVectorsCount
	}

	return &vectorstore.CollectionInfo{
		Name:        name,
		RecordCount: count,
		Backend:     backend,
	}, nil
}

// DeleteCollection drops the collection if it exists.
func (p *Provider) DeleteCollection(ctx context.Context, name string) (bool, error) {
	client, err := p.conn()
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

	if err := client.DeleteCollection(ctx, name); err != nil {
		return false, fmt.Errorf("deleting collection %q: %w", name, err)
	}
	p.sizes.Delete(name)
	p.logger.Info("deleted collection", "collection", name)
	return true, nil
}

// CreateCollection creates a hybrid collection with a dense field sized to
// embeddingSize and an IDF-modified sparse field. An existing collection is
// left untouched unless doReset is set, in which case deletion completes
// before creation proceeds.
func (p *Provider) CreateCollection(ctx context.Context, name string, embeddingSize int, doReset bool) (bool, error) {
	client, err := p.conn()
	if err != nil {
		return false, err
	}

	if doReset {
		// Best effort: a failed delete must not abort creation.
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

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			denseField: {
				Size:     uint64(embeddingSize), // #nosec G115 -- validated positive by config
				Distance: distanceOf(p.cfg.Distance),
			},
		}),
		SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
			sparseField: {
				Modifier: qdrant.Modifier_Idf.Enum(),
			},
		}),
	})
	if err != nil {
		return false, fmt.Errorf("creating collection %q: %w", name, err)
	}

	p.sizes.Store(name, embeddingSize)
	return true, nil
}

// InsertOne stores a single record with its dense vector and the sparse
// term weights derived from the text.
func (p *Provider) InsertOne(ctx context.Context, name string, rec vectorstore.Record) (bool, error) {
	client, err := p.conn()
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

	_, err = client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Points:         []*qdrant.PointStruct{p.point(rec)},
	})
	if err != nil {
		return false, fmt.Errorf("inserting into %q: %w", name, err)
	}
	return true, nil
}

// InsertMany stores records in fixed-size batches, in order. A failed batch
// aborts the remaining ones.
func (p *Provider) InsertMany(ctx context.Context, name string, texts []string, vectors [][]float32, metadatas []map[string]any, ids []int64, batchSize int) (bool, error) {
	client, err := p.conn()
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

	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))

		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, p.point(vectorstore.Record{
				ID:       ids[i],
				Text:     texts[i],
				Vector:   vectors[i],
				Metadata: metadatas[i],
			}))
		}

		if _, err := client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		}); err != nil {
			return false, fmt.Errorf("%w: collection %q batch at %d: %w", vectorstore.ErrPartialBatch, name, start, err)
		}
	}

	return true, nil
}

// SearchByVector runs hybrid retrieval: a dense prefetch on the query
// vector and a sparse prefetch on term weights from queryText, fused
// server-side with DBSF into one top-limit list. With an empty queryText
// the search degrades to dense-only.
func (p *Provider) SearchByVector(ctx context.Context, name string, queryVector []float32, limit int, queryText string) ([]vectorstore.RetrievedDocument, error) {
	client, err := p.conn()
	if err != nil {
		return nil, err
	}

	points, err := client.Query(ctx, searchQuery(name, queryVector, limit, queryText))
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", name, err)
	}

	docs := make([]vectorstore.RetrievedDocument, 0, len(points))
	for _, point := range points {
		text := ""
		if v, ok := point.Payload["text"]; ok {
			text = v.GetStringValue()
		}
		docs = append(docs, vectorstore.RetrievedDocument{
			Text:  text,
			Score: point.Score,
		})
	}
	return docs, nil
}

// searchQuery builds the retrieval request. With sparse terms available
// it prefetches from both fields and fuses with DBSF; without them the
// request is a plain dense query.
func searchQuery(name string, queryVector []float32, limit int, queryText string) *qdrant.QueryPoints {
	prefetchLimit := qdrant.PtrOf(uint64(limit)) // #nosec G115 -- limit validated positive by callers

	query := &qdrant.QueryPoints{
		CollectionName: name,
		Limit:          prefetchLimit,
		WithPayload:    qdrant.NewWithPayload(true),
	}

	indices, values := encodeSparse(queryText)
	if len(indices) > 0 {
		query.Prefetch = []*qdrant.PrefetchQuery{
			{
				Query: qdrant.NewQueryDense(queryVector),
				Using: qdrant.PtrOf(denseField),
				Limit: prefetchLimit,
			},
			{
				Query: qdrant.NewQuerySparse(indices, values),
				Using: qdrant.PtrOf(sparseField),
				Limit: prefetchLimit,
			},
		}
		query.Query = qdrant.NewQueryFusion(qdrant.Fusion_DBSF)
	} else {
		query.Query = qdrant.NewQueryDense(queryVector)
		query.Using = qdrant.PtrOf(denseField)
	}

	return query
}

// point builds the hybrid PointStruct for one record. The sparse field is
// derived from the raw text; the caller never supplies it.
func (p *Provider) point(rec vectorstore.Record) *qdrant.PointStruct {
	vectors := map[string]*qdrant.Vector{
		denseField: qdrant.NewVectorDense(rec.Vector),
	}
	if indices, values := encodeSparse(rec.Text); len(indices) > 0 {
		vectors[sparseField] = qdrant.NewVectorSparse(indices, values)
	}

	payload := map[string]any{"text": rec.Text}
	if rec.Metadata != nil {
		payload["metadata"] = rec.Metadata
	}

	return &qdrant.PointStruct{
		Id:      qdrant.NewIDNum(uint64(rec.ID)), // #nosec G115 -- chunk ids are positive
		Vectors: qdrant.NewVectorsMap(vectors),
		Payload: qdrant.NewValueMap(payload),
	}
}

func (p *Provider) checkDimension(name string, vec []float32) error {
	if size, ok := p.sizes.Load(name); ok {
		if want := size.(int); len(vec) != want {
			return fmt.Errorf("%w: vector dimension %d, collection %q expects %d", vectorstore.ErrPrecondition, len(vec), name, want)
		}
	}
	return nil
}

func distanceOf(metric vectorstore.DistanceMetric) qdrant.Distance {
	switch metric {
	case vectorstore.DistanceEuclidean:
		return qdrant.Distance_Euclid
	case vectorstore.DistanceDot:
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

const defaultBatchSize = 50

var _ vectorstore.Store = (*Provider)(nil)
