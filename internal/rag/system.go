package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minirag/minirag/internal/chunks"
	"github.com/minirag/minirag/internal/vectorstore"
)

// Config carries the orchestrator tuning knobs. Zero values are replaced
// by defaults in New.
type Config struct {
	// EmbeddingDimension is the fixed vector size for all collections.
	EmbeddingDimension int

	// CacheThreshold is the maximum Euclidean distance at which a cache
	// probe counts as a hit. Raw backend distance, not a similarity.
	CacheThreshold float32

	// SearchLimit is the default number of documents to retrieve.
	SearchLimit int

	// InsertBatchSize controls ingestion sub-batch size.
	InsertBatchSize int

	// PageSize is how many chunks to pull from the source per page
	// during ingestion.
	PageSize int
}

// System runs the retrieval-augmented answer pipeline over one vector
// store backend and one semantic cache. Safe for concurrent use; all
// state lives in the collaborators.
type System struct {
	store     vectorstore.Store
	cache     vectorstore.CacheStore
	embedder  Embedder
	generator Generator
	source    chunks.Source
	cfg       Config
	logger    *slog.Logger
}

// Result is one answered question. FromCache marks answers served from
// the semantic cache; FullPrompt and History are empty for those.
type Result struct {
	Answer     string
	FromCache  bool
	FullPrompt string
	History    []Message
}

// New creates a System. source may be nil when ingestion is not needed
// (answer-only deployments).
func New(store vectorstore.Store, cache vectorstore.CacheStore, embedder Embedder, generator Generator, source chunks.Source, cfg Config, logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SearchLimit < 1 {
		cfg.SearchLimit = 5
	}
	if cfg.InsertBatchSize < 1 {
		cfg.InsertBatchSize = 50
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = 100
	}

	return &System{
		store:     store,
		cache:     cache,
		embedder:  embedder,
		generator: generator,
		source:    source,
		cfg:       cfg,
		logger:    logger.With("component", "rag"),
	}
}

// Answer runs the full pipeline for one question against a project's
// collection. limit <= 0 uses the configured default.
//
// The cache is probed with the ORIGINAL query's embedding before any
// generation happens, so a hit costs one embedding call and nothing
// else. Only on a miss does the pipeline expand the query, embed the
// expansion and continue with retrieval and generation.
func (s *System) Answer(ctx context.Context, projectID int64, query string, limit int) (*Result, error) {
	if limit <= 0 {
		limit = s.cfg.SearchLimit
	}

	queryVec, err := s.embedOne(ctx, query)
	if err != nil {
		return nil, err
	}

	if answer, ok := s.probeCache(ctx, projectID, queryVec); ok {
		s.logger.Debug("cache hit", "project_id", projectID)
		return &Result{Answer: answer, FromCache: true}, nil
	}

	expanded, err := s.ExpandQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	expandedVec, err := s.embedOne(ctx, expanded)
	if err != nil {
		return nil, err
	}

	docs, err := s.retrieve(ctx, projectID, expandedVec, expanded, limit)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no relevant documents for project %d", ErrEmptyRetrieval, projectID)
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	prompt := answerPrompt(query, texts)
	history := []Message{NewMessage(RoleSystem, answerSystemPrompt)}

	answer, err := s.generator.Generate(ctx, prompt, history)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAnswer, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, fmt.Errorf("%w: empty generation", ErrNoAnswer)
	}

	s.storeCache(ctx, projectID, queryVec, answer)

	return &Result{Answer: answer, FullPrompt: prompt, History: history}, nil
}

// ExpandQuery rewrites a question into a more comprehensive single
// question for retrieval.
func (s *System) ExpandQuery(ctx context.Context, query string) (string, error) {
	history := []Message{NewMessage(RoleSystem, queryExpandSystemPrompt)}

	expanded, err := s.generator.Generate(ctx, expansionPrompt(query), history)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrQueryExpansion, err)
	}

	expanded = strings.TrimSpace(expanded)
	if expanded == "" {
		return "", fmt.Errorf("%w: empty expansion", ErrQueryExpansion)
	}
	return expanded, nil
}

// Search expands and embeds a query, then retrieves matching documents
// without generating an answer.
func (s *System) Search(ctx context.Context, projectID int64, query string, limit int) ([]vectorstore.RetrievedDocument, error) {
	if limit <= 0 {
		limit = s.cfg.SearchLimit
	}

	expanded, err := s.ExpandQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	expandedVec, err := s.embedOne(ctx, expanded)
	if err != nil {
		return nil, err
	}

	return s.retrieve(ctx, projectID, expandedVec, expanded, limit)
}

// IndexProject ingests all of a project's chunks into its collection,
// page by page. doReset drops and recreates both the collection and its
// cache first. Returns the number of chunks indexed.
func (s *System) IndexProject(ctx context.Context, projectID int64, doReset bool) (int, error) {
	if s.source == nil {
		return 0, fmt.Errorf("%w: no chunk source configured", ErrIndexing)
	}

	collection := vectorstore.CollectionName(projectID)
	cacheName := vectorstore.CacheName(projectID)

	if _, err := s.store.CreateCollection(ctx, collection, s.cfg.EmbeddingDimension, doReset); err != nil {
		return 0, fmt.Errorf("%w: creating collection %s: %v", ErrIndexing, collection, err)
	}
	if _, err := s.cache.CreateCache(ctx, cacheName, s.cfg.EmbeddingDimension, doReset); err != nil {
		return 0, fmt.Errorf("%w: creating cache %s: %v", ErrIndexing, cacheName, err)
	}

	indexed := 0
	for offset := 0; ; offset += s.cfg.PageSize {
		page, err := s.source.Page(ctx, projectID, offset, s.cfg.PageSize)
		if err != nil {
			return indexed, fmt.Errorf("%w: reading chunks at offset %d: %v", ErrIndexing, offset, err)
		}
		if len(page) == 0 {
			break
		}

		if err := s.indexPage(ctx, collection, page); err != nil {
			return indexed, err
		}
		indexed += len(page)

		s.logger.Debug("indexed chunk page",
			"project_id", projectID,
			"offset", offset,
			"count", len(page))
	}

	s.logger.Info("project indexed", "project_id", projectID, "chunks", indexed)
	return indexed, nil
}

// CollectionInfo reports a project's collection state.
func (s *System) CollectionInfo(ctx context.Context, projectID int64) (*vectorstore.CollectionInfo, error) {
	return s.store.GetCollectionInfo(ctx, vectorstore.CollectionName(projectID))
}

// ResetCollection deletes a project's collection. Returns false when the
// collection did not exist; that is not an error.
func (s *System) ResetCollection(ctx context.Context, projectID int64) (bool, error) {
	return s.store.DeleteCollection(ctx, vectorstore.CollectionName(projectID))
}

func (s *System) indexPage(ctx context.Context, collection string, page []chunks.Chunk) error {
	texts := make([]string, len(page))
	metadatas := make([]map[string]any, len(page))
	ids := make([]int64, len(page))
	for i, c := range page {
		texts[i] = c.Text
		metadatas[i] = c.Metadata
		ids[i] = c.ID
	}

	vectors, err := s.embedder.Embed(ctx, texts, EmbedDocument)
	if err != nil {
		return fmt.Errorf("%w: embedding %d chunks: %v", ErrIndexing, len(texts), err)
	}

	if _, err := s.store.InsertMany(ctx, collection, texts, vectors, metadatas, ids, s.cfg.InsertBatchSize); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexing, err)
	}
	return nil
}

// embedOne embeds a single query-side text.
func (s *System) embedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.embedder.Embed(ctx, []string{text}, EmbedQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: expected 1 vector, got %d", ErrEmbedding, len(vectors))
	}
	return vectors[0], nil
}

// probeCache checks the semantic cache. Any cache failure degrades to a
// miss; the cache must never break the answer path.
func (s *System) probeCache(ctx context.Context, projectID int64, queryVec []float32) (string, bool) {
	hit, err := s.cache.Probe(ctx, vectorstore.CacheName(projectID), queryVec)
	if err != nil {
		if !errors.Is(err, vectorstore.ErrNotFound) {
			s.logger.Warn("cache probe failed", "project_id", projectID, "error", err)
		}
		return "", false
	}
	if hit == nil {
		return "", false
	}
	if hit.Distance > s.cfg.CacheThreshold {
		s.logger.Debug("cache miss",
			"project_id", projectID,
			"distance", hit.Distance,
			"threshold", s.cfg.CacheThreshold)
		return "", false
	}
	return hit.Record.ResponseText, true
}

// storeCache writes an answer into the cache, best-effort.
func (s *System) storeCache(ctx context.Context, projectID int64, queryVec []float32, answer string) {
	if _, err := s.cache.Store(ctx, vectorstore.CacheName(projectID), queryVec, answer); err != nil {
		s.logger.Warn("cache store failed", "project_id", projectID, "error", err)
	}
}

func (s *System) retrieve(ctx context.Context, projectID int64, vector []float32, queryText string, limit int) ([]vectorstore.RetrievedDocument, error) {
	collection := vectorstore.CollectionName(projectID)
	docs, err := s.store.SearchByVector(ctx, collection, vector, limit, queryText)
	if err != nil {
		return nil, fmt.Errorf("%w: searching %s: %v", ErrSearch, collection, err)
	}
	return docs, nil
}
