// Package chunks is the boundary to the external chunk metadata store.
//
// The RAG core consumes chunks only as ingestion input: paginated
// (id, text, metadata) tuples per project. Upstream concerns (file upload,
// document-to-text conversion, chunking) live outside this module; the
// pgx-backed Store here reads the chunks table maintained by that layer.
package chunks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Chunk is one ingestible text fragment. ID is the externally-owned chunk
// identifier that vector records are keyed by.
type Chunk struct {
	ID       int64
	Text     string
	Metadata map[string]any
}

// Source supplies chunks for a project in pages. An empty page signals
// exhaustion; callers must drain all pages before declaring ingestion
// complete.
type Source interface {
	Page(ctx context.Context, projectID int64, offset, limit int) ([]Chunk, error)
}

// Store reads chunks from the relational metadata schema.
// Safe for concurrent use; each call acquires its own pool session.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Store over an existing pool. The pool is managed by
// the caller.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger.With("component", "chunks")}
}

// Page returns one page of a project's chunks ordered by chunk id.
func (s *Store) Page(ctx context.Context, projectID int64, offset, limit int) ([]Chunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT chunk_id, chunk_text, chunk_metadata
		 FROM chunks
		 WHERE chunk_project_id = $1
		 ORDER BY chunk_id
		 OFFSET $2 LIMIT $3`,
		projectID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("querying chunks for project %d: %w", projectID, err)
	}
	defer rows.Close()

	var page []Chunk
	for rows.Next() {
		var c Chunk
		var raw []byte
		if err := rows.Scan(&c.ID, &c.Text, &raw); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &c.Metadata); err != nil {
				s.logger.Warn("unparsable chunk metadata", "chunk_id", c.ID, "error", err)
			}
		}
		page = append(page, c)
	}
	return page, rows.Err()
}

// Count returns the number of chunks stored for a project.
func (s *Store) Count(ctx context.Context, projectID int64) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM chunks WHERE chunk_project_id = $1", projectID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks for project %d: %w", projectID, err)
	}
	return count, nil
}

// Insert stores chunks for a project and returns their generated ids, in
// input order. Used by ingestion tooling and tests; the production writer
// is the upstream processing service.
func (s *Store) Insert(ctx context.Context, projectID int64, texts []string, metadatas []map[string]any) ([]int64, error) {
	if metadatas != nil && len(metadatas) != len(texts) {
		return nil, fmt.Errorf("metadatas length %d does not match texts length %d", len(metadatas), len(texts))
	}

	ids := make([]int64, 0, len(texts))
	for i, text := range texts {
		metadata := []byte("{}")
		if metadatas != nil && metadatas[i] != nil {
			raw, err := json.Marshal(metadatas[i])
			if err != nil {
				return nil, fmt.Errorf("marshaling chunk metadata: %w", err)
			}
			metadata = raw
		}

		var id int64
		err := s.pool.QueryRow(ctx,
			`INSERT INTO chunks (chunk_text, chunk_metadata, chunk_order, chunk_project_id)
			 VALUES ($1, $2, $3, $4)
			 RETURNING chunk_id`,
			text, metadata, i+1, projectID,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("inserting chunk %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var _ Source = (*Store)(nil)
