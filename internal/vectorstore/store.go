package vectorstore

import "context"

// Store is the uniform interface over vector storage backends.
//
// Return semantics follow a recover-locally policy: conditions a caller can
// treat as idempotent no-ops (creating a collection that already exists,
// deleting one that does not, inserting into a missing collection) yield a
// false boolean result and a nil error. Errors are reserved for
// precondition violations and backend failures (see errors.go).
//
// Implementations must be safe for concurrent use: every operation either
// acquires its own backend session or uses a connection that tolerates
// concurrent independent calls. No ordering is guaranteed between
// concurrent InsertMany calls on the same collection.
type Store interface {
	// Connect establishes the backend connection. It must be called before
	// any other operation.
	Connect(ctx context.Context) error

	// Disconnect releases the backend connection. Idempotent.
	Disconnect(ctx context.Context) error

	// CollectionExists reports whether the named collection exists.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// ListCollections returns the names of all main collections.
	ListCollections(ctx context.Context) ([]string, error)

	// GetCollectionInfo returns record count and backend metadata for the
	// named collection. Fails with ErrNotFound if it does not exist.
	GetCollectionInfo(ctx context.Context, name string) (*CollectionInfo, error)

	// DeleteCollection drops the named collection. Returns true if a
	// collection was actually dropped, false if it did not exist.
	DeleteCollection(ctx context.Context, name string) (bool, error)

	// CreateCollection creates the named collection with the given dense
	// embedding size. When doReset is true any existing collection is
	// deleted first; the deletion completes before creation proceeds.
	// Returns true only if a new collection was created, false if one
	// already existed and doReset was false.
	CreateCollection(ctx context.Context, name string, embeddingSize int, doReset bool) (bool, error)

	// InsertOne stores a single record. Returns false (logged, no error)
	// if the collection does not exist or the record id is missing.
	InsertOne(ctx context.Context, name string, rec Record) (bool, error)

	// InsertMany stores records in fixed-size batches, applied in order
	// within this call. Preconditions: texts, vectors and ids must have
	// equal lengths; violation fails the whole call with ErrPrecondition.
	// A nil metadatas defaults to empty metadata per record. A failure
	// mid-batch aborts the remaining batches.
	InsertMany(ctx context.Context, name string, texts []string, vectors [][]float32, metadatas []map[string]any, ids []int64, batchSize int) (bool, error)

	// SearchByVector returns up to limit documents ordered by descending
	// score. queryText is used by hybrid backends for the sparse candidate
	// list and ignored by others.
	SearchByVector(ctx context.Context, name string, queryVector []float32, limit int, queryText string) ([]RetrievedDocument, error)
}

// CacheStore is the semantic answer cache: a vector collection keyed purely
// by query embeddings, with the distance metric fixed to Euclidean
// regardless of the main store's configuration. Cache hit/miss is a
// nearness threshold decision, so a stable bounded metric is preferred
// over the ranking metric of the main collections.
//
// The cache connection has a lifecycle independent from the main store and
// must be connected and disconnected separately.
type CacheStore interface {
	// Connect establishes the cache backend connection.
	Connect(ctx context.Context) error

	// Disconnect releases the cache backend connection. Idempotent.
	Disconnect(ctx context.Context) error

	// CreateCache creates the named cache collection. Same semantics as
	// Store.CreateCollection, on the cache namespace.
	CreateCache(ctx context.Context, name string, embeddingSize int, doReset bool) (bool, error)

	// Probe returns the single nearest neighbor to queryVector with its
	// raw distance, or (nil, nil) on an empty cache. The threshold
	// comparison is the caller's responsibility. A missing cache
	// collection is reported as ErrNotFound.
	Probe(ctx context.Context, name string, queryVector []float32) (*CacheHit, error)

	// Store appends a new cache entry with a generated id. Entries are
	// never overwritten.
	Store(ctx context.Context, name string, queryVector []float32, responseText string) (bool, error)
}
