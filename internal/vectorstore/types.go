package vectorstore

import "github.com/google/uuid"

// DistanceMetric selects the similarity function configured for a
// collection's dense vectors.
type DistanceMetric string

const (
	DistanceCosine    DistanceMetric = "cosine"
	DistanceEuclidean DistanceMetric = "euclid"
	DistanceDot       DistanceMetric = "dot"
)

// Record is a single vector record to be stored in a collection.
//
// ID is supplied by the caller: it is the external chunk identifier, not a
// backend-generated key, which couples vector storage 1:1 with the chunk
// entity owned by the metadata store. Vector length must equal the
// collection's configured embedding size.
type Record struct {
	ID       int64
	Text     string
	Vector   []float32
	Metadata map[string]any
}

// RetrievedDocument is one search result.
//
// Score semantics depend on the backend: cosine similarity for the qdrant
// dense path, a fused rank score for hybrid search, and 1 - cosine_distance
// for pgvector. Higher is always better within one backend, but scores are
// not comparable across backends.
type RetrievedDocument struct {
	Text  string
	Score float32
}

// CollectionInfo describes an existing collection.
type CollectionInfo struct {
	Name        string
	RecordCount int64

	// Backend holds backend-specific details (index status, table owner,
	// segment counts) keyed by backend-chosen names.
	Backend map[string]any
}

// CacheRecord is a stored semantic-cache entry. Entries are append-only:
// they are matched or superseded by newer entries, never updated.
type CacheRecord struct {
	ID           uuid.UUID
	ResponseText string
}

// CacheHit is the nearest neighbor returned by a cache probe together with
// its raw distance. The cache itself never decides hit or miss; the caller
// compares Distance against its configured threshold.
type CacheHit struct {
	Record   CacheRecord
	Distance float32
}
