// Package vectorstore defines the backend-agnostic vector storage abstraction
// used by the RAG pipeline.
//
// Two structurally different backends implement the Store interface:
//
//   - qdrant: a native vector engine with hybrid dense+sparse retrieval
//     (see internal/vectorstore/qdrant)
//   - pgvector: PostgreSQL tables with a vector column and a manually
//     managed similarity index (see internal/vectorstore/pgvector)
//
// The CacheStore interface covers the semantic answer cache: a dedicated
// vector collection keyed by query embeddings, probed by nearest-neighbor
// distance. Both backends provide an implementation with an independent
// connection lifecycle from the main store.
//
// Score semantics are backend-relative and deliberately not normalized
// across backends: the qdrant dense path reports cosine similarity, the
// hybrid path a fused rank score, and pgvector reports 1 - cosine_distance.
// Callers must not compare scores produced by different backends.
package vectorstore
