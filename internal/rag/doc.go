// Package rag orchestrates the retrieval-augmented answer pipeline.
//
// The System coordinates four collaborators, all consumer-defined
// interfaces: an Embedder and a Generator (AI provider ports), a
// vectorstore.Store (project collections) and a vectorstore.CacheStore
// (semantic answer cache). A question flows through the stages
//
//	embed query -> probe cache -> expand -> embed expansion -> retrieve -> generate -> store cache
//
// in order. A cache hit within the configured distance threshold
// short-circuits everything past the probe: the generator is never
// invoked for a cached answer. Cache writes are best-effort: a failed
// write is logged and never fails the answer.
//
// The cache key is always the embedding of the ORIGINAL query, while
// retrieval uses the embedding of the EXPANDED query. Mixing the two up
// silently degrades cache hit rates, so both vectors are computed once
// up front and threaded through explicitly.
package rag
