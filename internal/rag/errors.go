package rag

import (
	"errors"
	"fmt"
)

// Pipeline signal errors. Each names the stage that failed; callers map
// them to user-facing outcomes with errors.Is.
var (
	// ErrQueryExpansion indicates the generator failed to expand the query
	// or returned an empty expansion.
	ErrQueryExpansion = errors.New("query_expansion_failed")

	// ErrEmbedding indicates the embedder returned no usable vector.
	ErrEmbedding = errors.New("embedding_failed")

	// ErrSearch indicates vector retrieval failed or the collection is
	// missing.
	ErrSearch = errors.New("vectordb_search_error")

	// ErrNoAnswer indicates no answer could be produced: retrieval came
	// back empty or generation failed.
	ErrNoAnswer = errors.New("rag_answer_error")

	// ErrIndexing indicates ingestion into the vector store failed.
	ErrIndexing = errors.New("insert_into_vectordb_error")
)

// ErrEmptyRetrieval is the ErrNoAnswer case where retrieval found no
// relevant documents at all. It wraps ErrNoAnswer, so errors.Is matches
// both; callers that care can tell "nothing indexed" apart from a
// generation failure.
var ErrEmptyRetrieval = fmt.Errorf("%w: empty_retrieval", ErrNoAnswer)
