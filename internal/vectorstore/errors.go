package vectorstore

import "errors"

// Error taxonomy shared by all backends.
//
// NotFound and idempotent no-op conditions (duplicate create, delete of a
// missing collection) are recovered locally and surfaced through boolean
// results, never as errors. The sentinels below cover the conditions that
// do abort an operation; wrap them with fmt.Errorf("...: %w", Err...) so
// callers can classify failures with errors.Is.
var (
	// ErrNotFound indicates the requested collection or table does not exist.
	ErrNotFound = errors.New("collection not found")

	// ErrPrecondition indicates invalid caller input: mismatched slice
	// lengths, a missing record id, or a vector whose dimensionality does
	// not match the collection's configured embedding size.
	ErrPrecondition = errors.New("precondition violation")

	// ErrBackendUnavailable indicates the backend connection or session
	// could not be established or failed mid-operation.
	ErrBackendUnavailable = errors.New("vector backend unavailable")

	// ErrPartialBatch indicates a batch within a larger insert failed.
	// Remaining batches are not attempted.
	ErrPartialBatch = errors.New("batch insert failed")
)
