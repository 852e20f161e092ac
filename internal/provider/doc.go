// Package provider implements the rag AI ports on Genkit with the
// Google AI plugin. The orchestrator depends only on the rag.Embedder
// and rag.Generator interfaces; swapping the model vendor means swapping
// this package's constructors, nothing else.
package provider
