package rag

import "context"

// EmbedKind selects the task type an embedding is optimized for.
// Asymmetric embedding models produce different vectors for documents
// and queries; both sides of a search must agree on which they are.
type EmbedKind string

const (
	EmbedDocument EmbedKind = "document"
	EmbedQuery    EmbedKind = "query"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a generation conversation.
type Message struct {
	Role    Role
	Content string
}

// NewMessage builds a Message. History slices are always constructed
// fresh per call; they are never shared or reused across requests.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// Embedder turns texts into vectors. Implementations must return one
// vector per input text, in input order, all with the dimension the
// provider was configured for.
type Embedder interface {
	Embed(ctx context.Context, texts []string, kind EmbedKind) ([][]float32, error)
}

// Generator produces a completion for a prompt given prior chat history.
// The returned text is the raw model output with no post-processing.
type Generator interface {
	Generate(ctx context.Context, prompt string, history []Message) (string, error)
}
