package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"google.golang.org/genai"

	"github.com/minirag/minirag/internal/rag"
)

// Task types understood by Google embedding models. Asymmetric: index
// with RETRIEVAL_DOCUMENT, search with RETRIEVAL_QUERY.
const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

// Config selects the models and the embedding dimension.
type Config struct {
	// ModelName is the generation model, e.g. "gemini-2.5-flash".
	ModelName string

	// EmbedderModel is the embedding model, e.g. "text-embedding-004".
	EmbedderModel string

	// EmbeddingDimension truncates embeddings to this size when > 0.
	// Must match the collection dimension.
	EmbeddingDimension int
}

// Client bundles the Genkit instance with the configured models. It
// implements both rag.Embedder and rag.Generator.
type Client struct {
	g        *genkit.Genkit
	embedder ai.Embedder
	cfg      Config
	logger   *slog.Logger
}

// New initializes Genkit with the Google AI plugin and resolves the
// configured embedder. Requires GEMINI_API_KEY in the environment.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, fmt.Errorf("initializing genkit with googleai plugin")
	}

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	return &Client{
		g:        g,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger.With("component", "provider"),
	}, nil
}

// Embed returns one vector per text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string, kind rag.EmbedKind) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	docs := make([]*ai.Document, len(texts))
	for i, text := range texts {
		docs[i] = ai.DocumentFromText(text, nil)
	}

	taskType := taskDocument
	if kind == rag.EmbedQuery {
		taskType = taskQuery
	}

	options := &genai.EmbedContentConfig{TaskType: taskType}
	if c.cfg.EmbeddingDimension > 0 {
		dim := int32(c.cfg.EmbeddingDimension)
		options.OutputDimensionality = &dim
	}

	resp, err := c.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   docs,
		Options: options,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		vectors[i] = emb.Embedding
	}
	return vectors, nil
}

// Generate produces a completion for prompt. System-role history entries
// become the system instruction; the rest is replayed as chat turns
// before the prompt.
func (c *Client) Generate(ctx context.Context, prompt string, history []rag.Message) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName("googleai/" + c.cfg.ModelName),
	}

	messages := make([]*ai.Message, 0, len(history)+1)
	for _, msg := range history {
		switch msg.Role {
		case rag.RoleSystem:
			opts = append(opts, ai.WithSystem(msg.Content))
		case rag.RoleAssistant:
			messages = append(messages, ai.NewModelTextMessage(msg.Content))
		default:
			messages = append(messages, ai.NewUserTextMessage(msg.Content))
		}
	}
	messages = append(messages, ai.NewUserTextMessage(prompt))
	opts = append(opts, ai.WithMessages(messages...))

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating with %s: %w", c.cfg.ModelName, err)
	}
	return resp.Text(), nil
}

var (
	_ rag.Embedder  = (*Client)(nil)
	_ rag.Generator = (*Client)(nil)
)
