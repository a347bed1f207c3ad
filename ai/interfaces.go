package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Errors should wrap ErrRateLimited, ErrTransient or ErrFatal so callers
	// can decide whether to retry.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatModel produces a completion for a system prompt and a user prompt.
// Implementations must be thread-safe for concurrent use.
type ChatModel interface {
	// Complete returns the model's reply to prompt under the given system instructions.
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and ChatModel instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// ChatModel returns the chat completion service.
	// The returned ChatModel is safe for concurrent use.
	ChatModel() ChatModel

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
