package ai

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when the service produces a vector whose
// length differs from the configured dimensionality.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrEmptyEmbedding is returned when the service produces no vector for an input.
var ErrEmptyEmbedding = errors.New("embedder returned no vector")

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The full text is embedded as given; no chunking or truncation is applied.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
