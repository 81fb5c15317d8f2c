// Package embeddings maps text to dense vectors through an external embedding service.
package embeddings

import (
	"context"
	"errors"
)

// ErrNoEmbedding means no vector was produced for the input. Callers skip the
// item; they never substitute a zero or stale vector.
var ErrNoEmbedding = errors.New("no embedding")

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates the embedding of a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}
