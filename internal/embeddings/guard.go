package embeddings

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Guard enforces the failure contract around an Embedder: empty input never
// reaches the service, each call is bounded by a timeout, and every failure
// (including a timeout or an empty vector) surfaces as ErrNoEmbedding.
type Guard struct {
	inner   Embedder
	timeout time.Duration
}

// NewGuard wraps inner. A zero timeout leaves the caller's deadline in charge.
func NewGuard(inner Embedder, timeout time.Duration) *Guard {
	return &Guard{inner: inner, timeout: timeout}
}

// Embed implements Embedder.
func (g *Guard) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty input", ErrNoEmbedding)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	vec, err := g.inner.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoEmbedding, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: %s returned an empty vector", ErrNoEmbedding, g.inner.Name())
	}
	return vec, nil
}

// Dimensions returns the embedding dimension (passthrough to inner).
func (g *Guard) Dimensions() int {
	return g.inner.Dimensions()
}

// Name returns the model identifier (passthrough to inner).
func (g *Guard) Name() string {
	return g.inner.Name()
}
