// Package rerank rescores retrieval candidates against the original query.
package rerank

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ziadkadry99/devflow/internal/config"
)

// Reranker scores each candidate against the query. Scores are returned in
// candidate order; higher means more relevant.
type Reranker interface {
	Score(ctx context.Context, query string, candidates []string) ([]float64, error)
	Name() string
}

// New builds the Reranker selected by cfg.
func New(cfg config.RerankConfig, logger *slog.Logger) (Reranker, error) {
	switch cfg.Provider {
	case config.RerankHTTP:
		return NewHTTP(HTTPConfig{
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
			Timeout:  cfg.Timeout(),
			Logger:   logger,
		}), nil
	case config.RerankLexical, "":
		return Lexical{}, nil
	case config.RerankNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown rerank provider %q", config.ErrConfig, cfg.Provider)
	}
}

// None keeps the recall order by giving every candidate the same score.
type None struct{}

func (None) Name() string { return "none" }

func (None) Score(_ context.Context, _ string, candidates []string) ([]float64, error) {
	return make([]float64, len(candidates)), nil
}

// DefaultTimeout bounds a rerank request when none is configured.
const DefaultTimeout = 30 * time.Second
