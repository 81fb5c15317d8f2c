// Package retriever answers free-text queries with the most relevant stored
// chunks: embed, recall by vector similarity, then rerank.
package retriever

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/ziadkadry99/devflow/internal/embeddings"
	"github.com/ziadkadry99/devflow/internal/rerank"
	"github.com/ziadkadry99/devflow/internal/vectordb"
)

var errScoreCount = errors.New("reranker returned a score count that does not match the candidates")

// DefaultTopK is used when neither the call nor Options name a k.
const DefaultTopK = 3

// Condenser rewrites a conversational question into a short search query.
// Implementations return the input unchanged when they cannot.
type Condenser interface {
	Condense(ctx context.Context, query string) string
}

// Options configures a Retriever.
type Options struct {
	TopK    int           // candidates fetched when the caller passes k <= 0
	Timeout time.Duration // bound for each stage; zero leaves ctx in charge
}

// Result is one retrieved chunk in final order.
type Result struct {
	Text     string  `json:"text"`
	Source   string  `json:"source"`
	Ordinal  int     `json:"ordinal"`
	Distance float32 `json:"distance"`
	Score    float64 `json:"score"`
}

// Retriever is read-only against the store and safe for concurrent use.
type Retriever struct {
	store     vectordb.Store
	embedder  embeddings.Embedder
	reranker  rerank.Reranker
	condenser Condenser
	opts      Options
	logger    *slog.Logger
}

// New creates a Retriever. A nil reranker keeps the recall order.
func New(store vectordb.Store, embedder embeddings.Embedder, reranker rerank.Reranker, opts Options, logger *slog.Logger) *Retriever {
	if reranker == nil {
		reranker = rerank.None{}
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		reranker: reranker,
		opts:     opts,
		logger:   logger,
	}
}

// SetCondenser enables query condensation before embedding.
func (r *Retriever) SetCondenser(c Condenser) {
	r.condenser = c
}

// Retrieve returns up to k chunks, most relevant first. Every failure yields
// an empty result; it is logged, never returned.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) []Result {
	if k <= 0 {
		k = r.opts.TopK
	}
	start := time.Now()

	searchText := query
	if r.condenser != nil {
		searchText = r.condenser.Condense(ctx, query)
	}

	vec, err := r.embed(ctx, searchText)
	if err != nil {
		r.logger.Warn("query_embedding_failed", slog.String("error", err.Error()))
		return []Result{}
	}

	matches, err := r.recall(ctx, vec, k)
	if err != nil {
		r.logger.Warn("query_failed", slog.String("error", err.Error()))
		return []Result{}
	}
	if len(matches) == 0 {
		return []Result{}
	}

	results := make([]Result, len(matches))
	texts := make([]string, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Text:     m.Text,
			Source:   m.Metadata.Source,
			Ordinal:  m.Metadata.Ordinal,
			Distance: m.Distance,
		}
		texts[i] = m.Text
	}

	scores, err := r.score(ctx, query, texts)
	if err != nil {
		// Recall order stands.
		r.logger.Warn("rerank_failed", slog.String("reranker", r.reranker.Name()), slog.String("error", err.Error()))
	} else {
		for i := range results {
			results[i].Score = scores[i]
		}
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
	}

	r.logger.Debug("query_completed",
		slog.Int("k", k),
		slog.Int("results", len(results)),
		slog.Bool("condensed", searchText != query),
		slog.Duration("duration", time.Since(start)))
	return results
}

// RetrieveTexts is Retrieve reduced to chunk texts.
func (r *Retriever) RetrieveTexts(ctx context.Context, query string, k int) []string {
	results := r.Retrieve(ctx, query, k)
	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Text
	}
	return texts
}

func (r *Retriever) stage(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.Timeout > 0 {
		return context.WithTimeout(ctx, r.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

func (r *Retriever) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := r.stage(ctx)
	defer cancel()
	return r.embedder.Embed(ctx, text)
}

func (r *Retriever) recall(ctx context.Context, vec []float32, k int) ([]vectordb.Match, error) {
	ctx, cancel := r.stage(ctx)
	defer cancel()
	return r.store.SimilarityQuery(ctx, vec, k)
}

func (r *Retriever) score(ctx context.Context, query string, texts []string) ([]float64, error) {
	ctx, cancel := r.stage(ctx)
	defer cancel()
	scores, err := r.reranker.Score(ctx, query, texts)
	if err == nil && len(scores) != len(texts) {
		return nil, errScoreCount
	}
	return scores, err
}

// Sources returns the distinct document base names of results, in order.
func Sources(results []Result) []string {
	seen := make(map[string]bool)
	var out []string
	for _, res := range results {
		name := filepath.Base(res.Source)
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
