// Package assistant ties retrieval, answer generation and history together
// for the CLI, the HTTP API and the MCP server.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ziadkadry99/devflow/internal/history"
	"github.com/ziadkadry99/devflow/internal/indexer"
	"github.com/ziadkadry99/devflow/internal/llm"
	"github.com/ziadkadry99/devflow/internal/retriever"
)

// ErrEmptyQuery is returned for blank questions.
var ErrEmptyQuery = errors.New("query is required")

// ErrNoAnswerer is returned by Ask when no text-generation provider is set.
var ErrNoAnswerer = errors.New("answer generation is not configured")

// Options wires a Service. Answerer and History are optional.
type Options struct {
	Retriever    *retriever.Retriever
	Answerer     *llm.Answerer
	History      *history.Store
	Synchronizer *indexer.Synchronizer
	Logger       *slog.Logger
}

// Service answers questions over the indexed documents.
type Service struct {
	retriever *retriever.Retriever
	answerer  *llm.Answerer
	history   *history.Store
	sync      *indexer.Synchronizer
	logger    *slog.Logger
}

// New creates a Service.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		retriever: opts.Retriever,
		answerer:  opts.Answerer,
		history:   opts.History,
		sync:      opts.Synchronizer,
		logger:    logger,
	}
}

// AskRequest is one question.
type AskRequest struct {
	Query     string
	TopK      int
	SessionID string
	// UseCache returns a previous successful answer to the same question
	// instead of generating a new one.
	UseCache bool
}

// Answer is the reply to an AskRequest.
type Answer struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	SessionID string   `json:"session_id,omitempty"`
	Cached    bool     `json:"cached"`
}

// Search returns reranked chunks for query.
func (s *Service) Search(ctx context.Context, query string, k int) ([]retriever.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	return s.retriever.Retrieve(ctx, query, k), nil
}

// Ask retrieves context for the question and phrases an answer from it.
// Generation failures are part of the answer text, not errors.
func (s *Service) Ask(ctx context.Context, req AskRequest) (*Answer, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if s.answerer == nil {
		return nil, ErrNoAnswerer
	}

	if req.UseCache && s.history != nil {
		prev, err := s.history.Lookup(ctx, query)
		switch {
		case err == nil:
			s.logger.Debug("answer_cache_hit", slog.String("history_id", prev.ID))
			return &Answer{Answer: prev.Answer, Sources: prev.Sources, SessionID: req.SessionID, Cached: true}, nil
		case !errors.Is(err, history.ErrNotFound):
			s.logger.Warn("history_lookup_failed", slog.String("error", err.Error()))
		}
	}

	results := s.retriever.Retrieve(ctx, query, req.TopK)
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}

	ans := &Answer{
		Answer:    s.answerer.Answer(ctx, query, texts),
		Sources:   retriever.Sources(results),
		SessionID: req.SessionID,
	}
	if ans.Sources == nil {
		ans.Sources = []string{}
	}

	if s.history != nil {
		_, err := s.history.Record(ctx, history.Entry{
			SessionID: req.SessionID,
			Question:  query,
			Answer:    ans.Answer,
			Sources:   ans.Sources,
		})
		if err != nil {
			s.logger.Warn("history_record_failed", slog.String("error", err.Error()))
		}
	}
	return ans, nil
}

// Sync runs one synchronization pass.
func (s *Service) Sync(ctx context.Context) (*indexer.SyncResult, error) {
	return s.sync.Sync(ctx)
}

// Status reports what the next sync pass would do.
func (s *Service) Status(ctx context.Context) (*indexer.Status, error) {
	return s.sync.Status(ctx)
}

// History returns recent questions, newest first. Without a history store
// it returns an empty list.
func (s *Service) History(ctx context.Context, limit int) ([]history.Entry, error) {
	if s.history == nil {
		return []history.Entry{}, nil
	}
	return s.history.Recent(ctx, limit)
}
