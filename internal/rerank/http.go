package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
)

// HTTPConfig configures the cross-encoder client.
type HTTPConfig struct {
	// Endpoint is the base URL of a service exposing POST /rerank.
	Endpoint string
	// Model is sent with each request; empty lets the service choose.
	Model string
	// Timeout bounds each request (default 30s).
	Timeout time.Duration
	Logger  *slog.Logger
}

// HTTP calls a cross-encoder rerank service.
type HTTP struct {
	client *http.Client
	cfg    HTTPConfig
}

var _ Reranker = (*HTTP)(nil)

// NewHTTP creates a cross-encoder client.
func NewHTTP(cfg HTTPConfig) *HTTP {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &HTTP{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		cfg: cfg,
	}
}

func (r *HTTP) Name() string { return "http" }

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// Score sends all candidates in one batch. Candidates the service leaves out
// of its response score negative infinity.
func (r *HTTP) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return []float64{}, nil
	}
	start := time.Now()

	body, err := json.Marshal(rerankRequest{Query: query, Documents: candidates, Model: r.cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	scores := make([]float64, len(candidates))
	for i := range scores {
		scores[i] = math.Inf(-1)
	}
	for _, res := range result.Results {
		if res.Index < 0 || res.Index >= len(candidates) {
			return nil, fmt.Errorf("rerank response index %d out of range", res.Index)
		}
		scores[res.Index] = res.Score
	}

	r.cfg.Logger.Debug("rerank_http",
		slog.Int("candidates", len(candidates)),
		slog.Duration("duration", time.Since(start)))
	return scores, nil
}
