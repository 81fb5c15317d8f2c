package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/devflow/internal/config"
	"github.com/ziadkadry99/devflow/internal/logging"
)

func TestLexical_Score(t *testing.T) {
	scores, err := Lexical{}.Score(context.Background(), "how do I start a new project", []string{
		"Install the CLI via the package manager.",
		"Run `tool init` to scaffold a project.",
		"",
	})
	require.NoError(t, err)
	require.Len(t, scores, 3)

	assert.Zero(t, scores[0])
	assert.Greater(t, scores[1], scores[0])
	assert.Zero(t, scores[2])
}

func TestLexical_IdenticalTextScoresOne(t *testing.T) {
	scores, err := Lexical{}.Score(context.Background(), "Alpha beta", []string{"beta ALPHA alpha"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, scores[0], 1e-9)
}

func TestNone_Score(t *testing.T) {
	scores, err := None{}.Score(context.Background(), "q", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, scores)
}

func TestHTTP_Score(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rerank", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req rerankRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "q", req.Query)
		assert.Equal(t, []string{"a", "b", "c"}, req.Documents)
		assert.Equal(t, "reranker-small", req.Model)

		// Results come back sorted by score, not by index.
		_, _ = w.Write([]byte(`{"results":[{"index":2,"score":0.9},{"index":0,"score":0.4}]}`))
	}))
	defer srv.Close()

	var logs bytes.Buffer
	logger, _, err := logging.Setup(logging.Config{Level: "debug", Format: "json", Output: &logs})
	require.NoError(t, err)

	r := NewHTTP(HTTPConfig{Endpoint: srv.URL + "/", Model: "reranker-small", Logger: logger})
	scores, err := r.Score(context.Background(), "q", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 0.4, scores[0])
	assert.True(t, math.IsInf(scores[1], -1))
	assert.Equal(t, 0.9, scores[2])
	assert.Contains(t, logs.String(), `"msg":"rerank_http"`)
	assert.Contains(t, logs.String(), `"candidates":3`)
}

func TestHTTP_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, "model not loaded", "status 500"},
		{"bad json", http.StatusOK, "{", "decode"},
		{"bad index", http.StatusOK, `{"results":[{"index":7,"score":1}]}`, "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTP(HTTPConfig{Endpoint: srv.URL}).Score(context.Background(), "q", []string{"a"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHTTP_Timeout(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-done:
		}
	}))
	defer srv.Close()
	defer close(done)

	_, err := NewHTTP(HTTPConfig{Endpoint: srv.URL, Timeout: 20 * time.Millisecond}).
		Score(context.Background(), "q", []string{"a"})
	assert.Error(t, err)
}

func TestHTTP_NoCandidates(t *testing.T) {
	r := NewHTTP(HTTPConfig{Endpoint: "http://127.0.0.1:1"})
	scores, err := r.Score(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestNew(t *testing.T) {
	r, err := New(config.RerankConfig{Provider: config.RerankLexical}, nil)
	require.NoError(t, err)
	assert.Equal(t, "lexical", r.Name())

	r, err = New(config.RerankConfig{Provider: config.RerankNone}, nil)
	require.NoError(t, err)
	assert.Equal(t, "none", r.Name())

	r, err = New(config.RerankConfig{Provider: config.RerankHTTP, Endpoint: "http://localhost:9659", TimeoutSecs: 5}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "http", r.Name())

	_, err = New(config.RerankConfig{Provider: "bogus"}, nil)
	assert.ErrorIs(t, err, config.ErrConfig)
}
