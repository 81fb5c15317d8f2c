package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbedder is a test double for Embedder.
type mockEmbedder struct {
	vec   []float32
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (m *mockEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.vec, m.err
}

func (m *mockEmbedder) Dimensions() int { return len(m.vec) }
func (m *mockEmbedder) Name() string    { return "mock" }

func TestGuard_EmptyInputShortCircuits(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1, 0}}
	g := NewGuard(inner, time.Second)

	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := g.Embed(context.Background(), in)
		assert.ErrorIs(t, err, ErrNoEmbedding)
	}
	assert.Zero(t, inner.calls.Load(), "empty input must not reach the service")
}

func TestGuard_ServiceErrorBecomesNoEmbedding(t *testing.T) {
	cause := errors.New("503 unavailable")
	g := NewGuard(&mockEmbedder{err: cause}, time.Second)

	vec, err := g.Embed(context.Background(), "hello")
	assert.Nil(t, vec)
	assert.ErrorIs(t, err, ErrNoEmbedding)
	assert.ErrorIs(t, err, cause)
}

func TestGuard_TimeoutBecomesNoEmbedding(t *testing.T) {
	g := NewGuard(&mockEmbedder{vec: []float32{1}, delay: time.Second}, 10*time.Millisecond)

	_, err := g.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoEmbedding)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuard_EmptyVector(t *testing.T) {
	g := NewGuard(&mockEmbedder{vec: []float32{}}, 0)

	_, err := g.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoEmbedding)
}

func TestGuard_Passthrough(t *testing.T) {
	g := NewGuard(&mockEmbedder{vec: []float32{0.5, 0.5}}, 0)

	vec, err := g.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)
	assert.Equal(t, "mock", g.Name())
	assert.Equal(t, 2, g.Dimensions())
}

func TestCached_HitsSkipInner(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1, 2, 3}}
	c := NewCached(inner, 10)

	for i := 0; i < 3; i++ {
		vec, err := c.Embed(context.Background(), "same question")
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2, 3}, vec)
	}
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestCached_ErrorsNotCached(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("boom")}
	c := NewCached(inner, 10)

	_, err := c.Embed(context.Background(), "q")
	require.Error(t, err)
	_, err = c.Embed(context.Background(), "q")
	require.Error(t, err)

	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Zero(t, c.Len())
}

func TestCached_Eviction(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1}}
	c := NewCached(inner, 2)

	for _, q := range []string{"a", "b", "c", "a"} {
		_, err := c.Embed(context.Background(), q)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(4), inner.calls.Load(), "a was evicted by c")
	assert.Equal(t, 2, c.Len())
}

func TestStaticEmbedder(t *testing.T) {
	e := NewStaticEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Run tool init to scaffold a project")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Run tool init to scaffold a project")
	require.NoError(t, err)
	assert.Equal(t, a, b, "deterministic")
	assert.Len(t, a, 64)

	var norm float32
	for _, x := range a {
		norm += x * x
	}
	assert.InDelta(t, 1.0, norm, 1e-4)

	_, err = e.Embed(ctx, "  ... ")
	assert.Error(t, err)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"run", "tool", "init", "v2"}, Tokenize("Run `tool init`, v2!"))
	assert.Empty(t, Tokenize("  -- "))
}

func TestGoogleEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/text-embedding-004:embedContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))

		var req googleEmbedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Content.Parts[0].Text)

		_, _ = w.Write([]byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`))
	}))
	defer srv.Close()

	e := NewGoogleEmbedder("secret", "models/text-embedding-004", 3, srv.URL)
	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "text-embedding-004", e.Name())
}

func TestGoogleEmbedder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewGoogleEmbedder("k", "text-embedding-004", 0, srv.URL).Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		_, _ = w.Write([]byte(`{"embeddings":[[1,0,0]]}`))
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 3, srv.URL+"/")
	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec)
	assert.Equal(t, "ollama/nomic-embed-text", e.Name())
}

func TestOllamaEmbedder_NoEmbeddings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[]}`))
	}))
	defer srv.Close()

	_, err := NewOllamaEmbedder("m", 3, srv.URL).Embed(context.Background(), "hello")
	assert.Error(t, err)
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[{"object":"embedding","index":0,"embedding":[0.25,0.75]}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("sk-test", ModelTextEmbedding3Small, 0, srv.URL)
	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.75}, vec)
	assert.Equal(t, 1536, e.Dimensions())
}
