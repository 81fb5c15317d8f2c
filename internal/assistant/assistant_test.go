package assistant

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/devflow/internal/embeddings"
	"github.com/ziadkadry99/devflow/internal/extract"
	"github.com/ziadkadry99/devflow/internal/history"
	"github.com/ziadkadry99/devflow/internal/indexer"
	"github.com/ziadkadry99/devflow/internal/llm"
	"github.com/ziadkadry99/devflow/internal/logging"
	"github.com/ziadkadry99/devflow/internal/rerank"
	"github.com/ziadkadry99/devflow/internal/retriever"
	"github.com/ziadkadry99/devflow/internal/vectordb"
)

type echoProvider struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *echoProvider) Name() string { return "echo" }

func (p *echoProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Content: "answer #" + string(rune('0'+p.calls))}, nil
}

func newService(t *testing.T, provider llm.Provider) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide.md"),
		[]byte("# Setup\n\nInstall the CLI via the package manager.\n\nRun tool init to scaffold a project."), 0o644))

	store, err := vectordb.OpenMemory(logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	embedder := embeddings.NewGuard(embeddings.NewStaticEmbedder(0), 0)
	syncer := indexer.New(store, embedder, extract.DefaultRegistry(), indexer.Options{
		Dir:        dir,
		Extensions: []string{".md"},
	}, logging.Discard())

	opts := Options{
		Retriever:    retriever.New(store, embedder, rerank.Lexical{}, retriever.Options{TopK: 2}, logging.Discard()),
		History:      history.NewStore(store.DB()),
		Synchronizer: syncer,
		Logger:       logging.Discard(),
	}
	if provider != nil {
		opts.Answerer = llm.NewAnswerer(provider, 0, logging.Discard())
	}
	return New(opts), dir
}

func TestSearch(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.Sync(ctx)
	require.NoError(t, err)

	results, err := svc.Search(ctx, "how do I start a new project", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Run tool init to scaffold a project.", results[0].Text)

	_, err = svc.Search(ctx, "  ", 1)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestAsk_RecordsHistoryAndServesCache(t *testing.T) {
	provider := &echoProvider{}
	svc, _ := newService(t, provider)
	ctx := context.Background()
	_, err := svc.Sync(ctx)
	require.NoError(t, err)

	ans, err := svc.Ask(ctx, AskRequest{Query: "how do I start a new project", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "answer #1", ans.Answer)
	assert.Equal(t, []string{"guide.md"}, ans.Sources)
	assert.False(t, ans.Cached)

	cached, err := svc.Ask(ctx, AskRequest{Query: "how do I start a new project", UseCache: true})
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.Equal(t, "answer #1", cached.Answer)
	assert.Equal(t, 1, provider.calls)

	fresh, err := svc.Ask(ctx, AskRequest{Query: "how do I start a new project"})
	require.NoError(t, err)
	assert.Equal(t, "answer #2", fresh.Answer)

	entries, err := svc.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "answer #2", entries[0].Answer)
	assert.Equal(t, "s1", entries[1].SessionID)
}

func TestAsk_EmptyIndex(t *testing.T) {
	provider := &echoProvider{}
	svc, _ := newService(t, provider)

	ans, err := svc.Ask(context.Background(), AskRequest{Query: "anything"})
	require.NoError(t, err)
	assert.Equal(t, llm.NoResultsAnswer, ans.Answer)
	assert.Empty(t, ans.Sources)
	assert.Zero(t, provider.calls)
}

func TestAsk_ProviderErrorIsAnswerText(t *testing.T) {
	svc, _ := newService(t, &echoProvider{err: errors.New("quota exceeded")})
	ctx := context.Background()
	_, err := svc.Sync(ctx)
	require.NoError(t, err)

	ans, err := svc.Ask(ctx, AskRequest{Query: "install"})
	require.NoError(t, err)
	assert.Equal(t, "Error: quota exceeded", ans.Answer)

	_, err = svc.Ask(ctx, AskRequest{Query: "install", UseCache: true})
	require.NoError(t, err, "error answers are not served from cache")
}

func TestAsk_Validation(t *testing.T) {
	svc, _ := newService(t, nil)
	_, err := svc.Ask(context.Background(), AskRequest{Query: "q"})
	assert.ErrorIs(t, err, ErrNoAnswerer)

	svc, _ = newService(t, &echoProvider{})
	_, err = svc.Ask(context.Background(), AskRequest{Query: " "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestStatus(t *testing.T) {
	svc, _ := newService(t, nil)
	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, st.Documents, 1)
	assert.Equal(t, indexer.StateNew, st.Documents[0].State)
	assert.Equal(t, 1, st.Pending)
}
