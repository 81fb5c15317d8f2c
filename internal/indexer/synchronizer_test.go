package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/devflow/internal/embeddings"
	"github.com/ziadkadry99/devflow/internal/extract"
	"github.com/ziadkadry99/devflow/internal/logging"
	"github.com/ziadkadry99/devflow/internal/vectordb"
)

// flakyEmbedder fails for any text containing a marker while failing is set.
type flakyEmbedder struct {
	inner   embeddings.Embedder
	marker  string
	failing atomic.Bool
	calls   atomic.Int64
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.failing.Load() && (f.marker == "" || strings.Contains(text, f.marker)) {
		return nil, errors.New("embedding service unavailable")
	}
	return f.inner.Embed(ctx, text)
}

func (f *flakyEmbedder) Dimensions() int { return f.inner.Dimensions() }
func (f *flakyEmbedder) Name() string    { return "flaky" }

// countingStore records write calls made against the wrapped store.
type countingStore struct {
	vectordb.Store
	upserts atomic.Int64
	deletes atomic.Int64
}

func (c *countingStore) Upsert(ctx context.Context, ch vectordb.Chunk) (bool, error) {
	c.upserts.Add(1)
	return c.Store.Upsert(ctx, ch)
}

func (c *countingStore) DeleteWhere(ctx context.Context, pred vectordb.Predicate) (int, error) {
	c.deletes.Add(1)
	return c.Store.DeleteWhere(ctx, pred)
}

// mockRunner stands in for pdftotext.
type mockRunner struct {
	output []byte
	err    error
}

func (m *mockRunner) Run(context.Context, string, ...string) ([]byte, error) {
	return m.output, m.err
}

type fixture struct {
	dir      string
	store    *vectordb.ChromemStore
	counting *countingStore
	embedder *flakyEmbedder
	registry *extract.Registry
	sync     *Synchronizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := vectordb.OpenMemory(logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		dir:      t.TempDir(),
		store:    store,
		counting: &countingStore{Store: store},
		embedder: &flakyEmbedder{inner: embeddings.NewStaticEmbedder(64)},
		registry: extract.DefaultRegistry(),
	}
	f.sync = New(f.counting, embeddings.NewGuard(f.embedder, 0), f.registry, Options{
		Dir:         f.dir,
		Extensions:  []string{".md", ".txt", ".pdf"},
		Concurrency: 3,
		LockDir:     t.TempDir(),
	}, logging.Discard())
	return f
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (f *fixture) chunksBySource(t *testing.T) map[string][]vectordb.Entry {
	t.Helper()
	entries, err := f.store.ScanMetadata(context.Background())
	require.NoError(t, err)
	out := make(map[string][]vectordb.Entry)
	for _, e := range entries {
		out[e.Metadata.Source] = append(out[e.Metadata.Source], e)
	}
	return out
}

func (f *fixture) texts(t *testing.T) []string {
	t.Helper()
	n := f.store.Count()
	if n == 0 {
		return nil
	}
	anyVec, err := f.embedder.inner.Embed(context.Background(), "any")
	require.NoError(t, err)
	matches, err := f.store.SimilarityQuery(context.Background(), anyVec, n)
	require.NoError(t, err)
	var out []string
	for _, m := range matches {
		out = append(out, m.Text)
	}
	return out
}

func TestSync_Convergence(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "a.txt", "one\n\ntwo\n\nthree")
	b := f.write(t, "b.md", "# Title\n\nBody paragraph.")

	res, err := f.sync.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 5, res.ChunksWritten)
	assert.Empty(t, res.Errors)

	by := f.chunksBySource(t)
	require.Len(t, by[a], 3)
	require.Len(t, by[b], 2)

	ids := map[string]bool{}
	for _, entries := range by {
		for _, e := range entries {
			assert.False(t, ids[e.ID], "duplicate id %s", e.ID)
			ids[e.ID] = true
			assert.Equal(t, len(entries), e.Metadata.Total)
		}
	}
	assert.Equal(t, vectordb.ChunkID(a, 2), by[a][2].ID)
}

func TestSync_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.txt", "one\n\ntwo")
	f.write(t, "b.txt", "three")

	_, err := f.sync.Sync(context.Background())
	require.NoError(t, err)
	before, err := f.store.ScanMetadata(context.Background())
	require.NoError(t, err)
	upserts, deletes, embeds := f.counting.upserts.Load(), f.counting.deletes.Load(), f.embedder.calls.Load()

	res, err := f.sync.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Unchanged)
	assert.Zero(t, res.Writes())
	assert.Equal(t, upserts, f.counting.upserts.Load())
	assert.Equal(t, deletes, f.counting.deletes.Load())
	assert.Equal(t, embeds, f.embedder.calls.Load(), "unchanged documents are not re-embedded")

	after, err := f.store.ScanMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSync_TouchWithoutChangeIsUnchanged(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "a.txt", "same content")

	_, err := f.sync.Sync(context.Background())
	require.NoError(t, err)

	// Rewrite identical bytes: mtime moves, hash does not.
	require.NoError(t, os.WriteFile(path, []byte("same content"), 0o644))

	res, err := f.sync.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unchanged)
	assert.Zero(t, res.Writes())
}

func TestSync_ModificationReplacesChunkSet(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "a.txt", "old first\n\nold second\n\nold third")

	_, err := f.sync.Sync(context.Background())
	require.NoError(t, err)

	f.write(t, "a.txt", "new only")
	res, err := f.sync.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Modified)
	assert.Equal(t, 3, res.ChunksDeleted)
	assert.Equal(t, 1, res.ChunksWritten)

	by := f.chunksBySource(t)
	require.Len(t, by[path], 1)
	assert.Equal(t, []string{"new only"}, f.texts(t))

	hash := by[path][0].Metadata.FileHash
	for _, e := range by[path] {
		assert.Equal(t, hash, e.Metadata.FileHash)
	}
}

func TestSync_DeletionRemovesOnlyThatSource(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "a.txt", "alpha\n\nbeta")
	b := f.write(t, "b.txt", "gamma")

	_, err := f.sync.Sync(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(a))
	res, err := f.sync.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, 2, res.ChunksDeleted)
	by := f.chunksBySource(t)
	assert.NotContains(t, by, a)
	assert.Len(t, by[b], 1)
}

func TestSync_BrokenSymlinkRemovesDocument(t *testing.T) {
	f := newFixture(t)
	target := filepath.Join(t.TempDir(), "shared.txt")
	require.NoError(t, os.WriteFile(target, []byte("alpha\n\nbeta"), 0o644))
	link := filepath.Join(f.dir, "shared.txt")
	require.NoError(t, os.Symlink(target, link))
	kept := f.write(t, "b.txt", "gamma")

	res, err := f.sync.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, res.Added)

	require.NoError(t, os.Remove(target))
	res, err = f.sync.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, 2, res.ChunksDeleted)
	by := f.chunksBySource(t)
	assert.NotContains(t, by, link)
	assert.Len(t, by[kept], 1)
}

func TestSync_PartialEmbeddingFailureHealsNextPass(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "a.txt", "good one\n\nFLAKY two\n\ngood three")
	f.embedder.marker = "FLAKY"
	f.embedder.failing.Store(true)

	res, err := f.sync.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.ChunksWritten)
	assert.Equal(t, 1, res.ChunksSkipped)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], embeddings.ErrNoEmbedding)
	assert.Len(t, f.chunksBySource(t)[path], 2)

	st, err := f.sync.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, st.Documents, 1)
	assert.Equal(t, StateIncomplete, st.Documents[0].State)

	f.embedder.failing.Store(false)
	calls := f.embedder.calls.Load()
	res, err = f.sync.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Resumed)
	assert.Equal(t, 1, res.ChunksWritten)
	assert.Equal(t, calls+1, f.embedder.calls.Load(), "only the missing chunk is embedded")
	assert.Len(t, f.chunksBySource(t)[path], 3)

	res, err = f.sync.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unchanged)
}

func TestSync_AllChunksFailingIsRetried(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "a.txt", "one\n\ntwo")
	f.embedder.failing.Store(true)

	res, err := f.sync.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Added)
	assert.Equal(t, 2, res.ChunksSkipped)
	assert.Zero(t, f.store.Count())

	f.embedder.failing.Store(false)
	res, err = f.sync.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Len(t, f.chunksBySource(t)[path], 2)
}

func TestSync_EmptyDocument(t *testing.T) {
	f := newFixture(t)
	f.write(t, "empty.txt", "  \n\n\t\n")

	res, err := f.sync.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Empty)
	assert.Zero(t, res.Writes())
	assert.Zero(t, f.store.Count())
}

func TestSync_ExtractionFailureSkipsDocument(t *testing.T) {
	f := newFixture(t)
	f.registry.Register(extract.NewPDF(&mockRunner{err: errors.New("Syntax Error: Couldn't read xref table")}), ".pdf")
	f.write(t, "broken.pdf", "%PDF-garbage")
	good := f.write(t, "good.txt", "fine")

	res, err := f.sync.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Added)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], extract.ErrExtraction)
	assert.Len(t, f.chunksBySource(t)[good], 1)
}

func TestSync_ExamplePDF(t *testing.T) {
	f := newFixture(t)
	f.registry.Register(extract.NewPDF(&mockRunner{
		output: []byte("Install the CLI via the package manager.\n\nRun `tool init` to scaffold a project.\n\f"),
	}), ".pdf")
	path := f.write(t, "spec.pdf", "%PDF-1.7")

	_, err := f.sync.Sync(context.Background())
	require.NoError(t, err)

	entries := f.chunksBySource(t)[path]
	require.Len(t, entries, 2)
	assert.Equal(t, "spec.pdf", filepath.Base(entries[0].Metadata.Source))
}

func TestSync_BusyWhenLockHeld(t *testing.T) {
	f := newFixture(t)
	other := NewFileLock(f.sync.opts.LockDir)
	ok, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer other.Unlock()

	_, err = f.sync.Sync(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)
	assert.True(t, IsBusy(err))
}

func TestSync_BusyInProcess(t *testing.T) {
	f := newFixture(t)
	f.sync.mu.Lock()
	_, err := f.sync.Sync(context.Background())
	f.sync.mu.Unlock()
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

func TestSync_CancelledBetweenDocuments(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.txt", "a")
	f.write(t, "b.txt", "b")

	ctx, cancel := context.WithCancel(context.Background())
	f.sync.SetProgressFunc(func(done, _ int, _ string) {
		if done == 1 {
			cancel()
		}
	})

	res, err := f.sync.Sync(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Added)

	f.sync.SetProgressFunc(nil)
	res, err = f.sync.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unchanged)
	assert.Equal(t, 1, res.Added)
}

func TestSync_MissingDirectory(t *testing.T) {
	f := newFixture(t)
	f.sync.opts.Dir = filepath.Join(f.dir, "absent")

	_, err := f.sync.Sync(context.Background())
	assert.Error(t, err)
}

func TestSync_Progress(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.txt", "a")
	f.write(t, "b.txt", "b")

	var seen []string
	f.sync.SetProgressFunc(func(done, total int, name string) {
		assert.Equal(t, 2, total)
		seen = append(seen, name)
	})

	_, err := f.sync.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, seen)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "a.txt", "alpha")
	b := f.write(t, "b.txt", "beta")
	gone := f.write(t, "gone.txt", "gone")

	_, err := f.sync.Sync(context.Background())
	require.NoError(t, err)

	f.write(t, "b.txt", "beta changed")
	c := f.write(t, "c.txt", "gamma")
	require.NoError(t, os.Remove(gone))

	upserts := f.counting.upserts.Load()
	st, err := f.sync.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, upserts, f.counting.upserts.Load(), "status never writes")

	states := map[string]DocumentState{}
	for _, d := range st.Documents {
		states[d.Path] = d.State
	}
	assert.Equal(t, map[string]DocumentState{
		a:    StateIndexed,
		b:    StateModified,
		c:    StateNew,
		gone: StateRemoved,
	}, states)
	assert.Equal(t, 3, st.Pending)
	assert.Equal(t, 3, st.Chunks)
}
