// Package indexer keeps the chunk store in step with the documents directory.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/devflow/internal/chunker"
	"github.com/ziadkadry99/devflow/internal/embeddings"
	"github.com/ziadkadry99/devflow/internal/extract"
	"github.com/ziadkadry99/devflow/internal/vectordb"
	"github.com/ziadkadry99/devflow/internal/walker"
)

// Options configures a Synchronizer.
type Options struct {
	Dir         string   // watched documents directory
	Extensions  []string // recognized document extensions
	Exclude     []string // file name globs to ignore
	Concurrency int      // parallel embedding calls per document
	LockDir     string   // where .sync.lock lives; empty disables the file lock
}

// Synchronizer reconciles the chunk store against the documents directory.
// It is the store's only writer.
type Synchronizer struct {
	store      vectordb.Store
	embedder   embeddings.Embedder
	extractor  extract.Extractor
	opts       Options
	logger     *slog.Logger
	onProgress ProgressFunc

	mu   sync.Mutex
	lock *FileLock
}

// New creates a Synchronizer. embedder should already enforce the
// empty-input and timeout contract (see embeddings.Guard).
func New(store vectordb.Store, embedder embeddings.Embedder, extractor extract.Extractor, opts Options, logger *slog.Logger) *Synchronizer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Synchronizer{
		store:     store,
		embedder:  embedder,
		extractor: extractor,
		opts:      opts,
		logger:    logger,
	}
	if opts.LockDir != "" {
		s.lock = NewFileLock(opts.LockDir)
	}
	return s
}

// SetProgressFunc sets the progress callback.
func (s *Synchronizer) SetProgressFunc(fn ProgressFunc) {
	s.onProgress = fn
}

// storedDoc summarizes the chunks the store holds for one source.
type storedDoc struct {
	hashes map[string]bool
	count  int
	total  int
}

func (d *storedDoc) state(hash string) DocumentState {
	switch {
	case d == nil:
		return StateNew
	case len(d.hashes) != 1 || !d.hashes[hash]:
		return StateModified
	case d.count != d.total:
		return StateIncomplete
	default:
		return StateIndexed
	}
}

func (s *Synchronizer) scanStore(ctx context.Context) (map[string]*storedDoc, error) {
	entries, err := s.store.ScanMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanning store: %w", err)
	}
	docs := make(map[string]*storedDoc)
	for _, e := range entries {
		d, ok := docs[e.Metadata.Source]
		if !ok {
			d = &storedDoc{hashes: make(map[string]bool), total: e.Metadata.Total}
			docs[e.Metadata.Source] = d
		}
		d.hashes[e.Metadata.FileHash] = true
		d.count++
		if e.Metadata.Total != d.total {
			d.total = -1
		}
	}
	return docs, nil
}

func (s *Synchronizer) list() (*walker.Listing, error) {
	return walker.List(walker.Config{
		Dir:        s.opts.Dir,
		Extensions: s.opts.Extensions,
		Exclude:    s.opts.Exclude,
	})
}

// Sync runs one synchronization pass. Per-document and per-chunk failures
// are collected in SyncResult.Errors; an error is returned only when the
// pass could not run at all or ctx was cancelled between documents.
func (s *Synchronizer) Sync(ctx context.Context) (*SyncResult, error) {
	if !s.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.mu.Unlock()

	if s.lock != nil {
		acquired, err := s.lock.TryLock()
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, ErrSyncInProgress
		}
		defer func() {
			if err := s.lock.Unlock(); err != nil {
				s.logger.Warn("sync_unlock_failed", slog.String("error", err.Error()))
			}
		}()
	}

	start := time.Now()
	result := &SyncResult{}

	listing, err := s.list()
	if err != nil {
		return nil, err
	}
	stored, err := s.scanStore(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("sync_started",
		slog.String("dir", s.opts.Dir),
		slog.Int("documents", len(listing.Files)),
		slog.Int("stored_documents", len(stored)))

	for path, cause := range listing.Unreadable {
		result.Failed++
		result.Errors = append(result.Errors, fmt.Errorf("read %s: %w", path, cause))
		s.logger.Warn("document_unreadable", slog.String("source", path), slog.String("error", cause.Error()))
	}

	total := len(listing.Files)
	for i, f := range listing.Files {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		d := stored[f.Path]
		state := d.state(f.ContentHash)

		switch state {
		case StateIndexed:
			result.Unchanged++
		case StateModified:
			n, err := s.store.DeleteWhere(ctx, vectordb.BySource(f.Path))
			result.ChunksDeleted += n
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Errorf("delete stale chunks of %s: %w", f.Path, err))
				s.logger.Warn("store_delete_failed", slog.String("source", f.Path), slog.String("error", err.Error()))
				break
			}
			s.indexDocument(ctx, f, false, state, result)
		default:
			s.indexDocument(ctx, f, state == StateIncomplete, state, result)
		}

		if s.onProgress != nil {
			s.onProgress(i+1, total, f.Name)
		}
	}

	for source := range stored {
		if listing.Present(source) {
			continue
		}
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		n, err := s.store.DeleteWhere(ctx, vectordb.BySource(source))
		result.ChunksDeleted += n
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("delete chunks of removed %s: %w", source, err))
			s.logger.Warn("store_delete_failed", slog.String("source", source), slog.String("error", err.Error()))
			continue
		}
		result.Removed++
		s.logger.Info("document_removed", slog.String("source", source), slog.Int("chunks", n))
	}

	result.Duration = time.Since(start)
	s.logger.Info("sync_completed",
		slog.Int("added", result.Added),
		slog.Int("modified", result.Modified),
		slog.Int("resumed", result.Resumed),
		slog.Int("removed", result.Removed),
		slog.Int("unchanged", result.Unchanged),
		slog.Int("failed", result.Failed),
		slog.Int("chunks_written", result.ChunksWritten),
		slog.Int("chunks_skipped", result.ChunksSkipped),
		slog.Int("chunks_deleted", result.ChunksDeleted),
		slog.Duration("duration", result.Duration))

	return result, nil
}

// indexDocument extracts, chunks, embeds and upserts one document. When
// resume is set, chunks already in the store are not embedded again.
func (s *Synchronizer) indexDocument(ctx context.Context, f walker.FileInfo, resume bool, state DocumentState, result *SyncResult) {
	spans, err := s.extractor.Extract(ctx, f.Path)
	if err != nil {
		result.Failed++
		result.Errors = append(result.Errors, err)
		s.logger.Warn("extraction_failed", slog.String("source", f.Path), slog.String("error", err.Error()))
		return
	}

	texts := chunker.ChunkSpans(spans)
	if len(texts) == 0 {
		result.Empty++
		s.logger.Debug("document_empty", slog.String("source", f.Path))
		return
	}

	chunks := make([]vectordb.Chunk, len(texts))
	pending := make([]bool, len(texts))
	for i, text := range texts {
		chunks[i] = vectordb.Chunk{
			ID:   vectordb.ChunkID(f.Path, i),
			Text: text,
			Metadata: vectordb.Metadata{
				Source:   f.Path,
				FileHash: f.ContentHash,
				Ordinal:  i,
				Total:    len(texts),
			},
		}
		pending[i] = true
		if resume {
			exists, err := s.store.Exists(ctx, chunks[i].ID)
			if err == nil && exists {
				pending[i] = false
			}
		}
	}

	embedErrs := make([]error, len(chunks))
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i := range chunks {
		if !pending[i] {
			continue
		}
		g.Go(func() error {
			vec, err := s.embedder.Embed(ctx, chunks[i].Text)
			if err != nil {
				embedErrs[i] = err
				return nil
			}
			chunks[i].Embedding = vec
			return nil
		})
	}
	_ = g.Wait()

	written := 0
	for i, c := range chunks {
		if !pending[i] {
			continue
		}
		if err := embedErrs[i]; err != nil {
			result.ChunksSkipped++
			result.Errors = append(result.Errors, fmt.Errorf("embed %s: %w", c.ID, err))
			s.logger.Warn("embedding_failed", slog.String("chunk_id", c.ID), slog.String("source", f.Path), slog.String("error", err.Error()))
			continue
		}
		wrote, err := s.store.Upsert(ctx, c)
		if err != nil {
			result.ChunksSkipped++
			result.Errors = append(result.Errors, err)
			s.logger.Warn("store_write_failed", slog.String("chunk_id", c.ID), slog.String("source", f.Path), slog.String("error", err.Error()))
			continue
		}
		if wrote {
			written++
		}
	}
	result.ChunksWritten += written

	if written == 0 && state != StateModified {
		// Nothing new stored; the document is retried next pass.
		return
	}
	switch state {
	case StateNew:
		result.Added++
	case StateModified:
		result.Modified++
	case StateIncomplete:
		result.Resumed++
	}
	s.logger.Info("document_indexed",
		slog.String("source", f.Path),
		slog.String("state", string(state)),
		slog.Int("chunks", len(chunks)),
		slog.Int("written", written))
}

// IsBusy reports whether err means another pass is running.
func IsBusy(err error) bool {
	return errors.Is(err, ErrSyncInProgress)
}
