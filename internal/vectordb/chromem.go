package vectordb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/devflow/internal/db"
)

const collectionName = "documents"

// errPrecomputed is returned if chromem is ever asked to embed text itself.
var errPrecomputed = errors.New("chunk store: embeddings must be supplied by the caller")

func precomputedOnly(context.Context, string) ([]float32, error) {
	return nil, errPrecomputed
}

// ChromemStore implements Store using a chromem-go collection for vectors,
// text and metadata, and a SQLite catalog for metadata scans. Writes go to
// the catalog first and the index second; deletes run in the opposite order,
// so an interrupted write leaves at most catalog rows without vectors, which
// Open prunes.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	catalog    *db.DB
	logger     *slog.Logger
}

// Open opens (creating if needed) the persistent store under dir:
// dir/vectors holds the chromem-go index and dir/catalog.db the catalog.
func Open(ctx context.Context, dir string, logger *slog.Logger) (*ChromemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", dir, err)
	}

	cdb, err := chromem.NewPersistentDB(filepath.Join(dir, "vectors"), true)
	if err != nil {
		return nil, fmt.Errorf("opening vector index: %w", err)
	}

	catalog, err := db.Open(filepath.Join(dir, "catalog.db"))
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	s, err := newStore(cdb, catalog, logger)
	if err != nil {
		catalog.Close()
		return nil, err
	}
	if err := s.reconcile(ctx); err != nil {
		catalog.Close()
		return nil, fmt.Errorf("reconciling store: %w", err)
	}
	return s, nil
}

// OpenMemory creates a non-persistent store (useful for testing).
func OpenMemory(logger *slog.Logger) (*ChromemStore, error) {
	catalog, err := db.OpenMemory()
	if err != nil {
		return nil, err
	}
	s, err := newStore(chromem.NewDB(), catalog, logger)
	if err != nil {
		catalog.Close()
		return nil, err
	}
	return s, nil
}

func newStore(cdb *chromem.DB, catalog *db.DB, logger *slog.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	col, err := cdb.GetOrCreateCollection(collectionName, nil, precomputedOnly)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &ChromemStore{db: cdb, collection: col, catalog: catalog, logger: logger}, nil
}

// DB exposes the catalog database so other tables (query history) can share it.
func (s *ChromemStore) DB() *db.DB {
	return s.catalog
}

// Close releases the catalog. Vectors are persisted as they are written.
func (s *ChromemStore) Close() error {
	return s.catalog.Close()
}

// Upsert implements Store.
func (s *ChromemStore) Upsert(ctx context.Context, c Chunk) (bool, error) {
	switch {
	case c.ID == "":
		return false, fmt.Errorf("%w: empty chunk id", ErrStoreWrite)
	case strings.TrimSpace(c.Text) == "":
		return false, fmt.Errorf("%w: chunk %s has no text", ErrStoreWrite, c.ID)
	case len(c.Embedding) == 0:
		return false, fmt.Errorf("%w: chunk %s has no embedding", ErrStoreWrite, c.ID)
	}

	exists, err := s.Exists(ctx, c.ID)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	if exists {
		return false, nil
	}

	res, err := s.catalog.ExecContext(ctx,
		`INSERT INTO chunks (id, source, file_hash, ordinal, total) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		c.ID, c.Metadata.Source, c.Metadata.FileHash, c.Metadata.Ordinal, c.Metadata.Total)
	if err != nil {
		return false, fmt.Errorf("%w: catalog insert %s: %w", ErrStoreWrite, c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	err = s.collection.AddDocument(ctx, chromem.Document{
		ID:        c.ID,
		Content:   c.Text,
		Metadata:  metadataToMap(c.Metadata),
		Embedding: c.Embedding,
	})
	if err != nil {
		if _, derr := s.catalog.ExecContext(context.WithoutCancel(ctx), `DELETE FROM chunks WHERE id = ?`, c.ID); derr != nil {
			s.logger.Warn("catalog_rollback_failed", slog.String("chunk_id", c.ID), slog.String("error", derr.Error()))
		}
		return false, fmt.Errorf("%w: vector insert %s: %w", ErrStoreWrite, c.ID, err)
	}
	return true, nil
}

// Exists implements Store. A catalog row whose vector is gone counts as
// absent and is dropped.
func (s *ChromemStore) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.catalog.QueryRowContext(ctx, `SELECT 1 FROM chunks WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("catalog lookup %s: %w", id, err)
	}

	if _, err := s.collection.GetByID(ctx, id); err != nil {
		s.logger.Warn("catalog_orphan_pruned", slog.String("chunk_id", id))
		if _, err := s.catalog.ExecContext(ctx, `DELETE FROM chunks WHERE id = ?`, id); err != nil {
			return false, fmt.Errorf("pruning catalog row %s: %w", id, err)
		}
		return false, nil
	}
	return true, nil
}

// SimilarityQuery implements Store. Distance is 1 - cosine similarity.
func (s *ChromemStore) SimilarityQuery(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	results, err := queryClamped(k, s.collection.Count, func(k int) ([]chromem.Result, error) {
		return s.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			ID:       r.ID,
			Text:     r.Content,
			Metadata: mapToMetadata(r.Metadata),
			Distance: 1 - r.Similarity,
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	return matches, nil
}

// queryClamped caps k at the collection size, which chromem requires. A
// concurrent delete can shrink the collection between the count and the
// query, so a failed query is retried once against a fresh count.
func queryClamped(k int, count func() int, query func(k int) ([]chromem.Result, error)) ([]chromem.Result, error) {
	if k <= 0 {
		return nil, nil
	}
	n := count()
	if n == 0 {
		return nil, nil
	}
	k = min(k, n)

	results, err := query(k)
	if err == nil {
		return results, nil
	}
	n = count()
	if n >= k {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return query(n)
}

// DeleteWhere implements Store.
func (s *ChromemStore) DeleteWhere(ctx context.Context, pred Predicate) (int, error) {
	entries, err := s.ScanMetadata(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}

	var ids []string
	for _, e := range entries {
		if pred(e.Metadata) {
			ids = append(ids, e.ID)
		}
	}
	return s.deleteIDs(ctx, ids)
}

// DeleteSource removes every chunk of one document using the catalog index.
func (s *ChromemStore) DeleteSource(ctx context.Context, source string) (int, error) {
	ids, err := s.idsWhere(ctx, `SELECT id FROM chunks WHERE source = ?`, source)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	return s.deleteIDs(ctx, ids)
}

func (s *ChromemStore) deleteIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return 0, fmt.Errorf("%w: vector delete: %w", ErrStoreWrite, err)
	}

	tx, err := s.catalog.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: catalog delete: %w", ErrStoreWrite, err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM chunks WHERE id = ?`)
	if err != nil {
		return 0, fmt.Errorf("%w: catalog delete: %w", ErrStoreWrite, err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return 0, fmt.Errorf("%w: catalog delete %s: %w", ErrStoreWrite, id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: catalog delete: %w", ErrStoreWrite, err)
	}
	return len(ids), nil
}

// ScanMetadata implements Store. Rows are ordered by source, then ordinal.
func (s *ChromemStore) ScanMetadata(ctx context.Context) ([]Entry, error) {
	rows, err := s.catalog.QueryContext(ctx,
		`SELECT id, source, file_hash, ordinal, total FROM chunks ORDER BY source, ordinal`)
	if err != nil {
		return nil, fmt.Errorf("scanning catalog: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Metadata.Source, &e.Metadata.FileHash, &e.Metadata.Ordinal, &e.Metadata.Total); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count implements Store.
func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

func (s *ChromemStore) idsWhere(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.catalog.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// reconcile brings the catalog and the vector index back in line after an
// interrupted run: catalog rows without a vector are dropped, and vectors
// without a catalog row are deleted.
func (s *ChromemStore) reconcile(ctx context.Context) error {
	ids, err := s.idsWhere(ctx, `SELECT id FROM chunks`)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(ids))
	var probe []float32
	for _, id := range ids {
		doc, err := s.collection.GetByID(ctx, id)
		if err != nil {
			if _, err := s.catalog.ExecContext(ctx, `DELETE FROM chunks WHERE id = ?`, id); err != nil {
				return fmt.Errorf("pruning catalog row %s: %w", id, err)
			}
			s.logger.Warn("catalog_orphan_pruned", slog.String("chunk_id", id))
			continue
		}
		known[id] = true
		if probe == nil {
			probe = doc.Embedding
		}
	}

	extra := s.collection.Count() - len(known)
	if extra <= 0 {
		return nil
	}

	if probe == nil {
		// No catalog row survived, so nothing in the index is reachable.
		if err := s.db.DeleteCollection(collectionName); err != nil {
			return fmt.Errorf("resetting vector index: %w", err)
		}
		col, err := s.db.GetOrCreateCollection(collectionName, nil, precomputedOnly)
		if err != nil {
			return fmt.Errorf("recreating collection: %w", err)
		}
		s.collection = col
		s.logger.Warn("vector_orphans_pruned", slog.Int("count", extra))
		return nil
	}

	all, err := s.collection.QueryEmbedding(ctx, probe, s.collection.Count(), nil, nil)
	if err != nil {
		// Mixed vector sizes after a model switch; leave the extras in place.
		s.logger.Warn("vector_orphans_unlisted", slog.Int("count", extra), slog.String("error", err.Error()))
		return nil
	}
	var orphans []string
	for _, r := range all {
		if !known[r.ID] {
			orphans = append(orphans, r.ID)
		}
	}
	if len(orphans) > 0 {
		if err := s.collection.Delete(ctx, nil, nil, orphans...); err != nil {
			return fmt.Errorf("deleting orphan vectors: %w", err)
		}
		s.logger.Warn("vector_orphans_pruned", slog.Int("count", len(orphans)))
	}
	return nil
}
