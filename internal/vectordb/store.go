// Package vectordb is the persistent chunk store: a chromem-go vector index
// plus a SQLite catalog of chunk metadata.
package vectordb

import "context"

// Store defines the chunk store operations used by the synchronizer (the only
// writer) and the retriever (read-only).
type Store interface {
	// Upsert inserts the chunk unless its id is already stored. It reports
	// whether a write happened.
	Upsert(ctx context.Context, c Chunk) (bool, error)

	// Exists reports whether a chunk with the given id is stored.
	Exists(ctx context.Context, id string) (bool, error)

	// SimilarityQuery returns at most k chunks nearest to embedding,
	// ordered by ascending distance.
	SimilarityQuery(ctx context.Context, embedding []float32, k int) ([]Match, error)

	// DeleteWhere removes every chunk whose metadata matches pred and
	// returns how many were removed.
	DeleteWhere(ctx context.Context, pred Predicate) (int, error)

	// ScanMetadata returns the id and metadata of every stored chunk.
	ScanMetadata(ctx context.Context) ([]Entry, error)

	// Count returns the total number of chunks in the store.
	Count() int
}
