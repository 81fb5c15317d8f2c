package vectordb

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
)

// ErrStoreWrite marks a failed upsert or delete. The synchronizer logs it and
// moves on to the next chunk.
var ErrStoreWrite = errors.New("chunk store write failed")

// Metadata is stored alongside every chunk.
type Metadata struct {
	// Source is the absolute path of the document the chunk came from.
	Source string
	// FileHash is the content digest of Source at indexing time.
	FileHash string
	// Ordinal is the chunk's position within its document.
	Ordinal int
	// Total is the number of chunks the document produced, so a partially
	// indexed document can be told apart from a complete one.
	Total int
}

// Chunk is the unit of retrieval.
type Chunk struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  Metadata
}

// Entry is one row of the metadata scan.
type Entry struct {
	ID       string
	Metadata Metadata
}

// Match is a similarity query hit. Smaller distance means more similar.
type Match struct {
	ID       string
	Text     string
	Metadata Metadata
	Distance float32
}

// Predicate selects chunks by metadata.
type Predicate func(Metadata) bool

// BySource matches every chunk of one document.
func BySource(source string) Predicate {
	return func(m Metadata) bool { return m.Source == source }
}

// ChunkID derives the stable identifier of the ordinal-th chunk of the
// document at path. path should be absolute.
func ChunkID(path string, ordinal int) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])[:16] + ":" + strconv.Itoa(ordinal)
}

func metadataToMap(m Metadata) map[string]string {
	return map[string]string{
		"source":    m.Source,
		"file_hash": m.FileHash,
		"ordinal":   strconv.Itoa(m.Ordinal),
		"total":     strconv.Itoa(m.Total),
	}
}

func mapToMetadata(m map[string]string) Metadata {
	ordinal, _ := strconv.Atoi(m["ordinal"])
	total, _ := strconv.Atoi(m["total"])
	return Metadata{
		Source:   m["source"],
		FileHash: m["file_hash"],
		Ordinal:  ordinal,
		Total:    total,
	}
}
