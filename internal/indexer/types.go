package indexer

import (
	"errors"
	"time"
)

// ErrSyncInProgress is returned when another sync pass holds the writer lock.
var ErrSyncInProgress = errors.New("sync already in progress")

// SyncResult summarizes the outcome of one synchronization pass.
type SyncResult struct {
	Added         int           `json:"added"`          // documents indexed for the first time
	Modified      int           `json:"modified"`       // documents whose content hash changed
	Resumed       int           `json:"resumed"`        // documents completed after an earlier partial pass
	Removed       int           `json:"removed"`        // documents no longer on disk
	Unchanged     int           `json:"unchanged"`      // documents already fully indexed
	Empty         int           `json:"empty"`          // documents that produced no chunks
	Failed        int           `json:"failed"`         // documents that could not be read or extracted
	ChunksWritten int           `json:"chunks_written"` // chunks upserted
	ChunksSkipped int           `json:"chunks_skipped"` // chunks dropped after embedding or write failures
	ChunksDeleted int           `json:"chunks_deleted"` // chunks removed
	Duration      time.Duration `json:"duration"`
	Errors        []error       `json:"-"`
}

// Writes reports whether the pass changed the store.
func (r *SyncResult) Writes() int {
	return r.ChunksWritten + r.ChunksDeleted
}

// ErrorStrings renders Errors for JSON responses and logs.
func (r *SyncResult) ErrorStrings() []string {
	out := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		out[i] = err.Error()
	}
	return out
}

// DocumentState classifies a document relative to the store.
type DocumentState string

const (
	StateIndexed    DocumentState = "indexed"
	StateNew        DocumentState = "new"
	StateModified   DocumentState = "modified"
	StateIncomplete DocumentState = "incomplete"
	StateUnreadable DocumentState = "unreadable"
	StateRemoved    DocumentState = "removed"
)

// DocumentStatus describes one document in a Status report.
type DocumentStatus struct {
	Path   string        `json:"path"`
	Kind   string        `json:"kind,omitempty"`
	Hash   string        `json:"hash,omitempty"`
	Chunks int           `json:"chunks"`
	State  DocumentState `json:"state"`
}

// Status is a read-only view of what the next sync pass would do.
type Status struct {
	Documents []DocumentStatus `json:"documents"`
	Chunks    int              `json:"chunks"`
	Pending   int              `json:"pending"`
}

// ProgressFunc is called after each document is processed.
type ProgressFunc func(processed int, total int, currentFile string)
