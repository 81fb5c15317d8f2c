package indexer

import (
	"context"
	"sort"
)

// Status reports, without writing anything, how each document relates to
// the store and which stored documents a sync pass would remove.
func (s *Synchronizer) Status(ctx context.Context) (*Status, error) {
	listing, err := s.list()
	if err != nil {
		return nil, err
	}
	stored, err := s.scanStore(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{Chunks: s.store.Count()}
	for _, f := range listing.Files {
		d := stored[f.Path]
		ds := DocumentStatus{
			Path:  f.Path,
			Kind:  f.Kind,
			Hash:  f.ContentHash,
			State: d.state(f.ContentHash),
		}
		if d != nil {
			ds.Chunks = d.count
		}
		st.Documents = append(st.Documents, ds)
	}
	for path := range listing.Unreadable {
		ds := DocumentStatus{Path: path, State: StateUnreadable}
		if d := stored[path]; d != nil {
			ds.Chunks = d.count
		}
		st.Documents = append(st.Documents, ds)
	}
	for source, d := range stored {
		if !listing.Present(source) {
			st.Documents = append(st.Documents, DocumentStatus{Path: source, Chunks: d.count, State: StateRemoved})
		}
	}

	sort.Slice(st.Documents, func(i, j int) bool {
		return st.Documents[i].Path < st.Documents[j].Path
	})
	for _, ds := range st.Documents {
		switch ds.State {
		case StateNew, StateModified, StateIncomplete, StateRemoved:
			st.Pending++
		}
	}
	return st, nil
}
