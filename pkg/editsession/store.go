// Package editsession tracks which records are open for editing and holds
// their draft values apart from the canonical copies.
package editsession

import (
	"github.com/kittclouds/usergrid/pkg/records"
	"github.com/kittclouds/usergrid/pkg/signal"
)

// Session is an immutable view of the edit state.
type Session struct {
	Drafts         map[int]records.Record
	BulkInProgress bool
}

// IsEditing reports whether id has an open draft.
func (s Session) IsEditing(id int) bool {
	_, ok := s.Drafts[id]
	return ok
}

// Store holds the open drafts and the bulk edit flag.
type Store struct {
	state *signal.State[Session]
}

// New creates a store with no open drafts.
func New() *Store {
	return &Store{
		state: signal.New(Session{Drafts: map[int]records.Record{}}),
	}
}

// StartEdit opens exactly the given drafts, dropping any previous ones.
// The bulk flag is left as is.
func (s *Store) StartEdit(pairs []records.Pair) {
	drafts := make(map[int]records.Record, len(pairs))
	for _, p := range pairs {
		r := p.Record
		r.ID = p.ID
		drafts[p.ID] = r
	}
	s.state.Update(func(cur Session) (Session, bool) {
		return Session{Drafts: drafts, BulkInProgress: cur.BulkInProgress}, true
	})
}

// StartEditAll opens a draft for every record and raises the bulk flag.
func (s *Store) StartEditAll(list []records.Record) {
	drafts := make(map[int]records.Record, len(list))
	for _, r := range list {
		drafts[r.ID] = r
	}
	s.state.Set(Session{Drafts: drafts, BulkInProgress: true})
}

// PatchDraft merges patch into the draft for id. Ids without a draft are
// ignored, so UI wiring can fire patches blindly.
func (s *Store) PatchDraft(id int, patch records.Patch) bool {
	return s.state.Update(func(cur Session) (Session, bool) {
		draft, ok := cur.Drafts[id]
		if !ok || patch.IsEmpty() {
			return cur, false
		}
		drafts := records.CopyMap(cur.Drafts)
		drafts[id] = patch.Apply(draft)
		return Session{Drafts: drafts, BulkInProgress: cur.BulkInProgress}, true
	})
}

// PatchDraftJSON applies a JSON merge patch to the draft for id.
// Absent drafts are ignored; a malformed patch is an error.
func (s *Store) PatchDraftJSON(id int, patch []byte) error {
	var mergeErr error
	s.state.Update(func(cur Session) (Session, bool) {
		draft, ok := cur.Drafts[id]
		if !ok {
			return cur, false
		}
		merged, err := records.MergeJSON(draft, patch)
		if err != nil {
			mergeErr = err
			return cur, false
		}
		if merged == draft {
			return cur, false
		}
		drafts := records.CopyMap(cur.Drafts)
		drafts[id] = merged
		return Session{Drafts: drafts, BulkInProgress: cur.BulkInProgress}, true
	})
	return mergeErr
}

// Discard closes the draft for id without touching the others.
func (s *Store) Discard(id int) bool {
	return s.state.Update(func(cur Session) (Session, bool) {
		if !cur.IsEditing(id) {
			return cur, false
		}
		drafts := records.CopyMap(cur.Drafts)
		delete(drafts, id)
		return Session{Drafts: drafts, BulkInProgress: cur.BulkInProgress}, true
	})
}

// Reset closes every draft and clears the bulk flag.
func (s *Store) Reset() {
	s.state.Set(Session{Drafts: map[int]records.Record{}})
}

// SetBulkInProgress sets the bulk flag without touching the drafts.
func (s *Store) SetBulkInProgress(flag bool) {
	s.state.Update(func(cur Session) (Session, bool) {
		if cur.BulkInProgress == flag {
			return cur, false
		}
		return Session{Drafts: cur.Drafts, BulkInProgress: flag}, true
	})
}

// Drafts returns a copy of the open drafts.
func (s *Store) Drafts() map[int]records.Record {
	return records.CopyMap(s.state.Load().Drafts)
}

// Draft returns the draft for id.
func (s *Store) Draft(id int) (records.Record, bool) {
	r, ok := s.state.Load().Drafts[id]
	return r, ok
}

// IsBulkInProgress reports whether an edit-all session is open.
func (s *Store) IsBulkInProgress() bool {
	return s.state.Load().BulkInProgress
}

// IsEditing reports whether id has an open draft.
func (s *Store) IsEditing(id int) bool {
	return s.state.Load().IsEditing(id)
}

// Len returns the number of open drafts.
func (s *Store) Len() int {
	return len(s.state.Load().Drafts)
}

// Subscribe calls fn with every new session snapshot. The Drafts map passed
// to fn must not be modified.
func (s *Store) Subscribe(fn func(Session)) (cancel func()) {
	return s.state.Subscribe(fn)
}
