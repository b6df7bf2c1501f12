// Package recordstore holds the canonical user records in memory.
// Records are hydrated once at startup, then merged per save.
package recordstore

import (
	"github.com/kittclouds/usergrid/pkg/records"
	"github.com/kittclouds/usergrid/pkg/signal"
)

// snapshot is the normalized collection: ordered ids plus an id index.
// A snapshot is never mutated after it is published.
type snapshot struct {
	ids      []int
	entities map[int]records.Record
}

// Store is the normalized collection of canonical records.
// Thread-safe; every mutation publishes a new snapshot.
type Store struct {
	state *signal.State[snapshot]
}

// New creates an empty record store.
func New() *Store {
	return &Store{
		state: signal.New(snapshot{entities: map[int]records.Record{}}),
	}
}

// SetAll replaces the whole collection. Order follows the input; a repeated
// id keeps its first position and its last value.
func (s *Store) SetAll(list []records.Record) int {
	next := snapshot{
		ids:      make([]int, 0, len(list)),
		entities: make(map[int]records.Record, len(list)),
	}
	for _, r := range list {
		if _, seen := next.entities[r.ID]; !seen {
			next.ids = append(next.ids, r.ID)
		}
		next.entities[r.ID] = r
	}
	s.state.Set(next)
	return len(next.ids)
}

// Lookup returns the record with the given id.
func (s *Store) Lookup(id int) (records.Record, bool) {
	r, ok := s.state.Load().entities[id]
	return r, ok
}

// UpdateOne merges changes into the record with the given id.
// Unknown ids are ignored.
func (s *Store) UpdateOne(id int, changes records.Patch) bool {
	return s.UpdateMany([]records.Update{{ID: id, Changes: changes}}) > 0
}

// UpdateMany applies UpdateOne semantics for each update and publishes once.
// Returns how many records were found and merged.
func (s *Store) UpdateMany(updates []records.Update) int {
	applied := 0
	s.state.Update(func(cur snapshot) (snapshot, bool) {
		var entities map[int]records.Record
		for _, u := range updates {
			if _, ok := cur.entities[u.ID]; !ok {
				continue
			}
			if entities == nil {
				entities = copyEntities(cur.entities)
			}
			entities[u.ID] = u.Changes.Apply(entities[u.ID])
			applied++
		}
		if entities == nil {
			return cur, false
		}
		return snapshot{ids: cur.ids, entities: entities}, true
	})
	return applied
}

// Upsert stores r, appending its id when it is not listed yet.
func (s *Store) Upsert(r records.Record) {
	s.state.Update(func(cur snapshot) (snapshot, bool) {
		entities := copyEntities(cur.entities)
		ids := cur.ids
		if _, ok := cur.entities[r.ID]; !ok {
			ids = append(append(make([]int, 0, len(cur.ids)+1), cur.ids...), r.ID)
		}
		entities[r.ID] = r
		return snapshot{ids: ids, entities: entities}, true
	})
}

// List returns the records in collection order.
func (s *Store) List() []records.Record {
	return s.state.Load().list()
}

// IDs returns the ordered ids.
func (s *Store) IDs() []int {
	cur := s.state.Load()
	out := make([]int, len(cur.ids))
	copy(out, cur.ids)
	return out
}

// Len returns the number of records in the store.
func (s *Store) Len() int {
	return len(s.state.Load().ids)
}

// Subscribe calls fn with the recomputed list after every mutation.
func (s *Store) Subscribe(fn func([]records.Record)) (cancel func()) {
	return s.state.Subscribe(func(next snapshot) {
		fn(next.list())
	})
}

func (s snapshot) list() []records.Record {
	out := make([]records.Record, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.entities[id])
	}
	return out
}

func copyEntities(m map[int]records.Record) map[int]records.Record {
	out := make(map[int]records.Record, len(m)+1)
	for id, r := range m {
		out[id] = r
	}
	return out
}
