// Package signal provides a small observable state container.
// A State holds one immutable snapshot; every Update swaps in a new snapshot
// and then notifies subscribers with it, outside the lock.
package signal

import (
	"sync"
)

// State is a thread-safe holder for a snapshot of type T.
// Values stored in a State must be treated as immutable by everyone.
type State[T any] struct {
	mu     sync.RWMutex
	value  T
	nextID int
	subs   map[int]func(T)
}

// New creates a State seeded with initial.
func New[T any](initial T) *State[T] {
	return &State[T]{
		value: initial,
		subs:  make(map[int]func(T)),
	}
}

// Load returns the current snapshot.
func (s *State[T]) Load() T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.value
}

// Update computes the next snapshot from the current one. When fn reports
// changed == false nothing is stored and nobody is notified.
// Notifications of concurrent Updates are not ordered; a subscriber that
// needs the latest value should Load it.
func (s *State[T]) Update(fn func(current T) (next T, changed bool)) bool {
	s.mu.Lock()
	next, changed := fn(s.value)
	if !changed {
		s.mu.Unlock()
		return false
	}
	s.value = next
	subs := s.snapshotSubs()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return true
}

// Set replaces the snapshot unconditionally.
func (s *State[T]) Set(value T) {
	s.Update(func(T) (T, bool) { return value, true })
}

// Subscribe registers fn to receive every new snapshot. The returned func
// removes the subscription; calling it more than once is harmless.
func (s *State[T]) Subscribe(fn func(T)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// snapshotSubs copies the subscriber list in registration order. Caller holds mu.
func (s *State[T]) snapshotSubs() []func(T) {
	if len(s.subs) == 0 {
		return nil
	}
	out := make([]func(T), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.subs[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}
