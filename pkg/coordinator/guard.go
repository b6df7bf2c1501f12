package coordinator

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
)

// LockScope decides which saves exclude each other.
type LockScope string

const (
	// ScopeKind keeps one slot per operation kind: a row save and a bulk
	// save may overlap, two row saves may not.
	ScopeKind LockScope = "kind"
	// ScopeGlobal shares one slot between both kinds.
	ScopeGlobal LockScope = "global"
	// ScopeRecord gives every record id its own row-save slot.
	// Bulk saves keep their kind slot.
	ScopeRecord LockScope = "record"
)

// ParseLockScope maps a config value to a LockScope. Empty means ScopeKind.
func ParseLockScope(s string) (LockScope, error) {
	switch LockScope(strings.ToLower(s)) {
	case "", ScopeKind:
		return ScopeKind, nil
	case ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeRecord:
		return ScopeRecord, nil
	default:
		return "", fmt.Errorf("coordinator: unknown lock scope %q", s)
	}
}

// guards hands out single-flight slots. A slot is taken with TryAcquire,
// so a busy slot drops the caller instead of queueing it.
type guards struct {
	scope LockScope
	one   *semaphore.Weighted
	all   *semaphore.Weighted

	mu      sync.Mutex
	records map[int]struct{}
}

func newGuards(scope LockScope) *guards {
	g := &guards{
		scope:   scope,
		one:     semaphore.NewWeighted(1),
		records: make(map[int]struct{}),
	}
	if scope == ScopeGlobal {
		g.all = g.one
	} else {
		g.all = semaphore.NewWeighted(1)
	}
	return g
}

// tryOne takes the row-save slot for id.
func (g *guards) tryOne(id int) (release func(), ok bool) {
	if g.scope == ScopeRecord {
		g.mu.Lock()
		defer g.mu.Unlock()
		if _, busy := g.records[id]; busy {
			return nil, false
		}
		g.records[id] = struct{}{}
		return func() {
			g.mu.Lock()
			delete(g.records, id)
			g.mu.Unlock()
		}, true
	}
	if !g.one.TryAcquire(1) {
		return nil, false
	}
	return func() { g.one.Release(1) }, true
}

// tryAll takes the bulk-save slot.
func (g *guards) tryAll() (release func(), ok bool) {
	if !g.all.TryAcquire(1) {
		return nil, false
	}
	return func() { g.all.Release(1) }, true
}
