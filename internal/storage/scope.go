// Package storage implements the hierarchical data storage from spec.md
// §4.5: four scope levels (global < workflow < branch-group < branch),
// typed entries addressed by integer ID with reference-counted handles,
// and lookup that walks up the scope chain.
//
// Entries live in a puzpuzpuz/xsync concurrent map rather than a
// mutex-guarded Go map: scope lookups happen on every step boundary from
// every branch concurrently and are read-dominated, which is exactly the
// access pattern xsync.MapOf is built for (see SPEC_FULL.md §5).
package storage

import (
	"fmt"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// Level is one of the four scope levels. Ordering matters: storing into a
// scope of level L' via a scope object of level L requires L' <= L.
type Level int

const (
	LevelGlobal Level = iota
	LevelWorkflow
	LevelBranchGroup
	LevelBranch
	numLevels
)

func (l Level) String() string {
	switch l {
	case LevelGlobal:
		return "global"
	case LevelWorkflow:
		return "workflow"
	case LevelBranchGroup:
		return "branch-group"
	case LevelBranch:
		return "branch"
	default:
		return "unknown"
	}
}

// entry is a type-erased, reference-counted owned object.
type entry struct {
	value    any
	refcount atomic.Int64
}

// Scope is one level of the data storage chain. A scope of level L can
// only be queried at level <= L: get()/find() read this scope and walk
// outward to parents, never inward to children.
type Scope struct {
	level   Level
	entries *xsync.MapOf[int, *entry]
	parents [numLevels]*Scope
}

// New creates a scope at the given level. parents maps level -> scope for
// every ancestor level this scope should be able to forward writes and
// lookups to (e.g. a branch scope's parents table holds its branch-group,
// workflow and global scopes).
func New(level Level, parents map[Level]*Scope) *Scope {
	s := &Scope{level: level, entries: xsync.NewMapOf[int, *entry]()}
	for lvl, p := range parents {
		s.parents[lvl] = p
	}
	return s
}

// Level returns the scope's level.
func (s *Scope) Level() Level { return s.level }

// Add inserts value under id at the given level. If level equals this
// scope's own level, the entry is inserted here (failing if id is already
// present). Otherwise the call is forwarded to the parent scope at that
// level; forwarding to a level below this scope's own is rejected, since a
// scope can only ever reach outward toward broader scopes.
func (s *Scope) Add(id int, level Level, value any) error {
	if level > s.level {
		return fmt.Errorf("storage: cannot add at level %s from a %s scope", level, s.level)
	}
	if level != s.level {
		parent := s.parents[level]
		if parent == nil {
			return fmt.Errorf("storage: no parent scope registered at level %s", level)
		}
		return parent.Add(id, level, value)
	}

	e := &entry{value: value}
	if _, loaded := s.entries.LoadOrStore(id, e); loaded {
		return fmt.Errorf("storage: duplicate data id %d at level %s", id, s.level)
	}
	return nil
}

// Get looks up id in this scope only (no walking to parents) and, on a
// hit, increments the entry's reference count.
func (s *Scope) Get(id int) (any, bool) {
	e, ok := s.entries.Load(id)
	if !ok {
		return nil, false
	}
	e.refcount.Add(1)
	return e.value, true
}

// Find walks this scope, then parents in decreasing level order, up to
// maxDepth levels, stopping at the first hit. A successful Find increments
// the winning entry's reference count, exactly like Get.
func (s *Scope) Find(id int, maxDepth int) (any, bool) {
	cur := s
	depth := 0
	for cur != nil && depth <= maxDepth {
		if v, ok := cur.Get(id); ok {
			return v, true
		}
		cur = cur.nextParent()
		depth++
	}
	return nil, false
}

// nextParent returns the nearest ancestor scope (the parent at the next
// level down from this scope's own, i.e. the broader scope immediately
// enclosing it).
func (s *Scope) nextParent() *Scope {
	for lvl := s.level - 1; lvl >= LevelGlobal; lvl-- {
		if s.parents[lvl] != nil {
			return s.parents[lvl]
		}
	}
	return nil
}

// Remove deletes the entry for id at this scope's own level. It refuses
// to delete an entry with a positive reference count.
func (s *Scope) Remove(id int) error {
	e, ok := s.entries.Load(id)
	if !ok {
		return fmt.Errorf("storage: no entry %d at level %s", id, s.level)
	}
	if e.refcount.Load() > 0 {
		return fmt.Errorf("storage: entry %d at level %s still referenced (refcount=%d)", id, s.level, e.refcount.Load())
	}
	s.entries.Delete(id)
	return nil
}

// Release decrements the reference count previously incremented by Get or
// Find. It is the counterpart callers use once they are done with a
// looked-up value.
func (s *Scope) Release(id int) {
	if e, ok := s.entries.Load(id); ok {
		e.refcount.Add(-1)
	}
}

// RefCount reports the current reference count for id at this scope's own
// level, or -1 if no such entry exists.
func (s *Scope) RefCount(id int) int64 {
	e, ok := s.entries.Load(id)
	if !ok {
		return -1
	}
	return e.refcount.Load()
}
