package storage

import "fmt"

// Cache is a smart handle around a single data entry: constructing it
// increments the entry's reference count, and Close decrements it. A
// Cache cannot be bound to a branch-level scope — branch scopes are
// per-thread and not reference-cachable, since nothing outlives the
// branch that owns them.
type Cache struct {
	scope *Scope
	id    int
	value any
	open  bool
}

// NewCache looks up id in scope and wraps it in a reference-counted
// handle. Binding to a branch-level scope is rejected.
func NewCache(scope *Scope, id int) (*Cache, error) {
	if scope.Level() == LevelBranch {
		return nil, fmt.Errorf("storage: data cache cannot bind to a branch-level scope")
	}
	v, ok := scope.Get(id)
	if !ok {
		return nil, fmt.Errorf("storage: no entry %d in %s scope to cache", id, scope.Level())
	}
	return &Cache{scope: scope, id: id, value: v, open: true}, nil
}

// Value returns the cached value.
func (c *Cache) Value() any { return c.value }

// Close releases the reference this handle is holding. It is safe to call
// more than once.
func (c *Cache) Close() {
	if !c.open {
		return
	}
	c.open = false
	c.scope.Release(c.id)
}

// Binder connects one source entry to a destination entry through a
// setter on the destination. Changing the source first invokes the setter
// on the current destination with a nil source to unbind cleanly, then
// stores the new association and re-invokes the setter with the new
// source.
type Binder struct {
	setter func(source any)
	source any
	bound  bool
}

// NewBinder creates a binder that calls setter whenever the bound source
// changes.
func NewBinder(setter func(source any)) *Binder {
	return &Binder{setter: setter}
}

// Bind unbinds the current source (if any) by calling setter(nil), then
// stores and binds the new source.
func (b *Binder) Bind(source any) {
	if b.bound {
		b.setter(nil)
	}
	b.source = source
	b.bound = true
	b.setter(source)
}

// Unbind clears the current association, invoking setter(nil).
func (b *Binder) Unbind() {
	if !b.bound {
		return
	}
	b.bound = false
	b.source = nil
	b.setter(nil)
}

// Source returns the currently bound source, or nil if unbound.
func (b *Binder) Source() any {
	if !b.bound {
		return nil
	}
	return b.source
}
