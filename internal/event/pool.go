package event

import "sync"

// Pool holds two bounded free lists, one per event Type, so branches and
// barriers can borrow events instead of allocating a fresh one on every
// phase. Acquiring from an empty pool allocates; releasing into a full
// pool drops the event for the GC to collect.
type Pool struct {
	capacity int

	mu    sync.Mutex
	auto   []Event
	manual []Event
}

// NewPool creates a pool bounded at capacity per event type. A capacity of
// 0 disables the free lists: every Acquire allocates and every Release
// discards.
func NewPool(capacity int) *Pool {
	return &Pool{capacity: capacity}
}

// Acquire returns an unsignalled event of type t, reused from the pool
// when available.
func (p *Pool) Acquire(t Type) Event {
	p.mu.Lock()
	list := p.listFor(t)
	var e Event
	if n := len(*list); n > 0 {
		e = (*list)[n-1]
		(*list)[n-1] = nil
		*list = (*list)[:n-1]
	}
	p.mu.Unlock()

	if e == nil {
		return New(t)
	}
	e.Reset()
	return e
}

// Release returns e to its pool. Releasing an event with waiters pending
// is a usage error the caller must avoid: the event would be handed back
// out still carrying state another goroutine is blocked on.
func (p *Pool) Release(e Event) {
	e.Reset()

	p.mu.Lock()
	defer p.mu.Unlock()
	list := p.listFor(e.Type())
	if len(*list) >= p.capacity {
		return
	}
	*list = append(*list, e)
}

func (p *Pool) listFor(t Type) *[]Event {
	if t == Manual {
		return &p.manual
	}
	return &p.auto
}

// Handle is a smart-handle around an acquired event: Release returns it to
// the owning pool automatically, matching the RAII acquire pattern spec.4.2
// describes.
type Handle struct {
	pool  *Pool
	Event Event
}

// AcquireHandle acquires an event of type t and wraps it in a Handle.
func (p *Pool) AcquireHandle(t Type) *Handle {
	return &Handle{pool: p, Event: p.Acquire(t)}
}

// Release returns the wrapped event to the pool it was acquired from.
func (h *Handle) Release() {
	h.pool.Release(h.Event)
}
