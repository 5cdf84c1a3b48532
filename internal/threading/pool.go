// Package threading implements the worker-thread pool from spec.md §4.3:
// one goroutine per worker, a fixed target size that grows on demand, and
// an optional fallback error sink for exceptions that escape a work item
// with no result slot.
package threading

import (
	"sync"

	"gaflow/internal/atomicx"
)

// ThreadPool acquires workers on demand, creating new ones once the idle
// stack is empty, and executes WorkItems on them.
type ThreadPool struct {
	targetSize int

	idle *atomicx.Stack[*worker]

	mu       sync.Mutex
	all      map[*worker]struct{}
	active   int
	closed   bool
	fallback func(error)

	drained chan struct{}
}

// NewThreadPool creates a pool whose idle stack is pre-seeded with
// targetSize workers. fallback, if non-nil, receives errors from work
// items that carry no result slot.
func NewThreadPool(targetSize int, fallback func(error)) *ThreadPool {
	if targetSize < 1 {
		targetSize = 1
	}
	p := &ThreadPool{
		targetSize: targetSize,
		idle:       atomicx.NewStack[*worker](),
		all:        make(map[*worker]struct{}),
		fallback:   fallback,
		drained:    make(chan struct{}),
	}
	for i := 0; i < targetSize; i++ {
		w := newWorker(p)
		p.all[w] = struct{}{}
		p.idle.Push(w)
	}
	return p
}

// Execute submits work to the pool, acquiring an idle worker or spawning a
// new one if none is idle. If wantResult is true, the returned Result can
// be waited on for completion; otherwise a failure is routed to the pool's
// fallback sink (if configured) or silently dropped.
func (p *ThreadPool) Execute(item WorkItem, wantResult bool) *Result {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		panic("threading: Execute called on a closed ThreadPool")
	}
	p.active++
	p.mu.Unlock()

	w, ok := p.idle.Pop()
	if !ok {
		w = newWorker(p)
		p.mu.Lock()
		p.all[w] = struct{}{}
		p.mu.Unlock()
	}

	var result *Result
	if wantResult {
		result = newResult()
	}
	w.assign(assignment{item: item, result: result, fallback: p.fallback})
	return result
}

// release returns a worker to the idle stack; it is called by the worker
// itself after finishing an item.
func (p *ThreadPool) release(w *worker) {
	p.idle.Push(w)

	p.mu.Lock()
	p.active--
	drained := p.active == 0 && p.closed
	p.mu.Unlock()

	if drained {
		close(p.drained)
	}
}

// Size returns the number of worker goroutines currently owned by the
// pool (idle or busy).
func (p *ThreadPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.all)
}

// Close marks the pool closed and waits for all in-flight work to
// complete, then stops every worker goroutine. Close is idempotent.
func (p *ThreadPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	noneActive := p.active == 0
	workers := make([]*worker, 0, len(p.all))
	for w := range p.all {
		workers = append(workers, w)
	}
	p.mu.Unlock()

	if noneActive {
		close(p.drained)
	}
	<-p.drained

	for _, w := range workers {
		w.stop()
	}
}
