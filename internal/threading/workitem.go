package threading

import (
	"context"
	"sync"
)

// resultState mirrors spec.md §3's "Entity: Work item" result-slot states.
type resultState int32

const (
	resultPending resultState = iota
	resultReady
	resultFailed
)

// Func is the callable a WorkItem carries.
type Func func(ctx context.Context) (any, error)

// WorkItem bundles a callable with its arguments (closed over by Func).
// The optional result slot is requested through ThreadPool.Execute.
type WorkItem struct {
	Func Func
}

// Result is the optional completion handle returned by ThreadPool.Execute
// when the caller asked for one. It carries pending/ready/failed state and
// signals a latch other goroutines can Wait on.
type Result struct {
	mu    sync.Mutex
	state resultState
	value any
	err   error
	done  chan struct{}
}

func newResult() *Result {
	return &Result{done: make(chan struct{})}
}

func (r *Result) complete(value any, err error) {
	r.mu.Lock()
	if err != nil {
		r.state = resultFailed
		r.err = err
	} else {
		r.state = resultReady
		r.value = value
	}
	r.mu.Unlock()
	close(r.done)
}

// Wait blocks until the work item completes or ctx is done.
func (r *Result) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done reports whether the work item has finished, without blocking.
func (r *Result) Done() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Value returns the produced value and error once the item has completed.
// Calling it before completion returns (nil, nil, false).
func (r *Result) Value() (value any, err error, ok bool) {
	select {
	case <-r.done:
	default:
		return nil, nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value, r.err, true
}

// Failed reports whether the completed item ended in the failed state.
func (r *Result) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == resultFailed
}
