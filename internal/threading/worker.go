package threading

import (
	"context"

	"gaflow/internal/event"
)

// worker owns one goroutine (standing in for spec.md's "one OS thread per
// worker" — Go's scheduler multiplexes goroutines onto OS threads, but the
// worker's lifecycle contract, a single long-lived loop parked on a
// ready-event between assignments, is identical) and a ready-to-run
// signal. A worker not currently running waits on ready; receiving a work
// item signals ready and the loop executes it, then returns itself to the
// pool.
type worker struct {
	pool  *ThreadPool
	ready event.Event
	item  chan assignment

	cancel context.CancelFunc
}

type assignment struct {
	item     WorkItem
	result   *Result
	fallback func(error)
}

func newWorker(pool *ThreadPool) *worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{
		pool:   pool,
		ready:  event.New(event.Auto),
		item:   make(chan assignment, 1),
		cancel: cancel,
	}
	go w.loop(ctx)
	return w
}

// assign hands the worker a unit of work: the item is queued first, then
// ready is signalled, so the worker's wait on ready never races ahead of
// the item being available.
func (w *worker) assign(a assignment) {
	w.item <- a
	w.ready.Signal()
}

func (w *worker) stop() {
	w.cancel()
}

// loop is the worker thread's main body: wait for ready, run the assigned
// item, write its result (or hand the error to the pool's fallback sink),
// return self to the owning pool, repeat. If the worker is marked closed
// while idle, Wait returns an error and the loop exits, discarding the
// worker.
func (w *worker) loop(ctx context.Context) {
	for {
		if err := w.ready.Wait(ctx); err != nil {
			return
		}
		a := <-w.item
		value, err := a.item.Func(ctx)
		if a.result != nil {
			a.result.complete(value, err)
		} else if err != nil && a.fallback != nil {
			a.fallback(err)
		}
		w.pool.release(w)
	}
}
