// Package atomicx provides the word- and double-word-sized atomic
// primitives the engine is built on, plus a lock-free intrusive LIFO
// stack used by the worker pool for its idle workers.
package atomicx

import "sync/atomic"

// Word wraps a machine-word-sized atomic counter with the operation set
// the engine needs: increment, decrement, add, subtract, bitwise, exchange
// and compare-and-set. sync/atomic.Int64 already gives us linearisable
// single-word ops; Word exists so call sites read as the domain operations
// from spec.4.1 rather than raw CAS loops.
type Word struct {
	v atomic.Int64
}

func (w *Word) Load() int64 { return w.v.Load() }

func (w *Word) Store(val int64) { w.v.Store(val) }

func (w *Word) Increment() int64 { return w.v.Add(1) }

func (w *Word) Decrement() int64 { return w.v.Add(-1) }

func (w *Word) Add(delta int64) int64 { return w.v.Add(delta) }

func (w *Word) Subtract(delta int64) int64 { return w.v.Add(-delta) }

func (w *Word) CompareAndSet(old, new int64) bool { return w.v.CompareAndSwap(old, new) }

func (w *Word) Exchange(new int64) int64 { return w.v.Swap(new) }

// And, Or and Xor apply a bitwise operation in a CAS retry loop;
// sync/atomic has no native bitwise ops for signed words.
func (w *Word) And(mask int64) int64 {
	for {
		old := w.v.Load()
		if w.v.CompareAndSwap(old, old&mask) {
			return old & mask
		}
	}
}

func (w *Word) Or(mask int64) int64 {
	for {
		old := w.v.Load()
		if w.v.CompareAndSwap(old, old|mask) {
			return old | mask
		}
	}
}

func (w *Word) Xor(mask int64) int64 {
	for {
		old := w.v.Load()
		if w.v.CompareAndSwap(old, old^mask) {
			return old ^ mask
		}
	}
}
