// Package syncbarrier implements the reusable multi-party rendezvous from
// spec.md §4.4: a two-event design (phaseGate signalled when idle,
// releaseGate signalled to release a phase) so that a fast thread
// returning for the next phase cannot race ahead of slow threads still
// leaving the previous one. A single counter is not sufficient for this;
// both events are required (see spec.md §9, "Reusable barrier
// correctness").
package syncbarrier

import (
	"context"
	"sync/atomic"

	"gaflow/internal/event"
)

// Barrier is a reusable rendezvous point. The zero value is not usable;
// construct with New.
type Barrier struct {
	phaseGate   event.Event // signalled iff no phase is in progress
	releaseGate event.Event // signalled to release the current phase

	remaining atomic.Int64
	exited    atomic.Int64
}

// New returns a barrier ready for its first phase. phaseGate starts
// signalled (no phase in progress); releaseGate starts unsignalled.
func New() *Barrier {
	b := &Barrier{
		phaseGate:   event.New(event.Manual),
		releaseGate: event.New(event.Manual),
	}
	b.phaseGate.Signal()
	return b
}

// Enter runs one phase of the barrier for a party expecting `expected`
// total participants. If releaseIfLast is true, the arriving-last thread
// performs its own exit bookkeeping and returns like everyone else; if
// false, the arriving-last thread returns immediately *without* blocking,
// and is responsible for calling Release(expected) itself once it has
// done whatever fan-out work the caller needed gated on being "the one
// that closes the barrier" — used by workflow barriers for fan-out.
//
// Enter reports whether the calling thread was the one that observed
// "I am last" (isLast).
func (b *Barrier) Enter(ctx context.Context, expected int, releaseIfLast bool) (isLast bool, err error) {
	if expected <= 1 {
		return true, nil
	}

	if err := b.phaseGate.Wait(ctx); err != nil {
		return false, err
	}

	// Lazily initialise remaining for this phase. If two phases somehow
	// overlapped here the CAS would simply fail and stack up -- spec.md §9
	// explicitly treats phase overlap as a precondition violation the
	// two-event design is meant to prevent, not a case to handle.
	b.remaining.CompareAndSwap(0, int64(expected))

	left := b.remaining.Add(-1)
	if left == 0 {
		b.phaseGate.Reset()
		if releaseIfLast {
			b.releaseGate.Signal()
		} else {
			return true, nil
		}
	} else {
		if err := b.releaseGate.Wait(ctx); err != nil {
			return false, err
		}
	}

	b.exit(expected)
	return left == 0, nil
}

// Release signals releaseGate and performs the exit bookkeeping for the
// thread that entered with releaseIfLast=false and was told isLast=true.
// The documented contract is that ONLY that thread may call Release; any
// other caller corrupts the phase.
func (b *Barrier) Release(expected int) {
	b.releaseGate.Signal()
	b.exit(expected)
}

// exit increments the exited counter; the exiter that completes the phase
// resets releaseGate and signals phaseGate so the next phase may begin.
func (b *Barrier) exit(expected int) {
	if b.exited.Add(1) == int64(expected) {
		b.exited.Store(0)
		b.remaining.Store(0)
		b.releaseGate.Reset()
		b.phaseGate.Signal()
	}
}
