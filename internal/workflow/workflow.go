package workflow

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"gaflow/internal/event"
	"gaflow/internal/flow"
	"gaflow/internal/storage"
	"gaflow/internal/threading"
)

// State is one of the three workflow lifecycle states from spec.md §4.9.
type State int32

const (
	StateStopped State = iota
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Workflow is the top-level object from spec.md §4.9: the global and
// workflow-level data scopes, the initial branch groups Start spawns
// (barriers and later groups are reached through them), and the
// cooperative start/pause/resume/stop
// state machine every branch consults at its step boundaries.
type Workflow struct {
	global *storage.Scope
	scope  *storage.Scope
	pool   *threading.ThreadPool

	state State32

	// pauseGate is signalled (open) while the workflow is not paused;
	// branches block on it at every step boundary.
	pauseGate event.Event
	// stateChangeAck is signalled once the effect of the most recent
	// Pause/Resume/Stop call has been observed by every branch it
	// concerns: Pause/Stop reset it and wait for it before returning, so
	// callers only see State() reflect a transition once it has actually
	// taken hold branch-side, not merely been requested.
	stateChangeAck event.Event
	// endLatch is signalled exactly once, when the last branch group
	// finishes and there is no more work left to schedule.
	endLatch event.Event

	// runningBranches counts branches currently inside a run() call,
	// across every branch group. stateCheck and Pause/Resume/Stop consult
	// it to know when every branch has checked in.
	runningBranches atomic.Int64
	// pausedBranches counts branches currently parked on pauseGate inside
	// stateCheck. Pause waits for it to reach runningBranches (everyone
	// has parked); Resume waits for it to reach zero (everyone has left).
	pausedBranches atomic.Int64

	initialGroups []*BranchGroup
	activeGroups  atomic.Int64

	errMu sync.Mutex
	errs  []error

	cancel context.CancelFunc
}

// State32 is a thin CAS-friendly wrapper around the workflow's three
// possible states, mirroring the atomic word pattern used by
// internal/atomicx and internal/syncbarrier elsewhere in this module.
type State32 struct{ v atomic.Int32 }

func (s *State32) Load() State                { return State(s.v.Load()) }
func (s *State32) Store(v State)              { s.v.Store(int32(v)) }
func (s *State32) CAS(old, new State) bool    { return s.v.CompareAndSwap(int32(old), int32(new)) }

// New creates an empty workflow with its own global and workflow-level
// data scopes, backed by pool for executing branch work.
func New(pool *threading.ThreadPool) *Workflow {
	w := &Workflow{
		pool:           pool,
		pauseGate:      event.New(event.Manual),
		stateChangeAck: event.New(event.Manual),
		endLatch:       event.New(event.Manual),
	}
	w.global = storage.New(storage.LevelGlobal, nil)
	w.scope = storage.New(storage.LevelWorkflow, map[storage.Level]*storage.Scope{storage.LevelGlobal: w.global})
	w.pauseGate.Signal() // not paused by default
	return w
}

// GlobalScope returns the workflow's global-level data scope.
func (w *Workflow) GlobalScope() *storage.Scope { return w.global }

// NewBranchGroup creates and registers a branch group of size branches
// running bgFlow, reporting to lastStep on exit. Passing isInitial=true
// marks the group as one of the teams Start spawns immediately.
func (w *Workflow) NewBranchGroup(id, size int, bgFlow *flow.BranchGroupFlow, lastStep *BarrierStep, isInitial bool) *BranchGroup {
	g := newBranchGroup(id, size, w, bgFlow, lastStep)
	if isInitial {
		w.initialGroups = append(w.initialGroups, g)
	}
	return g
}

// Start transitions the workflow from stopped to running and schedules
// every initial branch group's team onto the thread pool. It is an error
// to call Start on a workflow that is not currently stopped.
func (w *Workflow) Start(ctx context.Context) error {
	if !w.state.CAS(StateStopped, StateRunning) {
		return fmt.Errorf("workflow: cannot start from state %s", w.state.Load())
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.stateChangeAck.Signal()

	if len(w.initialGroups) == 0 {
		w.endLatch.Signal()
		return nil
	}
	for _, g := range w.initialGroups {
		w.spawnGroup(ctx, g)
	}
	return nil
}

// Pause closes the pause gate and blocks until every currently running
// branch has observed the pause and parked on it at its next step
// boundary (spec.md §4.9's state-change acknowledgement). Pause is only
// valid while the workflow is running.
func (w *Workflow) Pause() error {
	if !w.state.CAS(StateRunning, StatePaused) {
		return fmt.Errorf("workflow: cannot pause from state %s", w.state.Load())
	}
	w.stateChangeAck.Reset()
	w.pauseGate.Reset()
	if w.runningBranches.Load() == w.pausedBranches.Load() {
		w.stateChangeAck.Signal()
	}
	return w.stateChangeAck.Wait(context.Background())
}

// Resume reopens the pause gate and blocks until every parked branch has
// woken and left it.
func (w *Workflow) Resume() error {
	if !w.state.CAS(StatePaused, StateRunning) {
		return fmt.Errorf("workflow: cannot resume from state %s", w.state.Load())
	}
	w.stateChangeAck.Reset()
	if w.pausedBranches.Load() == 0 {
		w.stateChangeAck.Signal()
	}
	w.pauseGate.Signal()
	return w.stateChangeAck.Wait(context.Background())
}

// Stop cancels the context every branch observes at its step boundaries,
// ending the workflow cooperatively rather than forcibly, and blocks until
// every branch has actually run out (runningBranches reaches zero). It is
// valid from either running or paused.
func (w *Workflow) Stop() error {
	old := w.state.Load()
	if old != StateRunning && old != StatePaused {
		return fmt.Errorf("workflow: cannot stop from state %s", old)
	}
	if !w.state.CAS(old, StateStopped) {
		return fmt.Errorf("workflow: concurrent state change, retry stop")
	}
	w.stateChangeAck.Reset()
	w.pauseGate.Signal() // unblock anyone paused so they observe cancellation
	if w.cancel != nil {
		w.cancel()
	}
	if w.runningBranches.Load() == 0 {
		w.stateChangeAck.Signal()
	}
	return w.stateChangeAck.Wait(context.Background())
}

// Wait blocks until the workflow has no more scheduled work, or ctx is
// cancelled first.
func (w *Workflow) Wait(ctx context.Context) error {
	return w.endLatch.Wait(ctx)
}

// State reports the workflow's current lifecycle state.
func (w *Workflow) State() State { return w.state.Load() }

// Errors returns every branch-level error collected so far. The slice is a
// snapshot; callers should not mutate it.
func (w *Workflow) Errors() []error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	out := make([]error, len(w.errs))
	copy(out, w.errs)
	return out
}

// stateCheck is consulted by every branch at every step boundary: it
// blocks while the workflow is paused, maintaining the paused-branches
// counter Pause/Resume wait on, and returns ctx.Err() once the workflow
// has been stopped (or ctx was independently cancelled).
func (w *Workflow) stateCheck(ctx context.Context) error {
	if w.state.Load() == StatePaused {
		w.enterPause()
		err := w.pauseGate.Wait(ctx)
		w.exitPause()
		if err != nil {
			return err
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// enterPause records one more branch parked on the pause gate, signalling
// stateChangeAck once every running branch has checked in.
func (w *Workflow) enterPause() {
	if w.pausedBranches.Add(1) == w.runningBranches.Load() {
		w.stateChangeAck.Signal()
	}
}

// exitPause records one fewer branch parked on the pause gate, signalling
// stateChangeAck once the last parked branch has left.
func (w *Workflow) exitPause() {
	if w.pausedBranches.Add(-1) == 0 {
		w.stateChangeAck.Signal()
	}
}

// branchStarted records one more branch currently inside a run() call.
// Called by a branch group as it submits each branch to the pool, so the
// increment is visible before that branch's first stateCheck.
func (w *Workflow) branchStarted() {
	w.runningBranches.Add(1)
}

// branchStopped records one fewer branch currently inside a run() call,
// signalling stateChangeAck if the workflow is stopping and this was the
// last one to exit.
func (w *Workflow) branchStopped() {
	if w.runningBranches.Add(-1) == 0 && w.state.Load() == StateStopped {
		w.stateChangeAck.Signal()
	}
}

func (w *Workflow) spawnGroup(ctx context.Context, g *BranchGroup) {
	w.activeGroups.Add(1)
	g.start(ctx)
}

func (w *Workflow) branchGroupFinished(g *BranchGroup) {
	if w.activeGroups.Add(-1) == 0 {
		w.endLatch.Signal()
	}
}

func (w *Workflow) reportBranchError(err error) {
	w.errMu.Lock()
	w.errs = append(w.errs, err)
	w.errMu.Unlock()
}
