package workflow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaflow/internal/flow"
	"gaflow/internal/threading"
)

func newTestWorkflow(t *testing.T) (*Workflow, *threading.ThreadPool) {
	t.Helper()
	pool := threading.NewThreadPool(4, nil)
	t.Cleanup(pool.Close)
	return New(pool), pool
}

// TestWorkflow_PauseResume exercises scenario S4: a workflow paused
// mid-flight stops making progress, and resuming it lets every branch run
// to completion.
func TestWorkflow_PauseResume(t *testing.T) {
	w, _ := newTestWorkflow(t)

	var progressed atomic.Int64
	entered := make(chan struct{}, 8)
	release := make(chan struct{})

	bgFlow := flow.NewBranchGroupFlow()
	gate := flow.NewWorkStep(1, func(ctx flow.BranchContext) (int, error) {
		entered <- struct{}{}
		<-release
		return 0, nil
	})
	after := flow.NewWorkStep(2, func(ctx flow.BranchContext) (int, error) {
		progressed.Add(1)
		return 0, nil
	})
	require.NoError(t, bgFlow.AddStep(gate))
	require.NoError(t, bgFlow.AddStep(after))
	_, err := bgFlow.Connect(0, gate, after)
	require.NoError(t, err)

	finish := NewBarrierStep(1, KindFinish)
	group := w.NewBranchGroup(1, 4, bgFlow, finish, true)
	_ = group

	require.NoError(t, w.Start(context.Background()))

	// Let every branch reach the gate step.
	for i := 0; i < 4; i++ {
		<-entered
	}

	// Pause blocks until every branch has parked on the pause gate, which
	// can't happen until each branch's gate step returns, so call it from
	// a goroutine and release the gate shortly after.
	pauseDone := make(chan error, 1)
	go func() { pauseDone <- w.Pause() }()
	time.Sleep(5 * time.Millisecond)
	close(release)
	require.NoError(t, <-pauseDone)
	assert.Equal(t, StatePaused, w.State())

	// Branches are now parked on stateCheck's pauseGate.Wait before the
	// "after" step, not inside the gate step itself, so no progress should
	// occur yet.
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 0, progressed.Load())

	require.NoError(t, w.Resume())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Wait(ctx))
	assert.Empty(t, w.Errors())
}

// TestWorkflow_BranchGroupTransitionPreservesTeam exercises scenario S5: a
// branch group transition hands the exact same team of branches into a
// new inner flow, and every branch's recorded ID survives the handoff.
func TestWorkflow_BranchGroupTransitionPreservesTeam(t *testing.T) {
	w, _ := newTestWorkflow(t)

	var mu sync.Mutex
	firstIDs := map[int]bool{}
	secondIDs := map[int]bool{}

	firstFlow := flow.NewBranchGroupFlow()
	firstStep := flow.NewWorkStep(1, func(ctx flow.BranchContext) (int, error) {
		mu.Lock()
		firstIDs[ctx.BranchID()] = true
		mu.Unlock()
		return 0, nil
	})
	require.NoError(t, firstFlow.AddStep(firstStep))

	secondFlow := flow.NewBranchGroupFlow()
	secondStep := flow.NewWorkStep(2, func(ctx flow.BranchContext) (int, error) {
		mu.Lock()
		secondIDs[ctx.BranchID()] = true
		mu.Unlock()
		return 0, nil
	})
	require.NoError(t, secondFlow.AddStep(secondStep))

	finish := NewBarrierStep(2, KindFinish)
	transition := NewBarrierStep(1, KindTransition)
	require.NoError(t, transition.SetTransitionFlow(secondFlow, finish))

	group := w.NewBranchGroup(1, 3, firstFlow, transition, true)
	require.NoError(t, Connect(KindBranchGroupTransition, transition, group))

	require.NoError(t, w.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Wait(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, firstIDs, secondIDs)
	assert.Len(t, firstIDs, 3)
}

// TestWorkflow_DecisionRoutingSplit exercises scenario S6: a binary
// decision step routes branches across two outbound paths according to
// its own logic, and both paths are exercised under concurrent execution.
func TestWorkflow_DecisionRoutingSplit(t *testing.T) {
	w, _ := newTestWorkflow(t)

	const branchCount = 10
	const onTrueCount = 7 // a 700/300 split over 10 branches

	var trueCount, falseCount atomic.Int64

	bgFlow := flow.NewBranchGroupFlow()
	decision := flow.NewBinaryDecisionStep(1, func(ctx flow.BranchContext) (int, error) {
		if ctx.BranchID() < onTrueCount {
			return 1, nil
		}
		return 0, nil
	})
	onTrue := flow.NewWorkStep(2, func(ctx flow.BranchContext) (int, error) {
		trueCount.Add(1)
		return 0, nil
	})
	onFalse := flow.NewWorkStep(3, func(ctx flow.BranchContext) (int, error) {
		falseCount.Add(1)
		return 0, nil
	})
	require.NoError(t, bgFlow.AddStep(decision))
	require.NoError(t, bgFlow.AddStep(onTrue))
	require.NoError(t, bgFlow.AddStep(onFalse))
	_, err := bgFlow.Connect(1, decision, onTrue)
	require.NoError(t, err)
	_, err = bgFlow.Connect(0, decision, onFalse)
	require.NoError(t, err)

	finish := NewBarrierStep(1, KindFinish)
	w.NewBranchGroup(1, branchCount, bgFlow, finish, true)

	require.NoError(t, w.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Wait(ctx))

	assert.EqualValues(t, 7, trueCount.Load())
	assert.EqualValues(t, 3, falseCount.Load())
}

func TestWorkflow_StopCancelsInFlightBranches(t *testing.T) {
	w, _ := newTestWorkflow(t)

	bgFlow := flow.NewBranchGroupFlow()
	loop := flow.NewWorkStep(1, nil)
	require.NoError(t, bgFlow.AddStep(loop))

	finish := NewBarrierStep(1, KindFinish)
	w.NewBranchGroup(1, 2, bgFlow, finish, true)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	assert.Equal(t, StateStopped, w.State())
}
