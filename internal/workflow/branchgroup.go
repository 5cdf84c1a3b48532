package workflow

import (
	"context"
	"fmt"
	"sync/atomic"

	"gaflow/internal/flow"
	"gaflow/internal/storage"
	"gaflow/internal/threading"
)

// BranchGroup is a team of branches executing one flow.BranchGroupFlow
// together, per spec.md §4.8. Per spec.md §4.7, the team tracks how many
// of its branches are still inside the current flow in an active-branches
// counter: every branch decrements it on exit, and whichever decrement
// reaches zero runs the group's exit barrier node on behalf of everyone —
// either fanning out to brand new downstream teams or (branch-group
// transition) handing this very team to a different inner flow without
// rendezvousing through any separate barrier primitive.
type BranchGroup struct {
	id       int
	workflow *Workflow
	size     int

	scope *storage.Scope

	bgFlow   *flow.BranchGroupFlow
	branches []*Branch

	lastStep *BarrierStep

	// active counts branches still inside the current flow. Set to size
	// whenever the team starts a flow (start, transitionTo) and decremented
	// by onBranchFinishedFlow as each branch exhausts it.
	active atomic.Int64
}

// newBranchGroup creates a branch group of size branches, executing flow
// bgFlow, whose team reports completion to lastStep.
func newBranchGroup(id, size int, w *Workflow, bgFlow *flow.BranchGroupFlow, lastStep *BarrierStep) *BranchGroup {
	g := &BranchGroup{
		id:       id,
		workflow: w,
		size:     size,
		bgFlow:   bgFlow,
		lastStep: lastStep,
	}
	g.scope = storage.New(storage.LevelBranchGroup, map[storage.Level]*storage.Scope{
		storage.LevelGlobal:   w.global,
		storage.LevelWorkflow: w.scope,
	})
	g.branches = make([]*Branch, size)
	for i := 0; i < size; i++ {
		g.branches[i] = newBranch(i, g)
	}
	bgFlow.SetBranchCount(size)
	return g
}

// Size returns the group's branch count.
func (g *BranchGroup) Size() int { return g.size }

// Flow returns the inner flow the group is currently executing.
func (g *BranchGroup) Flow() *flow.BranchGroupFlow { return g.bgFlow }

// start submits every branch's run loop to the workflow's thread pool.
func (g *BranchGroup) start(ctx context.Context) {
	g.active.Store(int64(g.size))
	first := g.bgFlow.First()
	for _, b := range g.branches {
		b := b
		g.workflow.branchStarted()
		g.workflow.pool.Execute(threading.WorkItem{Func: func(ctx context.Context) (any, error) {
			err := b.run(ctx, first)
			if err != nil {
				g.workflow.reportBranchError(err)
			}
			g.workflow.branchStopped()
			return nil, err
		}}, false)
	}
}

// onBranchFinishedFlow is called by a branch once its walk through bgFlow
// runs out of steps. It decrements the group's active-branches counter;
// whichever call drives it to zero runs the group's exit barrier node on
// behalf of the whole team.
func (g *BranchGroup) onBranchFinishedFlow(ctx context.Context, b *Branch) {
	if g.active.Add(-1) != 0 {
		return
	}
	if err := g.lastStep.execute(ctx, g); err != nil {
		g.workflow.reportBranchError(fmt.Errorf("workflow: branch group %d exit barrier failed: %w", g.id, err))
	}
}

// transitionTo hands this group's existing team straight into a different
// inner flow: the same *Branch values, same branch IDs and accumulated
// scope state and filters, just a new starting step, the new flow told the
// team size through SetBranchCount, and fresh
// goroutines drawn from the pool (the idiomatic stand-in for "without
// respawning" in a goroutine-pool execution model, where workers are
// fungible by design). nextLastStep becomes the barrier the team reports
// to once it runs out of next.
func (g *BranchGroup) transitionTo(next *flow.BranchGroupFlow, nextLastStep *BarrierStep) {
	g.bgFlow = next
	g.lastStep = nextLastStep
	next.SetBranchCount(g.size)
	first := next.First()
	g.active.Store(int64(g.size))
	for _, b := range g.branches {
		b := b
		first := first
		g.workflow.branchStarted()
		g.workflow.pool.Execute(threading.WorkItem{Func: func(ctx context.Context) (any, error) {
			err := b.run(ctx, first)
			if err != nil {
				g.workflow.reportBranchError(err)
			}
			g.workflow.branchStopped()
			return nil, err
		}}, false)
	}
}
