// Package workflow implements the outer workflow graph from spec.md §4.7-
// §4.9: branches and branch groups that execute an inner flow.BranchGroupFlow
// as a team, the barrier nodes that join and transition between branch
// groups, and the workflow lifecycle (start/pause/resume/stop).
package workflow

import (
	"context"
	"fmt"

	"gaflow/internal/flow"
	"gaflow/internal/storage"
)

// Branch is one of a branch group's parallel workers. It implements
// flow.BranchContext so the inner flow's steps can read and mutate its
// decision/filter state, and it owns the traversal loop from spec.md §4.7:
// walk the inner flow until it runs out of steps, then hand off to the
// owning group's onBranchFinishedFlow.
type Branch struct {
	id                int
	group             *BranchGroup
	scope             *storage.Scope
	lastDecision      int
	filter            *flow.Filter
	current           flow.Step
	executingLastStep bool
}

func newBranch(id int, group *BranchGroup) *Branch {
	return &Branch{
		id:    id,
		group: group,
		scope: storage.New(storage.LevelBranch, map[storage.Level]*storage.Scope{
			storage.LevelGlobal:      group.workflow.global,
			storage.LevelWorkflow:    group.workflow.scope,
			storage.LevelBranchGroup: group.scope,
		}),
	}
}

// BranchID implements flow.BranchContext.
func (b *Branch) BranchID() int { return b.id }

// LastDecision implements flow.BranchContext.
func (b *Branch) LastDecision() int { return b.lastDecision }

// SetLastDecision implements flow.BranchContext.
func (b *Branch) SetLastDecision(v int) { b.lastDecision = v }

// Filter implements flow.BranchContext.
func (b *Branch) Filter() *flow.Filter { return b.filter }

// SetFilter implements flow.BranchContext.
func (b *Branch) SetFilter(f *flow.Filter) { b.filter = f }

// Scope returns the branch's private data scope.
func (b *Branch) Scope() *storage.Scope { return b.scope }

// run drives the branch through the inner flow starting at first, checking
// for cooperative cancellation and pause at every step boundary, until the
// flow is exhausted, then reports completion to the owning group.
func (b *Branch) run(ctx context.Context, first flow.Step) error {
	b.current = first
	for b.current != nil {
		if err := b.group.workflow.stateCheck(ctx); err != nil {
			return err
		}

		step := b.current
		if step.Enter(b) {
			if err := step.Run(b); err != nil {
				return fmt.Errorf("workflow: branch %d failed at step %d: %w", b.id, step.ID(), err)
			}
			step.Exit(b)
		}

		next, err := step.GetNext(b)
		if err != nil {
			return fmt.Errorf("workflow: branch %d could not resolve next step after %d: %w", b.id, step.ID(), err)
		}
		b.current = next
	}

	b.group.onBranchFinishedFlow(ctx, b)
	return nil
}
