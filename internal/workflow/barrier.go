package workflow

import (
	"context"
	"fmt"

	"gaflow/internal/flow"
)

// BarrierKind distinguishes the four barrier node shapes from spec.md
// §4.8: the workflow's single entry and exit points, a plain barrier that
// fans out to one or more downstream branch groups with brand new teams,
// and a branch-group transition that hands the same team of branches
// straight into a different inner flow without respawning anyone.
type BarrierKind int

const (
	// KindStart is the workflow's unique entry barrier.
	KindStart BarrierKind = iota
	// KindFinish is the workflow's unique exit barrier.
	KindFinish
	// KindPlain fans out to independently-sized downstream branch groups.
	KindPlain
	// KindTransition hands an existing team straight to a new inner flow.
	KindTransition
)

// BarrierStep is a node of the workflow-level graph: the point where every
// branch of a branch group rendezvous before the workflow decides what
// happens next. It is a distinct concept from flow.Step — it lives between
// branch groups, not inside one.
type BarrierStep struct {
	id   int
	kind BarrierKind

	// outboundGroups fan out to brand-new teams (KindPlain, KindStart).
	outboundGroups []*BranchGroup
	// transitionFlow is the inner flow the current team moves into next
	// (KindTransition only).
	transitionFlow *flow.BranchGroupFlow
	// transitionLastStep is what the team reports to once it runs out of
	// transitionFlow (KindTransition only) — the barrier it would have had
	// if it had been a freshly spawned group running that flow.
	transitionLastStep *BarrierStep
}

// NewBarrierStep creates a barrier of the given kind.
func NewBarrierStep(id int, kind BarrierKind) *BarrierStep {
	return &BarrierStep{id: id, kind: kind}
}

// ID returns the barrier's identifier within its owning workflow.
func (s *BarrierStep) ID() int { return s.id }

// Kind reports the barrier's shape.
func (s *BarrierStep) Kind() BarrierKind { return s.kind }

// AddOutboundGroup registers group as one of this barrier's fan-out
// targets. Only meaningful for KindStart and KindPlain barriers.
func (s *BarrierStep) AddOutboundGroup(group *BranchGroup) error {
	if s.kind != KindStart && s.kind != KindPlain {
		return fmt.Errorf("workflow: barrier %d (kind %v) cannot fan out to branch groups", s.id, s.kind)
	}
	s.outboundGroups = append(s.outboundGroups, group)
	return nil
}

// SetTransitionFlow designates the inner flow a KindTransition barrier
// hands its team into, and the barrier that team should next report to
// once it runs out of that flow.
func (s *BarrierStep) SetTransitionFlow(f *flow.BranchGroupFlow, nextLastStep *BarrierStep) error {
	if s.kind != KindTransition {
		return fmt.Errorf("workflow: barrier %d (kind %v) is not a transition barrier", s.id, s.kind)
	}
	s.transitionFlow = f
	s.transitionLastStep = nextLastStep
	return nil
}

// execute runs on behalf of the whole team, invoked exactly once by the
// last branch to arrive at this barrier (see BranchGroup.onBranchFinishedFlow).
// It never blocks: fanning out to new teams happens by submitting their
// branches to the thread pool and returning immediately.
func (s *BarrierStep) execute(ctx context.Context, from *BranchGroup) error {
	switch s.kind {
	case KindFinish:
		from.workflow.branchGroupFinished(from)
		return nil
	case KindPlain, KindStart:
		for _, target := range s.outboundGroups {
			target := target
			from.workflow.spawnGroup(ctx, target)
		}
		from.workflow.branchGroupFinished(from)
		return nil
	case KindTransition:
		if s.transitionFlow == nil {
			return fmt.Errorf("workflow: transition barrier %d has no destination flow", s.id)
		}
		from.transitionTo(s.transitionFlow, s.transitionLastStep)
		return nil
	default:
		return fmt.Errorf("workflow: barrier %d has unknown kind %v", s.id, s.kind)
	}
}
