package workflow

import "fmt"

// ConnectionKind distinguishes the two workflow-level edge shapes: an
// ordinary branch-group edge, which spawns a brand new team once the
// upstream barrier fires, and a branch-group transition, which instead
// hands the upstream team straight into a new inner flow.
type ConnectionKind int

const (
	// KindBranchGroupEdge joins a barrier to the branch group it spawns.
	KindBranchGroupEdge ConnectionKind = iota
	// KindBranchGroupTransition joins a transition barrier to the branch
	// group whose team it takes over.
	KindBranchGroupTransition
)

// Connect wires from (a barrier) to group. For KindBranchGroupEdge, group
// is registered as one of from's fan-out targets, spawning a brand new
// team once from fires. For KindBranchGroupTransition, group is the very
// team from hands off to a new inner flow in place — group must already
// have from registered as its own exit barrier, and from must already have
// a destination flow set via SetTransitionFlow.
func Connect(kind ConnectionKind, from *BarrierStep, group *BranchGroup) error {
	switch kind {
	case KindBranchGroupEdge:
		return from.AddOutboundGroup(group)
	case KindBranchGroupTransition:
		if from.kind != KindTransition {
			return fmt.Errorf("workflow: barrier %d is not a transition barrier", from.ID())
		}
		if from.transitionFlow == nil {
			return fmt.Errorf("workflow: barrier %d has no destination flow set", from.ID())
		}
		if group.lastStep != from {
			return fmt.Errorf("workflow: branch group %d does not report to transition barrier %d", group.id, from.ID())
		}
		return nil
	default:
		return fmt.Errorf("workflow: unknown connection kind %v", kind)
	}
}
