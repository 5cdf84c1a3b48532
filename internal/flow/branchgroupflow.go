package flow

import "fmt"

// BranchGroupFlow is the arena owning one branch group's inner DAG: every
// step and connection reachable from its first step, per spec.md §4.7. A
// step is admitted at most once into the same flow; membership in other
// flows is not tracked.
type BranchGroupFlow struct {
	first       Step
	steps       map[Step]struct{}
	connections []*Connection
	branchCount int
}

// NewBranchGroupFlow creates an empty flow. First is set with SetFirst (or
// implicitly, by the first call to AddStep) once the entry step is known.
func NewBranchGroupFlow() *BranchGroupFlow {
	return &BranchGroupFlow{steps: make(map[Step]struct{})}
}

// First returns the flow's entry step, or nil if none has been set.
func (g *BranchGroupFlow) First() Step { return g.first }

// SetFirst designates step as the flow's entry point. step must already
// belong to this flow.
func (g *BranchGroupFlow) SetFirst(step Step) error {
	if _, ok := g.steps[step]; !ok {
		return fmt.Errorf("flow: step %d is not a member of this flow", step.ID())
	}
	g.first = step
	return nil
}

// AddStep admits step into the flow's arena. A step already in this flow
// is rejected; whether it belongs to another flow is not checked. The
// first step added becomes the flow's entry point by default.
func (g *BranchGroupFlow) AddStep(step Step) error {
	if _, ok := g.steps[step]; ok {
		return fmt.Errorf("flow: step %d already belongs to this flow", step.ID())
	}
	g.steps[step] = struct{}{}
	if g.first == nil {
		g.first = step
	}
	step.FlowUpdated(g.branchCount)
	return nil
}

// Contains reports whether step belongs to this flow.
func (g *BranchGroupFlow) Contains(step Step) bool {
	_, ok := g.steps[step]
	return ok
}

// Connect wires from -> to under connection id id. Both endpoints must
// already belong to this flow; the check happens before any mutation, so a
// rejected connect attempt leaves both steps untouched.
func (g *BranchGroupFlow) Connect(id int, from, to Step) (*Connection, error) {
	if !g.Contains(from) {
		return nil, fmt.Errorf("flow: source step %d is not a member of this flow", from.ID())
	}
	if !g.Contains(to) {
		return nil, fmt.Errorf("flow: destination step %d is not a member of this flow", to.ID())
	}
	conn, err := Connect(id, from, to)
	if err != nil {
		return nil, err
	}
	g.connections = append(g.connections, conn)
	return conn, nil
}

// Disconnect removes conn from the flow and detaches both its endpoints.
func (g *BranchGroupFlow) Disconnect(conn *Connection) {
	for i, existing := range g.connections {
		if existing == conn {
			g.connections = append(g.connections[:i], g.connections[i+1:]...)
			break
		}
	}
	Disconnect(conn)
}

// Connections returns every connection currently in the flow.
func (g *BranchGroupFlow) Connections() []*Connection {
	return g.connections
}

// SetBranchCount notifies every step in the flow, through FlowUpdated,
// that the owning branch group's branch count changed.
func (g *BranchGroupFlow) SetBranchCount(branchCount int) {
	g.branchCount = branchCount
	for step := range g.steps {
		step.FlowUpdated(branchCount)
	}
}
