// Package builder provides a fluent API for assembling a branch-group flow,
// generalizing the teacher's pkg/workflow DefinitionBuilder/NodeDefBuilder
// chain-of-setters style to flow.Step construction, plus a YAML loader for
// declarative flow definitions whose decision steps are expr-lang
// expressions rather than Go closures.
package builder

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"gaflow/internal/flow"
)

// FlowBuilder accumulates steps and connections into a flow.BranchGroupFlow.
type FlowBuilder struct {
	flow  *flow.BranchGroupFlow
	steps map[int]flow.Step
	err   error
}

// NewFlowBuilder creates an empty FlowBuilder.
func NewFlowBuilder() *FlowBuilder {
	return &FlowBuilder{flow: flow.NewBranchGroupFlow(), steps: make(map[int]flow.Step)}
}

// AddWork adds a plain work step running fn.
func (b *FlowBuilder) AddWork(id int, fn flow.WorkFunc) *FlowBuilder {
	return b.add(id, flow.NewWorkStep(id, fn))
}

// AddDecision adds a decision step whose outgoing connection ID is
// computed by evaluating exprSrc against the branch's ID and last
// decision.
func (b *FlowBuilder) AddDecision(id int, exprSrc string) *FlowBuilder {
	fn, err := compileDecision(exprSrc)
	if err != nil {
		b.setErr(err)
		return b
	}
	return b.add(id, flow.NewDecisionStep(id, fn))
}

// AddBinaryDecision adds a binary decision step evaluating exprSrc as a
// boolean expression, routed to connection 1 (true) or 0 (false).
func (b *FlowBuilder) AddBinaryDecision(id int, exprSrc string) *FlowBuilder {
	program, err := expr.Compile(exprSrc, expr.Env(decisionEnv{}))
	if err != nil {
		b.setErr(fmt.Errorf("builder: compiling decision %d: %w", id, err))
		return b
	}
	fn := func(ctx flow.BranchContext) (int, error) {
		out, err := expr.Run(program, decisionEnv{BranchID: ctx.BranchID(), LastDecision: ctx.LastDecision()})
		if err != nil {
			return 0, err
		}
		if truth, ok := out.(bool); ok {
			if truth {
				return 1, nil
			}
			return 0, nil
		}
		return 0, fmt.Errorf("builder: binary decision %d expression did not return bool", id)
	}
	return b.add(id, flow.NewBinaryDecisionStep(id, fn))
}

// AddFiltered adds a filtered step running fn, rendezvousing allowed
// branches on Exit when syncExit is true.
func (b *FlowBuilder) AddFiltered(id int, fn flow.WorkFunc, syncExit bool) *FlowBuilder {
	return b.add(id, flow.NewFilteredStep(id, fn, syncExit))
}

func (b *FlowBuilder) add(id int, step flow.Step) *FlowBuilder {
	if b.err != nil {
		return b
	}
	if err := b.flow.AddStep(step); err != nil {
		b.setErr(err)
		return b
	}
	b.steps[id] = step
	return b
}

// Connect wires fromID -> toID under connection id connID.
func (b *FlowBuilder) Connect(connID, fromID, toID int) *FlowBuilder {
	if b.err != nil {
		return b
	}
	from, ok := b.steps[fromID]
	if !ok {
		b.setErr(fmt.Errorf("builder: unknown step id %d", fromID))
		return b
	}
	to, ok := b.steps[toID]
	if !ok {
		b.setErr(fmt.Errorf("builder: unknown step id %d", toID))
		return b
	}
	if _, err := b.flow.Connect(connID, from, to); err != nil {
		b.setErr(err)
	}
	return b
}

// First designates stepID as the flow's entry point.
func (b *FlowBuilder) First(stepID int) *FlowBuilder {
	if b.err != nil {
		return b
	}
	step, ok := b.steps[stepID]
	if !ok {
		b.setErr(fmt.Errorf("builder: unknown step id %d", stepID))
		return b
	}
	b.setErr(b.flow.SetFirst(step))
	return b
}

func (b *FlowBuilder) setErr(err error) {
	if err != nil && b.err == nil {
		b.err = err
	}
}

// Build returns the assembled flow, or the first error encountered while
// building it.
func (b *FlowBuilder) Build() (*flow.BranchGroupFlow, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.flow, nil
}

// decisionEnv is the expr-lang evaluation environment exposed to decision
// expressions.
type decisionEnv struct {
	BranchID     int
	LastDecision int
}

func compileDecision(exprSrc string) (flow.WorkFunc, error) {
	program, err := expr.Compile(exprSrc, expr.Env(decisionEnv{}), expr.AsInt())
	if err != nil {
		return nil, fmt.Errorf("builder: compiling decision expression: %w", err)
	}
	return decisionRunner(program), nil
}

func decisionRunner(program *vm.Program) flow.WorkFunc {
	return func(ctx flow.BranchContext) (int, error) {
		out, err := expr.Run(program, decisionEnv{BranchID: ctx.BranchID(), LastDecision: ctx.LastDecision()})
		if err != nil {
			return 0, err
		}
		n, ok := out.(int)
		if !ok {
			return 0, fmt.Errorf("builder: decision expression did not return int")
		}
		return n, nil
	}
}
