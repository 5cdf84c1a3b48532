package builder

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"gaflow/internal/flow"
)

// FlowDefinition is the YAML-serializable shape of a branch-group flow:
// every step by kind and expression (for decision kinds), and the
// connections joining them.
type FlowDefinition struct {
	First       int              `yaml:"first"`
	Steps       []StepDef        `yaml:"steps"`
	Connections []ConnectionDef  `yaml:"connections"`
}

// StepDef describes one step. Kind is one of "work", "decision",
// "binary_decision", "filtered". Expr is required for the decision kinds.
type StepDef struct {
	ID       int    `yaml:"id"`
	Kind     string `yaml:"kind"`
	Expr     string `yaml:"expr,omitempty"`
	SyncExit bool   `yaml:"sync_exit,omitempty"`
}

// ConnectionDef describes one edge.
type ConnectionDef struct {
	ID   int `yaml:"id"`
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// ParseFlowDefinition unmarshals a YAML document into a FlowDefinition.
func ParseFlowDefinition(data []byte) (*FlowDefinition, error) {
	var def FlowDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("builder: parsing flow definition: %w", err)
	}
	return &def, nil
}

// Build assembles def into a flow.BranchGroupFlow. Work steps declared
// through YAML carry no executable body (fn is nil, a documented no-op);
// callers wanting real work steps should build those programmatically with
// FlowBuilder.AddWork and reserve YAML definitions for the decision
// skeleton of a flow.
func (def *FlowDefinition) Build() (*flow.BranchGroupFlow, error) {
	b := NewFlowBuilder()
	for _, s := range def.Steps {
		switch s.Kind {
		case "work":
			b.AddWork(s.ID, nil)
		case "decision":
			b.AddDecision(s.ID, s.Expr)
		case "binary_decision":
			b.AddBinaryDecision(s.ID, s.Expr)
		case "filtered":
			b.AddFiltered(s.ID, nil, s.SyncExit)
		default:
			return nil, fmt.Errorf("builder: unknown step kind %q for step %d", s.Kind, s.ID)
		}
	}
	for _, c := range def.Connections {
		b.Connect(c.ID, c.From, c.To)
	}
	if def.First != 0 {
		b.First(def.First)
	}
	return b.Build()
}
