// Package tracing replaces the teacher's hand-rolled ExecutionTrace buffer
// with OpenTelemetry spans: one span per branch group, step and barrier
// rendezvous, so execution traces flow into whatever OTel collector the
// deployment already wires up instead of living only in-process.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OTel trace.Tracer scoped to the engine's instrumentation
// name, exposing the handful of span shapes the workflow runtime needs.
type Tracer struct {
	tracer trace.Tracer
}

// New creates a Tracer. If provider is nil, the globally configured OTel
// provider is used (itself a no-op until the host process installs one).
func New(provider trace.TracerProvider) *Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Tracer{tracer: provider.Tracer("gaflow/workflow")}
}

// StepSpan starts a span for one step execution within a branch.
func (t *Tracer) StepSpan(ctx context.Context, branchID, stepID int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "step",
		trace.WithAttributes(
			attribute.Int("gaflow.branch_id", branchID),
			attribute.Int("gaflow.step_id", stepID),
		),
	)
}

// BarrierSpan starts a span covering one branch group's rendezvous at an
// exit barrier.
func (t *Tracer) BarrierSpan(ctx context.Context, groupID, barrierID int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "barrier",
		trace.WithAttributes(
			attribute.Int("gaflow.branch_group_id", groupID),
			attribute.Int("gaflow.barrier_id", barrierID),
		),
	)
}

// BranchGroupSpan starts a span covering one branch group's full lifetime,
// from team spawn to its last branch reporting in.
func (t *Tracer) BranchGroupSpan(ctx context.Context, groupID, size int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "branch_group",
		trace.WithAttributes(
			attribute.Int("gaflow.branch_group_id", groupID),
			attribute.Int("gaflow.branch_count", size),
		),
	)
}
