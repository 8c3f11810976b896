package plandebug

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zqlsync/planner/pkg/costmodel"
)

// Tracing is an Accumulator that emits one span per completed attempt, one
// per failed attempt, and one per connection cost evaluation, for wiring
// into a host service's existing tracing pipeline (spec.md §4.7, §6). Every
// span is started from context.Background(), so connection-cost spans are
// not children of attempt spans; they are linked only by the shared
// session, graph and attempt attributes. It never retains
// a reference into the live plan graph: every span is opened and closed
// within the call that reports it.
type Tracing struct {
	tracer trace.Tracer
}

// NewTracing returns a Tracing accumulator that starts spans on tracer.
func NewTracing(tracer trace.Tracer) *Tracing {
	return &Tracing{tracer: tracer}
}

func (t *Tracing) PlanComplete(session Session, graphKey string, ev AttemptEvent) {
	_, span := t.tracer.Start(context.Background(), "zqlplan.attempt")
	defer span.End()
	span.SetAttributes(
		attribute.String("zqlplan.session", session.ID.String()),
		attribute.String("zqlplan.graph", graphKey),
		attribute.Int("zqlplan.attempt", ev.Attempt),
		attribute.Int64("zqlplan.flip_pattern", int64(ev.FlipPattern)),
		attribute.Float64("zqlplan.total_cost", ev.TotalCost),
		attribute.Int("zqlplan.join_count", len(ev.Joins)),
	)
}

func (t *Tracing) AttemptFailed(session Session, graphKey string, ev AttemptFailureEvent) {
	_, span := t.tracer.Start(context.Background(), "zqlplan.attempt_failed")
	defer span.End()
	span.SetAttributes(
		attribute.String("zqlplan.session", session.ID.String()),
		attribute.String("zqlplan.graph", graphKey),
		attribute.Int("zqlplan.attempt", ev.Attempt),
	)
	if ev.Err != nil {
		span.RecordError(ev.Err)
	}
}

func (t *Tracing) RecordConnectionCost(session Session, graphKey string, attempt int, table string, constraint *costmodel.Constraint, estimate costmodel.Estimate, err error) {
	_, span := t.tracer.Start(context.Background(), "zqlplan.connection_cost")
	defer span.End()
	attrs := []attribute.KeyValue{
		attribute.String("zqlplan.session", session.ID.String()),
		attribute.String("zqlplan.graph", graphKey),
		attribute.Int("zqlplan.attempt", attempt),
		attribute.String("zqlplan.table", table),
		attribute.Float64("zqlplan.rows", estimate.Rows),
		attribute.Float64("zqlplan.startup_cost", estimate.StartupCost),
	}
	if constraint != nil {
		attrs = append(attrs, attribute.StringSlice("zqlplan.constraint_columns", constraint.Columns))
	}
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
	}
}
