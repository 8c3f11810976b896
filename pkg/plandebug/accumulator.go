// Package plandebug is the planner's optional observer: it records one
// event per completed attempt, one per connection cost evaluation, and one
// per attempt failure, for validation tools that compute rank correlations
// against actual execution metrics (spec.md §4.7, §8).
package plandebug

import (
	"github.com/google/uuid"
	"github.com/zqlsync/planner/pkg/costmodel"
)

// Session identifies one planQuery call, so concurrent calls feeding the
// same Accumulator produce distinguishable trace streams (spec.md §5).
type Session struct {
	ID uuid.UUID
}

// NewSession returns a fresh session identifier.
func NewSession() Session {
	return Session{ID: uuid.New()}
}

// JoinDecision is one join's orientation in a completed attempt.
type JoinDecision struct {
	JoinID  int
	Flipped bool
}

// AttemptEvent is emitted once per completed (scored) attempt.
type AttemptEvent struct {
	Attempt     int
	FlipPattern uint64
	TotalCost   float64
	Joins       []JoinDecision
}

// AttemptFailureEvent is emitted when an attempt could not be scored: the
// first failed cost-model call (or a cancellation) aborts the attempt.
type AttemptFailureEvent struct {
	Attempt int
	Err     error
}

// Accumulator receives planner events, scoped to a planning Session and to
// the graph key of the sub-plan being planned: "" for the root select, the
// related alias for a sub-plan, and dot-joined aliases ("a.b") for nested
// sub-plans. All
// methods are optional; Noop implements all of them as no-ops, and the
// planner substitutes Noop{} whenever the caller passes a nil Accumulator.
//
// Implementations must not retain references into the live plan graph:
// event payloads are stable snapshots.
type Accumulator interface {
	PlanComplete(session Session, graphKey string, ev AttemptEvent)
	AttemptFailed(session Session, graphKey string, ev AttemptFailureEvent)
	RecordConnectionCost(session Session, graphKey string, attempt int, table string, constraint *costmodel.Constraint, estimate costmodel.Estimate, err error)
}

// Noop implements Accumulator with no-ops.
type Noop struct{}

func (Noop) PlanComplete(Session, string, AttemptEvent)         {}
func (Noop) AttemptFailed(Session, string, AttemptFailureEvent) {}
func (Noop) RecordConnectionCost(Session, string, int, string, *costmodel.Constraint, costmodel.Estimate, error) {
}

// OrNoop returns a, or Noop{} if a is nil, so planner code never needs a nil
// check before calling an Accumulator method.
func OrNoop(a Accumulator) Accumulator {
	if a == nil {
		return Noop{}
	}
	return a
}
