package plandebug

import (
	"sync"

	"github.com/zqlsync/planner/pkg/costmodel"
)

// ConnectionCostRecord is one stored RecordConnectionCost call, with the
// scope it was recorded under.
type ConnectionCostRecord struct {
	Session    Session
	GraphKey   string
	Attempt    int
	Table      string
	Constraint *costmodel.Constraint
	Estimate   costmodel.Estimate
	Err        error
}

// AttemptRecord is a stored AttemptEvent, with the scope it was recorded
// under.
type AttemptRecord struct {
	Session  Session
	GraphKey string
	AttemptEvent
}

// AttemptFailureRecord is a stored AttemptFailureEvent, with the scope it
// was recorded under.
type AttemptFailureRecord struct {
	Session  Session
	GraphKey string
	AttemptFailureEvent
}

// Memory is an in-memory Accumulator that simply appends every event it
// receives, for validation tools to read afterwards (spec.md §4.7).
type Memory struct {
	mu        sync.Mutex
	attempts  []AttemptRecord
	failures  []AttemptFailureRecord
	conns     []ConnectionCostRecord
}

// NewMemory returns an empty Memory accumulator.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) PlanComplete(session Session, graphKey string, ev AttemptEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, AttemptRecord{Session: session, GraphKey: graphKey, AttemptEvent: ev})
}

func (m *Memory) AttemptFailed(session Session, graphKey string, ev AttemptFailureEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, AttemptFailureRecord{Session: session, GraphKey: graphKey, AttemptFailureEvent: ev})
}

func (m *Memory) RecordConnectionCost(session Session, graphKey string, attempt int, table string, constraint *costmodel.Constraint, estimate costmodel.Estimate, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns = append(m.conns, ConnectionCostRecord{
		Session: session, GraphKey: graphKey, Attempt: attempt,
		Table: table, Constraint: constraint, Estimate: estimate, Err: err,
	})
}

// Attempts returns a copy of the attempt-complete events recorded so far;
// the records are kept.
func (m *Memory) Attempts() []AttemptRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AttemptRecord(nil), m.attempts...)
}

// Failures returns a copy of the attempt-failure events recorded so far;
// the records are kept.
func (m *Memory) Failures() []AttemptFailureRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AttemptFailureRecord(nil), m.failures...)
}

// ConnectionCosts returns a copy of the per-connection cost evaluations
// recorded so far; the records are kept.
func (m *Memory) ConnectionCosts() []ConnectionCostRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ConnectionCostRecord(nil), m.conns...)
}
