// Package costmodel defines the pluggable interface the planner scores
// connections with, plus two reference implementations used in tests: a
// constant-cost Stub and a Logger wrapper that reports every call to a
// RecordFunc callback.
package costmodel

import "github.com/zqlsync/planner/pkg/ast"

// Estimate is the triple a Model returns for one connection.
type Estimate struct {
	// Rows is the expected output cardinality after the inbound
	// constraint and non-correlated filters are applied. Always >= 1.
	Rows float64

	// StartupCost is paid once per connection instantiation (e.g. a sort
	// tree if the requested ordering is not served by any index).
	StartupCost float64

	// FanOut is the expected child rows per combination of inbound
	// constraint values, when requested and available.
	FanOut float64

	// HasFanOut reports whether FanOut was computed. It is false when the
	// constraint was nil or no index could serve it.
	HasFanOut bool
}

// Constraint is the set of column bindings known at plan time from upstream
// joins, pinned on a connection before its cost is queried.
type Constraint struct {
	// Columns are bound, in the order an index would need to serve them.
	Columns []string
}

// Model is the cost model interface: given a table, the ordering it must
// serve, its non-correlated filter, and an optional inbound constraint,
// return a cost estimate. Correlated sub-select predicates must already be
// stripped from filter before the call; the planner accounts for their cost
// separately.
//
// An unknown table must return a sentinel high cost, never an error, so a
// malformed sub-plan cannot abort planning; genuine failures (a transient
// error reaching the storage engine) should return an error, which the
// planner swallows and scores as +Inf for that attempt.
type Model interface {
	Estimate(table string, order []ast.OrderTerm, filter ast.Condition, constraint *Constraint) (Estimate, error)
}
