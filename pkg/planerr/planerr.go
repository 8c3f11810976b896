// Package planerr defines the error taxonomy shared across the planner's
// components. Only ErrInvalidAst is ever returned to a planQuery caller;
// the rest describe conditions the planner degrades around.
package planerr

import "errors"

var (
	// ErrInvalidAst means the input AST is malformed: an empty correlation,
	// a simple predicate whose left side is neither a column nor a literal,
	// an unknown condition variant, an empty table name, or a cursor whose
	// width differs from the ordering. The order of a unique key is not
	// checked. Planning aborts and this is returned to the caller.
	ErrInvalidAst = errors.New("zqlplan: invalid ast")

	// ErrCostModelFailure wraps a cost-model error for one connection. The
	// planner swallows it and scores the affected attempt as +Inf.
	ErrCostModelFailure = errors.New("zqlplan: cost model failure")

	// ErrStatsUnavailable means the reference stats provider has no
	// statistics for a table (ANALYZE never ran). The planner falls back
	// to a single baseline attempt scored from row counts alone.
	ErrStatsUnavailable = errors.New("zqlplan: stats unavailable")

	// ErrScalarSubqueryResolution means the point-lookup backing a simple
	// scalar sub-select failed. The Scalar predicate is left in place
	// unresolved; the plan graph has no join for it, so it is not planned
	// as a correlated sub-select.
	ErrScalarSubqueryResolution = errors.New("zqlplan: scalar subquery resolution failed")

	// ErrCancelled is never returned to a planQuery caller; it is used
	// internally to unwind an in-progress enumeration once the caller's
	// cancellation token trips.
	ErrCancelled = errors.New("zqlplan: cancelled")
)
