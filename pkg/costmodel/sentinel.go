package costmodel

import "github.com/zqlsync/planner/pkg/ast"

// WithUnknownTableSentinel wraps model so that an unrecognized table name
// returns tuning.UnknownTableCost as a rows estimate instead of propagating
// an error, satisfying the cost model contract of spec.md §4.2: "unknown
// table returns a sentinel high cost (not an exception) so that malformed
// sub-plans do not abort planning." known reports whether table exists;
// tables it accepts are passed straight through to model.
func WithUnknownTableSentinel(model Model, known func(table string) bool, tuning Tuning) Model {
	return &sentinelModel{model: model, known: known, tuning: tuning}
}

type sentinelModel struct {
	model  Model
	known  func(table string) bool
	tuning Tuning
}

func (s *sentinelModel) Estimate(table string, order []ast.OrderTerm, filter ast.Condition, constraint *Constraint) (Estimate, error) {
	if s.known != nil && !s.known(table) {
		return Estimate{Rows: s.tuning.UnknownTableCost}, nil
	}
	return s.model.Estimate(table, order, filter, constraint)
}
