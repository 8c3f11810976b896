package costmodel

import "github.com/zqlsync/planner/pkg/ast"

// RecordFunc receives one notification per cost-model call. Any context a
// caller wants attached (an attempt index, a debug session) is captured by
// the closure itself; Logger passes only the call's own arguments and
// result.
type RecordFunc func(table string, constraint *Constraint, estimate Estimate, err error)

// Logger wraps another Model and reports every call to Record, when set,
// before returning the underlying result unchanged. It exists so
// diagnostics (spec.md §6's "cost-logger wrapper") sit outside the cost
// model implementations themselves.
type Logger struct {
	Model  Model
	Record RecordFunc
}

// NewLogger returns a Model that forwards to model.
func NewLogger(model Model) *Logger {
	return &Logger{Model: model}
}

func (l *Logger) Estimate(table string, order []ast.OrderTerm, filter ast.Condition, constraint *Constraint) (Estimate, error) {
	estimate, err := l.Model.Estimate(table, order, filter, constraint)
	if l.Record != nil {
		l.Record(table, constraint, estimate, err)
	}
	return estimate, err
}
