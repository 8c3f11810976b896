package costmodel

import "github.com/zqlsync/planner/pkg/ast"

// Stub is a constant-cost Model, for planner unit tests that need a
// deterministic cost landscape without a storage engine.
type Stub struct {
	// Rows is returned for every table not listed in PerTable.
	Rows        float64
	StartupCost float64
	FanOut      float64

	// PerTable overrides Rows/StartupCost/FanOut for specific tables,
	// keyed by table name.
	PerTable map[string]Estimate
}

// NewStub returns a Stub with the given default estimate for any table not
// listed in PerTable.
func NewStub(rows, startupCost, fanOut float64) *Stub {
	return &Stub{Rows: rows, StartupCost: startupCost, FanOut: fanOut, PerTable: map[string]Estimate{}}
}

func (s *Stub) Estimate(table string, order []ast.OrderTerm, filter ast.Condition, constraint *Constraint) (Estimate, error) {
	if e, ok := s.PerTable[table]; ok {
		if constraint != nil {
			e.HasFanOut = e.FanOut > 0
		}
		return e, nil
	}
	e := Estimate{Rows: s.Rows, StartupCost: s.StartupCost, FanOut: s.FanOut}
	if constraint != nil && s.FanOut > 0 {
		e.HasFanOut = true
	}
	return e, nil
}
