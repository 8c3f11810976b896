// Package refstats is the reference cost-model implementation: it turns raw
// storage-engine scan statistics into the rows/startupCost/fanOut triple
// costmodel.Model promises (spec.md §4.3).
package refstats

import "github.com/zqlsync/planner/pkg/ast"

// ScanStats is what Engine reports for one planned scan, mirroring the
// plan statistics a relational storage engine exposes for a read-only
// SELECT (row estimate, index chosen, whether a sort follows).
type ScanStats struct {
	// EstimatedRows is the engine's own estimate for the first top-level
	// loop of the scan, before any correction.
	EstimatedRows float64
	// IndexUsed names the index the engine's planner chose to satisfy the
	// filter/ordering, or "" if it fell back to a full scan.
	IndexUsed string
	// HasSort is true when the engine reports a subsequent top-level
	// operation performing an ORDER BY the index did not already satisfy.
	HasSort bool
	// UnindexedEqualityColumns lists equality-filtered columns that are not
	// the leading column of any index on the table.
	UnindexedEqualityColumns []string
}

// IndexDistinctness is one index's per-prefix-length distinctness
// statistics, used to derive fan-out.
type IndexDistinctness struct {
	Name string
	// AvgRowsPerDistinct[i] is the average number of rows sharing a value
	// for the first i+1 columns of the index.
	AvgRowsPerDistinct []float64
	// Columns are the index's columns, leading column first.
	Columns []string
}

// Engine is the storage-engine seam the reference provider queries. A real
// implementation issues read-only SELECTs and inspects the engine's own
// query plan and statistics tables; BadgerEngine and FakeEngine are the two
// implementations in this module.
type Engine interface {
	// Scan reports the engine's own statistics for a scan of table under
	// filter, with the ordering order requested. constraint, when non-nil,
	// names columns the caller has already bound (an inbound constraint).
	Scan(table string, order []ast.OrderTerm, filter ast.Condition, constraint []string) (ScanStats, error)

	// NullRatio reports the fraction of rows where every column in columns
	// is NULL, for the leading columns of an index. Used to correct row
	// estimates that count NULLs despite an equality filter rejecting them.
	NullRatio(table string, columns []string) (float64, error)

	// Indexes reports distinctness statistics for every index on table.
	Indexes(table string) ([]IndexDistinctness, error)

	// ScalarLookup resolves a scalar sub-select whose inner select is fully
	// constrained by literal equalities, returning the single column value
	// of its single matching row. ok is false when zero or more than one
	// row matches.
	ScalarLookup(table string, equalities map[string]any, column string) (value any, ok bool, err error)
}
