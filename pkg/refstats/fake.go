package refstats

import (
	"fmt"

	"github.com/zqlsync/planner/pkg/ast"
)

// FakeEngine is an in-memory Engine for tests: every table's statistics are
// supplied directly rather than derived from live storage.
type FakeEngine struct {
	Scans     map[string]ScanStats
	NullRatios map[string]float64
	IndexStats map[string][]IndexDistinctness
	Rows       map[string][]map[string]any
}

// NewFakeEngine returns an empty FakeEngine; populate its fields directly.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		Scans:      map[string]ScanStats{},
		NullRatios: map[string]float64{},
		IndexStats: map[string][]IndexDistinctness{},
		Rows:       map[string][]map[string]any{},
	}
}

func (f *FakeEngine) Scan(table string, _ []ast.OrderTerm, _ ast.Condition, _ []string) (ScanStats, error) {
	s, ok := f.Scans[table]
	if !ok {
		return ScanStats{}, fmt.Errorf("zqlplan: no fixture scan stats for table %q", table)
	}
	return s, nil
}

func (f *FakeEngine) NullRatio(table string, columns []string) (float64, error) {
	return f.NullRatios[memoKey(table, columns)], nil
}

func (f *FakeEngine) Indexes(table string) ([]IndexDistinctness, error) {
	return f.IndexStats[table], nil
}

func (f *FakeEngine) ScalarLookup(table string, equalities map[string]any, column string) (any, bool, error) {
	rows := f.Rows[table]
	var match map[string]any
	count := 0
	for _, row := range rows {
		if rowMatches(row, equalities) {
			match = row
			count++
		}
	}
	if count != 1 {
		return nil, false, nil
	}
	return match[column], true, nil
}

func rowMatches(row map[string]any, equalities map[string]any) bool {
	for k, v := range equalities {
		if row[k] != v {
			return false
		}
	}
	return true
}
