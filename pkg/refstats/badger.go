package refstats

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/zqlsync/planner/pkg/ast"
)

// BadgerEngine is an Engine backed by a BadgerDB holding precomputed
// statistics snapshots (as a storage engine's own stats tables would be
// populated by ANALYZE, here loaded once by an offline job and refreshed by
// replacing the relevant keys). It does not plan live SELECTs; it is a
// fixture store a Provider can run against. cmd/zqlplan's demo uses
// FakeEngine, not BadgerEngine.
type BadgerEngine struct {
	db *badger.DB
}

// OpenBadgerEngine opens (or creates) the statistics database at path.
func OpenBadgerEngine(path string) (*BadgerEngine, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("zqlplan: open stats db: %w", err)
	}
	return &BadgerEngine{db: db}, nil
}

// Close closes the underlying database.
func (e *BadgerEngine) Close() error {
	return e.db.Close()
}

// PutScanStats stores the scan statistics fixture for table, keyed by the
// constraint columns supplied (empty for the unconstrained scan).
func (e *BadgerEngine) PutScanStats(table string, columns []string, s ScanStats) error {
	doc := "{}"
	var err error
	if doc, err = sjson.Set(doc, "estimatedRows", s.EstimatedRows); err != nil {
		return err
	}
	if doc, err = sjson.Set(doc, "indexUsed", s.IndexUsed); err != nil {
		return err
	}
	if doc, err = sjson.Set(doc, "hasSort", s.HasSort); err != nil {
		return err
	}
	if doc, err = sjson.Set(doc, "unindexedEqualityColumns", s.UnindexedEqualityColumns); err != nil {
		return err
	}
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(scanKey(table, columns), []byte(doc))
	})
}

// PutNullRatio stores the NULL-ratio fixture for (table, columns).
func (e *BadgerEngine) PutNullRatio(table string, columns []string, ratio float64) error {
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(nullRatioKey(table, columns), []byte(fmt.Sprintf("%v", ratio)))
	})
}

// PutIndexes stores the index distinctness fixtures for table.
func (e *BadgerEngine) PutIndexes(table string, indexes []IndexDistinctness) error {
	doc := "[]"
	var err error
	for i, idx := range indexes {
		base := fmt.Sprintf("%d", i)
		if doc, err = sjson.Set(doc, base+".name", idx.Name); err != nil {
			return err
		}
		if doc, err = sjson.Set(doc, base+".columns", idx.Columns); err != nil {
			return err
		}
		if doc, err = sjson.Set(doc, base+".avgRowsPerDistinct", idx.AvgRowsPerDistinct); err != nil {
			return err
		}
	}
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(indexKey(table), []byte(doc))
	})
}

func (e *BadgerEngine) Scan(table string, _ []ast.OrderTerm, _ ast.Condition, columns []string) (ScanStats, error) {
	var out ScanStats
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(scanKey(table, columns))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			r := gjson.ParseBytes(val)
			out.EstimatedRows = r.Get("estimatedRows").Float()
			out.IndexUsed = r.Get("indexUsed").String()
			out.HasSort = r.Get("hasSort").Bool()
			for _, c := range r.Get("unindexedEqualityColumns").Array() {
				out.UnindexedEqualityColumns = append(out.UnindexedEqualityColumns, c.String())
			}
			return nil
		})
	})
	if err != nil {
		return ScanStats{}, fmt.Errorf("zqlplan: scan stats for %q: %w", table, err)
	}
	return out, nil
}

func (e *BadgerEngine) NullRatio(table string, columns []string) (float64, error) {
	var ratio float64
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nullRatioKey(table, columns))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			_, err := fmt.Sscanf(string(val), "%g", &ratio)
			return err
		})
	})
	if err != nil {
		return 0, fmt.Errorf("zqlplan: null ratio for %q %v: %w", table, columns, err)
	}
	return ratio, nil
}

func (e *BadgerEngine) Indexes(table string) ([]IndexDistinctness, error) {
	var out []IndexDistinctness
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey(table))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			for _, idx := range gjson.ParseBytes(val).Array() {
				d := IndexDistinctness{Name: idx.Get("name").String()}
				for _, c := range idx.Get("columns").Array() {
					d.Columns = append(d.Columns, c.String())
				}
				for _, v := range idx.Get("avgRowsPerDistinct").Array() {
					d.AvgRowsPerDistinct = append(d.AvgRowsPerDistinct, v.Float())
				}
				out = append(out, d)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("zqlplan: indexes for %q: %w", table, err)
	}
	return out, nil
}

// ScalarLookup is not backed by statistics fixtures; BadgerEngine is used in
// integration tests that exercise the cost model, not scalar resolution.
func (e *BadgerEngine) ScalarLookup(table string, _ map[string]any, _ string) (any, bool, error) {
	return nil, false, fmt.Errorf("zqlplan: scalar lookup unsupported on fixture table %q", table)
}

func scanKey(table string, columns []string) []byte {
	return []byte("scan:" + memoKey(table, columns))
}

func nullRatioKey(table string, columns []string) []byte {
	return []byte("null:" + memoKey(table, columns))
}

func indexKey(table string) []byte {
	return []byte("idx:" + table)
}
