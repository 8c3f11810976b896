package refstats

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/zqlsync/planner/pkg/ast"
	"github.com/zqlsync/planner/pkg/costmodel"
	"github.com/zqlsync/planner/pkg/planerr"
)

// Provider is the reference costmodel.Model: it translates a cost-model
// query into a call against Engine and massages the result per spec.md
// §4.3. NULL-ratio and fan-out lookups are memoized per (table,
// constraint-columns); StatsUpdated and SchemaUpdated invalidate the
// memoization, per the reader-writer discipline spec.md §9 recommends. The
// row estimate itself is not memoized: every Estimate call asks Engine.Scan
// afresh.
type Provider struct {
	engine Engine
	tuning costmodel.Tuning

	mu      sync.RWMutex
	fanOut  map[string]float64
	nullPct map[string]float64

	sf singleflight.Group
}

// NewProvider returns a Provider querying engine, using tuning for its
// empirical constants.
func NewProvider(engine Engine, tuning costmodel.Tuning) *Provider {
	return &Provider{
		engine:  engine,
		tuning:  tuning,
		fanOut:  map[string]float64{},
		nullPct: map[string]float64{},
	}
}

// Estimate implements costmodel.Model.
func (p *Provider) Estimate(table string, order []ast.OrderTerm, filter ast.Condition, constraint *costmodel.Constraint) (costmodel.Estimate, error) {
	var cols []string
	if constraint != nil {
		cols = constraint.Columns
	}

	stats, err := p.engine.Scan(table, order, filter, cols)
	if err != nil {
		return costmodel.Estimate{}, fmt.Errorf("%w: %v", planerr.ErrStatsUnavailable, err)
	}

	rows := stats.EstimatedRows
	if rows < 1 {
		rows = 1
	}

	// 1. NULL-ratio correction, when an index serves the inbound constraint.
	if stats.IndexUsed != "" && len(cols) > 0 {
		ratio, err := p.nullRatioMemo(table, cols)
		if err == nil {
			rows *= (1 - ratio)
		}
	}

	// 2. Unindexed-equality correction, compounded, floored at 1.
	for range stats.UnindexedEqualityColumns {
		rows /= p.tuning.UnindexedEqualityDivisor
	}
	if rows < 1 {
		rows = 1
	}

	startup := 0.0
	// 3. Sort cost.
	if stats.HasSort {
		startup += (rows * math.Log2(rows)) / p.tuning.SortCostDivisor
	}

	est := costmodel.Estimate{Rows: rows, StartupCost: startup}

	// 4. Fan-out, only meaningful when the caller supplied constraint columns.
	if len(cols) > 0 {
		if fo, err := p.fanOutMemo(table, cols); err == nil {
			est.FanOut = fo
			est.HasFanOut = true
		}
	}

	return est, nil
}

func memoKey(table string, columns []string) string {
	return table + "\x00" + strings.Join(columns, "\x00")
}

func (p *Provider) nullRatioMemo(table string, columns []string) (float64, error) {
	key := memoKey(table, columns)
	p.mu.RLock()
	v, ok := p.nullPct[key]
	p.mu.RUnlock()
	if ok {
		return v, nil
	}
	res, err, _ := p.sf.Do("null:"+key, func() (any, error) {
		return p.engine.NullRatio(table, columns)
	})
	if err != nil {
		return 0, err
	}
	ratio := res.(float64)
	p.mu.Lock()
	p.nullPct[key] = ratio
	p.mu.Unlock()
	return ratio, nil
}

// fanOutMemo returns avgRowsPerDistinct for the given constraint columns,
// preferring a compound index that covers all of them in order and falling
// back to the most selective single-column fan-out among them.
func (p *Provider) fanOutMemo(table string, columns []string) (float64, error) {
	key := memoKey(table, columns)
	p.mu.RLock()
	v, ok := p.fanOut[key]
	p.mu.RUnlock()
	if ok {
		return v, nil
	}
	res, err, _ := p.sf.Do("fanout:"+key, func() (any, error) {
		return p.computeFanOut(table, columns)
	})
	if err != nil {
		return 0, err
	}
	fo := res.(float64)
	p.mu.Lock()
	p.fanOut[key] = fo
	p.mu.Unlock()
	return fo, nil
}

func (p *Provider) computeFanOut(table string, columns []string) (float64, error) {
	indexes, err := p.engine.Indexes(table)
	if err != nil {
		return 0, err
	}
	if fo, ok := compoundFanOut(indexes, columns); ok {
		return fo, nil
	}
	if fo, ok := bestSingleColumnFanOut(indexes, columns); ok {
		return fo, nil
	}
	return 0, fmt.Errorf("zqlplan: no index covers constraint columns %v on %q", columns, table)
}

func compoundFanOut(indexes []IndexDistinctness, columns []string) (float64, bool) {
	for _, idx := range indexes {
		if len(idx.Columns) < len(columns) {
			continue
		}
		matches := true
		for i, c := range columns {
			if idx.Columns[i] != c {
				matches = false
				break
			}
		}
		if !matches {
			continue
		}
		pos := len(columns) - 1
		if pos < len(idx.AvgRowsPerDistinct) {
			return idx.AvgRowsPerDistinct[pos], true
		}
	}
	return 0, false
}

func bestSingleColumnFanOut(indexes []IndexDistinctness, columns []string) (float64, bool) {
	want := make(map[string]bool, len(columns))
	for _, c := range columns {
		want[c] = true
	}
	best := math.Inf(1)
	found := false
	for _, idx := range indexes {
		if len(idx.Columns) == 0 || !want[idx.Columns[0]] {
			continue
		}
		if len(idx.AvgRowsPerDistinct) == 0 {
			continue
		}
		if v := idx.AvgRowsPerDistinct[0]; v < best {
			best = v
			found = true
		}
	}
	return best, found
}

// StatsUpdated invalidates the NULL-ratio and fan-out memo caches (the only
// caches Provider keeps), leaving whatever caching the Engine itself
// maintains untouched.
func (p *Provider) StatsUpdated() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fanOut = map[string]float64{}
	p.nullPct = map[string]float64{}
}

// SchemaUpdated invalidates everything.
func (p *Provider) SchemaUpdated() {
	p.StatsUpdated()
}

// ResolveScalar implements planner.ScalarResolver by delegating to the
// engine's point lookup.
func (p *Provider) ResolveScalar(equalities map[string]any, table, column string) (any, bool, error) {
	value, ok, err := p.engine.ScalarLookup(table, equalities, column)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", planerr.ErrScalarSubqueryResolution, err)
	}
	return value, ok, nil
}
