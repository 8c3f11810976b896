// Package planner implements the ZQL query planner: it enumerates
// flip-pattern assignments over a query's plan graph, scores each with a
// pluggable cost model, and writes the chosen orientation back onto a
// cloned AST (spec.md §4.5).
package planner

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/zqlsync/planner/pkg/ast"
	"github.com/zqlsync/planner/pkg/costmodel"
	"github.com/zqlsync/planner/pkg/planapply"
	"github.com/zqlsync/planner/pkg/plancancel"
	"github.com/zqlsync/planner/pkg/plandebug"
	"github.com/zqlsync/planner/pkg/planegraph"
	"github.com/zqlsync/planner/pkg/planerr"
)

// ScalarResolver resolves a "simple" scalar sub-select (one whose unique key
// is fully constrained by literal equalities) at plan time. equalities maps
// the inner select's filter columns to their literal values; table and
// column name which row and column to read back. ok is false when zero or
// more than one row matches, per spec.md §4.5.
type ScalarResolver interface {
	ResolveScalar(equalities map[string]any, table, column string) (value any, ok bool, err error)
}

// Options configures one PlanQuery call. The zero value is valid: it plans
// with no cancellation, no debug accumulator, no scalar resolution, and
// costmodel.DefaultTuning.
type Options struct {
	Cancel   *plancancel.Token
	Debug    plandebug.Accumulator
	Resolver ScalarResolver
	Tuning   costmodel.Tuning
}

// PlanQuery explores the space of flip-pattern assignments for input under
// cm, and returns a new AST with every chosen flip written back onto it.
// input is unchanged. PlanQuery is a pure function of its arguments except
// for the Debug accumulator and Cancel token, which observe/interrupt but
// never affect the result of a completed call (spec.md §6).
func PlanQuery(input *ast.Select, cm costmodel.Model, opts Options) (*ast.Select, error) {
	if _, err := ast.NewSelect(input); err != nil {
		return nil, err
	}
	tuning := opts.Tuning
	if tuning == (costmodel.Tuning{}) {
		tuning = costmodel.DefaultTuning()
	}
	p := &planner{
		cm:      cm,
		cancel:  opts.Cancel,
		acc:     plandebug.OrNoop(opts.Debug),
		session: plandebug.NewSession(),
		resolve: opts.Resolver,
		tuning:  tuning,
	}
	return p.planSelect(input, "")
}

type planner struct {
	cm      costmodel.Model
	cancel  *plancancel.Token
	acc     plandebug.Accumulator
	session plandebug.Session
	resolve ScalarResolver
	tuning  costmodel.Tuning
}

func (p *planner) planSelect(sel *ast.Select, graphKey string) (*ast.Select, error) {
	resolved := p.resolveScalars(sel)

	relatedPlans := make(map[string]*ast.Select, len(resolved.Related))
	for _, r := range resolved.Related {
		childKey := subGraphKey(graphKey, r.Alias)
		plan, err := p.planSelect(r.Select, childKey)
		if err != nil {
			return nil, err
		}
		relatedPlans[r.Alias] = plan
	}

	g := planegraph.Build(resolved)
	best, err := p.planGraph(g, graphKey)
	if err != nil {
		return nil, err
	}
	g.Restore(best)

	return planapply.Apply(resolved, g, relatedPlans), nil
}

func subGraphKey(parent, alias string) string {
	if parent == "" {
		return alias
	}
	return parent + "." + alias
}

// planGraph enumerates flip patterns over g and returns the lowest-cost
// snapshot found, per spec.md §4.5 steps 2-5.
func (p *planner) planGraph(g *planegraph.Graph, graphKey string) (planegraph.Snapshot, error) {
	flippable := g.FlippableJoins()
	joinCount := len(flippable)

	g.ResetPlanningState()
	attempt := 0

	baselineCost, baselineErr := p.scoreAttempt(g, graphKey, attempt, 0, flippable)
	attempt++

	if baselineErr != nil && errors.Is(baselineErr, planerr.ErrStatsUnavailable) {
		// Stats-unavailable: fall back to a single baseline attempt scored
		// from row counts alone, per spec.md §7. The graph is already at
		// its reset (all-semi) state, which is exactly the baseline.
		return g.Snapshot(), nil
	}

	best := g.Snapshot()
	bestCost := baselineCost
	bestFlips := 0
	if baselineErr != nil {
		bestCost = math.Inf(1)
	}

	if joinCount == 0 {
		return best, nil
	}

	consider := func(pattern uint64, cost float64) {
		flips := bits.OnesCount64(pattern)
		if cost < bestCost || (cost == bestCost && flips < bestFlips) {
			bestCost = cost
			bestFlips = flips
			best = g.Snapshot()
		}
	}

	if joinCount <= p.tuning.GreedyThreshold {
		for pattern := uint64(1); pattern < uint64(1)<<uint(joinCount); pattern++ {
			if p.cancel.Cancelled() {
				break
			}
			cost, err := p.scoreAttempt(g, graphKey, attempt, pattern, flippable)
			attempt++
			if err != nil {
				continue
			}
			consider(pattern, cost)
		}
	} else {
		current := uint64(0)
		currentCost := bestCost
		for {
			if p.cancel.Cancelled() {
				break
			}
			type candidate struct {
				pattern uint64
				cost    float64
				ok      bool
			}
			var top candidate
			for i := 0; i < joinCount; i++ {
				if p.cancel.Cancelled() {
					break
				}
				trial := current ^ (uint64(1) << uint(i))
				cost, err := p.scoreAttempt(g, graphKey, attempt, trial, flippable)
				attempt++
				if err != nil {
					continue
				}
				consider(trial, cost)
				if !top.ok || cost < top.cost {
					top = candidate{pattern: trial, cost: cost, ok: true}
				}
			}
			if !top.ok || top.cost >= currentCost {
				break
			}
			current = top.pattern
			currentCost = top.cost
		}
	}

	g.Restore(best)
	return best, nil
}

func (p *planner) scoreAttempt(g *planegraph.Graph, graphKey string, attempt int, pattern uint64, flippable []*planegraph.Join) (float64, error) {
	g.ApplyFlipPattern(pattern)
	_, total, err := p.scoreConnection(g, g.Root, costmodel.Constraint{}, graphKey, attempt)
	if err != nil {
		p.acc.AttemptFailed(p.session, graphKey, plandebug.AttemptFailureEvent{Attempt: attempt, Err: err})
		return math.Inf(1), err
	}
	p.acc.PlanComplete(p.session, graphKey, plandebug.AttemptEvent{
		Attempt:     attempt,
		FlipPattern: pattern,
		TotalCost:   total,
		Joins:       joinDecisions(flippable, pattern),
	})
	return total, nil
}

func joinDecisions(flippable []*planegraph.Join, pattern uint64) []plandebug.JoinDecision {
	out := make([]plandebug.JoinDecision, len(flippable))
	for i, j := range flippable {
		out[i] = plandebug.JoinDecision{
			JoinID:  int(j.ID),
			Flipped: pattern&(1<<uint(i)) != 0,
		}
	}
	return out
}

// scoreConnection walks the plan graph rooted at id, propagating inbound
// constraints down across semi joins and up across flipped joins, per
// spec.md §4.5 steps 3-4. It returns the connection's own cost estimate
// (for the caller's scaling) and the total cost of its entire subtree.
func (p *planner) scoreConnection(g *planegraph.Graph, id planegraph.ConnID, inbound costmodel.Constraint, graphKey string, attempt int) (costmodel.Estimate, float64, error) {
	if p.cancel.Cancelled() {
		return costmodel.Estimate{}, 0, planerr.ErrCancelled
	}

	conn := g.Connections[id]
	children := g.JoinsFrom(id)

	var flippedCols []string
	var flippedTotals []float64
	var flippedFactors []float64
	for _, j := range children {
		if j.Type != planegraph.Flipped {
			continue
		}
		childEst, childTotal, err := p.scoreConnection(g, j.Child, costmodel.Constraint{}, graphKey, attempt)
		if err != nil {
			return costmodel.Estimate{}, 0, err
		}
		// The child's fan-out toward the parent's unique key: how many child
		// rows share one value of the correlation's child fields.
		fanOut := p.correlationFanOut(g, j.Child, j.Correlation, graphKey, attempt)
		flippedTotals = append(flippedTotals, childTotal)
		flippedFactors = append(flippedFactors, math.Max(childEst.Rows, 1)*fanOut)
		flippedCols = append(flippedCols, planegraph.ParentFields(j.Correlation)...)
	}

	effective := inbound
	if len(flippedCols) > 0 {
		effective = costmodel.Constraint{Columns: append(append([]string(nil), inbound.Columns...), flippedCols...)}
	}

	est, err := p.evaluate(conn, effective, graphKey, attempt)
	if err != nil {
		return costmodel.Estimate{}, 0, err
	}

	own := est.Rows + est.StartupCost
	for _, f := range flippedFactors {
		own *= math.Max(f, 1)
	}

	total := own
	for _, t := range flippedTotals {
		total += t
	}

	for _, j := range children {
		if j.Type != planegraph.Semi {
			continue
		}
		childConstraint := costmodel.Constraint{Columns: planegraph.ChildFields(j.Correlation)}
		childEst, childTotal, err := p.scoreConnection(g, j.Child, childConstraint, graphKey, attempt)
		if err != nil {
			return costmodel.Estimate{}, 0, err
		}
		// The child's inbound fan-out: rows returned per probe, beyond the
		// per-probe subtree cost already captured in childTotal.
		fanOut := 1.0
		if childEst.HasFanOut && childEst.FanOut > 0 {
			fanOut = childEst.FanOut
		}
		total += childTotal * fanOut * math.Max(est.Rows, 1)
	}

	return est, total, nil
}

// correlationFanOut reports the child connection's fan-out under the
// correlation's child-side columns: how many child rows share one value of
// those columns, toward the parent's unique key (spec.md §4.5 step 4). It is
// best-effort — an unavailable or absent fan-out estimate defaults to 1, the
// neutral factor, rather than failing the attempt.
func (p *planner) correlationFanOut(g *planegraph.Graph, childID planegraph.ConnID, corr ast.Correlation, graphKey string, attempt int) float64 {
	conn := g.Connections[childID]
	constraint := costmodel.Constraint{Columns: planegraph.ChildFields(corr)}
	est, err := p.evaluate(conn, constraint, graphKey, attempt)
	if err != nil || !est.HasFanOut || est.FanOut <= 0 {
		return 1.0
	}
	return est.FanOut
}

func (p *planner) evaluate(conn *planegraph.Connection, constraint costmodel.Constraint, graphKey string, attempt int) (costmodel.Estimate, error) {
	var cptr *costmodel.Constraint
	if len(constraint.Columns) > 0 {
		cptr = &constraint
	}
	est, err := p.cm.Estimate(conn.Table, conn.Order, conn.Filter, cptr)
	p.acc.RecordConnectionCost(p.session, graphKey, attempt, conn.Table, cptr, est, err)
	if err != nil {
		if errors.Is(err, planerr.ErrStatsUnavailable) {
			return costmodel.Estimate{}, err
		}
		return costmodel.Estimate{}, fmt.Errorf("%w: %v", planerr.ErrCostModelFailure, err)
	}
	if est.Rows < 1 {
		est.Rows = 1
	}
	return est, nil
}
