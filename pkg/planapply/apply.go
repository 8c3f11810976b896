// Package planapply writes a chosen plan back onto a cloned AST: every
// correlated sub-select whose join was oriented flipped gets Flip set true
// (spec.md §4.6).
package planapply

import (
	"github.com/zqlsync/planner/pkg/ast"
	"github.com/zqlsync/planner/pkg/planegraph"
)

// Apply walks a clone of sel, setting Flip on every Correlated node whose
// join in g is Flipped, and splices in relatedPlans (already independently
// planned) for each of sel's related sub-selections by alias. It is a pure
// function of its arguments: calling it twice with the same g state and
// relatedPlans yields structurally equal output (spec.md §4.6's invariant).
//
// g must be the exact Graph planegraph.Build produced for sel (or a
// structural clone of sel): Apply walks the where-tree in the same order
// Build did and consumes g's joins from that same discovery order, rather
// than re-matching joins by shape.
func Apply(sel *ast.Select, g *planegraph.Graph, relatedPlans map[string]*ast.Select) *ast.Select {
	out := sel.Clone()
	cursor := 0
	out.Where = applyCondition(out.Where, g, &cursor)
	for i, r := range out.Related {
		if plan, ok := relatedPlans[r.Alias]; ok {
			out.Related[i].Select = plan
		}
	}
	return out
}

func applyCondition(c ast.Condition, g *planegraph.Graph, cursor *int) ast.Condition {
	switch v := c.(type) {
	case ast.And:
		for i, inner := range v.Conds {
			v.Conds[i] = applyCondition(inner, g, cursor)
		}
		return v
	case ast.Or:
		for i, inner := range v.Conds {
			v.Conds[i] = applyCondition(inner, g, cursor)
		}
		return v
	case ast.Correlated:
		v.Select.Where = applyCondition(v.Select.Where, g, cursor)
		if *cursor < g.JoinCount() {
			join := g.JoinAt(*cursor)
			*cursor++
			v.Flip = join.Type == planegraph.Flipped
		}
		return v
	default:
		return c
	}
}
