package planner

import "github.com/zqlsync/planner/pkg/ast"

// resolveScalars returns a copy of sel with every "simple" scalar
// sub-select (see simpleScalarSelect) folded into a literal comparison, per
// spec.md §4.5 and S5. The rewritten predicate replaces the Scalar node
// outright; no copy of the inner select is kept in the result. A lookup
// that runs but finds no unique row is rewritten to alwaysFalse.
// Resolution is idempotent: a Scalar with no resolver configured, or whose
// inner select isn't simple, or whose lookup returns an error, is left in
// place unresolved.
func (p *planner) resolveScalars(sel *ast.Select) *ast.Select {
	if sel == nil || sel.Where == nil || p.resolve == nil {
		return sel
	}
	rewritten := rewriteScalarsInCondition(p.resolve, sel.Where)
	if rewritten == sel.Where {
		return sel
	}
	out := sel.Clone()
	out.Where = rewritten
	return out
}

func rewriteScalarsInCondition(resolver ScalarResolver, c ast.Condition) ast.Condition {
	switch v := c.(type) {
	case ast.And:
		return ast.And{Conds: rewriteScalarsInConditions(resolver, v.Conds)}
	case ast.Or:
		return ast.Or{Conds: rewriteScalarsInConditions(resolver, v.Conds)}
	case ast.Scalar:
		return rewriteScalar(resolver, v)
	default:
		return c
	}
}

func rewriteScalarsInConditions(resolver ScalarResolver, cs []ast.Condition) []ast.Condition {
	out := make([]ast.Condition, len(cs))
	for i, c := range cs {
		out[i] = rewriteScalarsInCondition(resolver, c)
	}
	return out
}

// alwaysFalse is the synthetic predicate a non-matching scalar lookup
// rewrites to, per spec.md's resolution rule: a simple literal-vs-literal
// comparison that can never hold, expressible without a dedicated AST node.
var alwaysFalse = ast.Simple{Left: ast.Literal{Value: 1}, Op: ast.Eq, Right: ast.Literal{Value: 0}}

func rewriteScalar(resolver ScalarResolver, s ast.Scalar) ast.Condition {
	equalities, column, ok := simpleScalarSelect(s.Select)
	if !ok {
		return s
	}
	value, found, err := resolver.ResolveScalar(equalities, s.Select.Table, column)
	if err != nil {
		// Lookup itself failed: leave the Scalar in place. planegraph.Build
		// creates no join for it, so it is not planned as a correlated
		// sub-select and its inner select is never scored.
		return s
	}
	if !found {
		return alwaysFalse
	}
	return ast.Simple{Left: s.Left, Op: s.Op, Right: ast.Literal{Value: value}}
}

// simpleScalarSelect reports whether sel is "simple": its where-clause is a
// conjunction of literal equalities and it has no related sub-selections.
// The projected column is sel.Order[0].Column by convention, falling back
// to the sole equality column when no ordering is given.
func simpleScalarSelect(sel *ast.Select) (equalities map[string]any, column string, ok bool) {
	if sel == nil || sel.Where == nil || len(sel.Related) != 0 {
		return nil, "", false
	}
	eq := map[string]any{}
	if !collectLiteralEqualities(sel.Where, eq) {
		return nil, "", false
	}
	if len(sel.Order) > 0 {
		column = sel.Order[0].Column
	} else {
		for col := range eq {
			column = col
			break
		}
	}
	return eq, column, true
}

func collectLiteralEqualities(c ast.Condition, out map[string]any) bool {
	switch v := c.(type) {
	case ast.Simple:
		if v.Op != ast.Eq {
			return false
		}
		col, ok := v.Left.(ast.Column)
		if !ok {
			return false
		}
		lit, ok := v.Right.(ast.Literal)
		if !ok {
			return false
		}
		out[col.Name] = lit.Value
		return true
	case ast.And:
		for _, inner := range v.Conds {
			if !collectLiteralEqualities(inner, out) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
