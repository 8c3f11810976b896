// Package planegraph builds the per-query plan graph the planner enumerates
// over: one connection per select reachable through correlated sub-selects,
// joined by the correlations between them. Related sub-selections start a
// new, independent plan graph and are not traversed here (spec.md §3, §4.4).
package planegraph

import "github.com/zqlsync/planner/pkg/ast"

// ConnID identifies one connection (one select) within a Graph.
type ConnID int

// JoinID identifies one join within a Graph. It is stable across planning
// attempts on the same Graph and doubles as the plan-id spec.md §3 uses for
// AST-writeback.
type JoinID int

// JoinType is a join's current orientation.
type JoinType int

const (
	// Semi drives from the parent: for each parent row, the child is probed
	// using the correlation's child-side fields.
	Semi JoinType = iota
	// Flipped drives from the child: the child is scanned directly and the
	// parent is probed using the correlation's parent-side fields.
	Flipped
)

// Path locates the Correlated node that produced a Join within its select's
// Where tree, as a sequence of child indices through nested And/Or nodes.
type Path []int

// Constraint is the set of columns known to be bound when a connection is
// evaluated, carried over from planegraph.Connection.Inbound.
type Constraint struct {
	Columns []string
}

// Connection is one select in the plan graph.
type Connection struct {
	ID     ConnID
	Table  string
	Filter ast.Condition // non-correlated portion of the select's Where
	Order  []ast.OrderTerm

	// Inbound is cleared by ResetPlanningState. The planner does not write
	// it: its scoreConnection walk passes inbound constraints as arguments.
	Inbound Constraint
}

// Join is one correlated sub-select edge in the plan graph.
type Join struct {
	ID          JoinID
	Parent      ConnID
	Child       ConnID
	Correlation ast.Correlation
	Type        JoinType
	Flippable   bool
	Path        Path
}

// Graph is one query's plan graph: a tree of connections rooted at Root,
// joined by correlated sub-selects. It exists only for the duration of
// planning; ResetPlanningState and Restore mutate it in place between and
// during enumeration attempts.
type Graph struct {
	Root        ConnID
	Connections map[ConnID]*Connection
	Joins       map[JoinID]*Join

	byParent map[ConnID][]JoinID
	order    []JoinID // join discovery order, for a deterministic flip-bit assignment
}

// Build walks sel and every correlated sub-select reachable from it,
// producing one Graph. It does not descend into sel.Related: each related
// sub-selection is planned independently by the caller.
func Build(sel *ast.Select) *Graph {
	g := &Graph{
		Connections: map[ConnID]*Connection{},
		Joins:       map[JoinID]*Join{},
		byParent:    map[ConnID][]JoinID{},
	}
	var nextConn ConnID
	var nextJoin JoinID

	var walkSelect func(s *ast.Select) ConnID
	walkSelect = func(s *ast.Select) ConnID {
		id := nextConn
		nextConn++
		g.Connections[id] = &Connection{
			ID:     id,
			Table:  s.Table,
			Filter: localFilter(s.Where),
			Order:  s.Order,
		}
		if s.Where != nil {
			walkWhere(id, s.Where, nil, true)
		}
		return id
	}

	var walkWhere func(parent ConnID, cond ast.Condition, path Path, flippableCtx bool)
	walkWhere = func(parent ConnID, cond ast.Condition, path Path, flippableCtx bool) {
		switch v := cond.(type) {
		case ast.And:
			for i, inner := range v.Conds {
				walkWhere(parent, inner, appendPath(path, i), flippableCtx)
			}
		case ast.Or:
			// A correlated branch is flippable only when every sibling
			// branch is also a correlated sub-select (spec.md S3).
			allCorrelated := true
			for _, inner := range v.Conds {
				if _, ok := inner.(ast.Correlated); !ok {
					allCorrelated = false
					break
				}
			}
			for i, inner := range v.Conds {
				walkWhere(parent, inner, appendPath(path, i), flippableCtx && allCorrelated)
			}
		case ast.Correlated:
			child := walkSelect(v.Select)
			id := nextJoin
			nextJoin++
			j := &Join{
				ID:          id,
				Parent:      parent,
				Child:       child,
				Correlation: v.Correlation,
				Type:        Semi,
				Flippable:   flippableCtx,
				Path:        append(Path(nil), path...),
			}
			g.Joins[id] = j
			g.byParent[parent] = append(g.byParent[parent], id)
			g.order = append(g.order, id)
		}
	}

	g.Root = walkSelect(sel)
	return g
}

func appendPath(p Path, i int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// localFilter extracts the non-correlated, non-scalar portion of c: the
// conjunction of simple predicates a connection's own cost estimate should
// be evaluated against. Correlated and scalar sub-selects are dropped (they
// are represented as joins, or resolved/left opaque, elsewhere); a
// disjunction that mixes a correlated branch with anything else is dropped
// wholesale, since it isn't separable into a connection-local filter without
// misrepresenting the join it also encodes.
func localFilter(c ast.Condition) ast.Condition {
	switch v := c.(type) {
	case nil:
		return nil
	case ast.Simple:
		return v
	case ast.And:
		var kept []ast.Condition
		for _, inner := range v.Conds {
			if isCorrelatedOrScalar(inner) {
				continue
			}
			if f := localFilter(inner); f != nil {
				kept = append(kept, f)
			}
		}
		switch len(kept) {
		case 0:
			return nil
		case 1:
			return kept[0]
		default:
			return ast.And{Conds: kept}
		}
	case ast.Or:
		for _, inner := range v.Conds {
			if isCorrelatedOrScalar(inner) {
				return nil
			}
		}
		return v
	case ast.Correlated, ast.Scalar:
		return nil
	default:
		return nil
	}
}

func isCorrelatedOrScalar(c ast.Condition) bool {
	switch c.(type) {
	case ast.Correlated, ast.Scalar:
		return true
	default:
		return false
	}
}

// JoinCount returns the number of joins in the graph.
func (g *Graph) JoinCount() int { return len(g.order) }

// JoinAt returns the i-th join in discovery order — the same order
// planapply.Apply must walk the AST in to recover each join's AST node.
func (g *Graph) JoinAt(i int) *Join { return g.Joins[g.order[i]] }

// JoinsFrom returns the joins whose parent is id, in discovery order.
func (g *Graph) JoinsFrom(id ConnID) []*Join {
	ids := g.byParent[id]
	out := make([]*Join, len(ids))
	for i, jid := range ids {
		out[i] = g.Joins[jid]
	}
	return out
}

// FlippableJoins returns every flippable join, in discovery order. Its
// index assigns each join a bit position in a flip-pattern bitmask.
func (g *Graph) FlippableJoins() []*Join {
	var out []*Join
	for _, jid := range g.order {
		if j := g.Joins[jid]; j.Flippable {
			out = append(out, j)
		}
	}
	return out
}

// ApplyFlipPattern sets every flippable join's Type from bit i of pattern,
// where i is the join's index in FlippableJoins. Non-flippable joins are
// left at Semi.
func (g *Graph) ApplyFlipPattern(pattern uint64) {
	for i, j := range g.FlippableJoins() {
		if pattern&(1<<uint(i)) != 0 {
			j.Type = Flipped
		} else {
			j.Type = Semi
		}
	}
}

// ResetPlanningState sets every join back to Semi and clears every
// connection's inbound constraint, for a fresh enumeration pass.
func (g *Graph) ResetPlanningState() {
	for _, j := range g.Joins {
		j.Type = Semi
	}
	for _, c := range g.Connections {
		c.Inbound = Constraint{}
	}
}

// Snapshot captures every join's current orientation.
type Snapshot struct {
	JoinTypes map[JoinID]JoinType
}

// Snapshot returns the graph's current join orientations.
func (g *Graph) Snapshot() Snapshot {
	s := Snapshot{JoinTypes: make(map[JoinID]JoinType, len(g.Joins))}
	for id, j := range g.Joins {
		s.JoinTypes[id] = j.Type
	}
	return s
}

// Restore sets every join's orientation from s.
func (g *Graph) Restore(s Snapshot) {
	for id, t := range s.JoinTypes {
		if j, ok := g.Joins[id]; ok {
			j.Type = t
		}
	}
}

// ParentFields returns the correlation's parent-side column names, in
// field-pair order.
func ParentFields(c ast.Correlation) []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Parent
	}
	return out
}

// ChildFields returns the correlation's child-side column names, in
// field-pair order.
func ChildFields(c ast.Correlation) []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Child
	}
	return out
}
