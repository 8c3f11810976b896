// Package ast is the planner's sole input and output: an immutable tree of
// tables, filters, orderings, correlated sub-selects, and related
// sub-selections. Every operation returns a new tree; none mutates its
// receiver.
package ast

import (
	"fmt"

	"github.com/zqlsync/planner/pkg/planerr"
)

// Select is the query AST rooted at one table.
type Select struct {
	Table   string
	Order   []OrderTerm
	Start   *Cursor
	Limit   *int
	Where   Condition // nil means no filter
	Related []RelatedSelection
}

// OrderTerm is one column of a requested ordering.
type OrderTerm struct {
	Column string
	Desc   bool
}

// Cursor is a starting position for a keyset-paginated scan.
type Cursor struct {
	Row       []any
	Exclusive bool
}

// FieldPair correlates one parent column with one child column.
type FieldPair struct {
	Parent string
	Child  string
}

// Correlation is the ordered list of field pairs binding a sub-select to its
// enclosing select.
type Correlation struct {
	Fields []FieldPair
}

// RelatedSelection attaches a child select to a parent row for shaping the
// output. Each one roots an independent sub-plan.
type RelatedSelection struct {
	Alias       string
	Correlation Correlation
	Select      *Select
}

// Condition is the sealed sum type of where-clause shapes.
type Condition interface {
	isCondition()
}

// Operand is the sealed sum type of predicate operands.
type Operand interface {
	isOperand()
}

// Column references a column of the enclosing select's table.
type Column struct{ Name string }

// Literal is a constant value.
type Literal struct{ Value any }

// Param is a static, caller-supplied parameter (bound once per plan, not
// per row).
type Param struct{ Name string }

func (Column) isOperand()  {}
func (Literal) isOperand() {}
func (Param) isOperand()   {}

// Operator is one of the comparison operators a Simple predicate may use.
type Operator string

const (
	Eq    Operator = "="
	Ne    Operator = "!="
	Lt    Operator = "<"
	Le    Operator = "<="
	Gt    Operator = ">"
	Ge    Operator = ">="
	Is    Operator = "IS"
	IsNot Operator = "IS NOT"
	Like  Operator = "LIKE"
	ILike Operator = "ILIKE"
	In    Operator = "IN"
)

// Simple is a non-correlated predicate: left op right.
type Simple struct {
	Left  Operand
	Op    Operator
	Right Operand
}

func (Simple) isCondition() {}

// And is a conjunction. Children are flippable-join candidates when they are
// Correlated sub-selects.
type And struct{ Conds []Condition }

func (And) isCondition() {}

// Or is a disjunction. A Correlated child is flippable only when every
// sibling branch is also a Correlated sub-select (spec.md S3).
type Or struct{ Conds []Condition }

func (Or) isCondition() {}

// Correlated is a nested select whose results depend on a row from the
// enclosing select via Correlation. Flip is set by plan application; it is
// always false on an input AST.
type Correlated struct {
	Select      *Select
	Correlation Correlation
	Flip        bool
}

func (Correlated) isCondition() {}

// Scalar is a comparison whose right-hand side is a sub-select returning one
// column of one row: Left Op (select ...). When the inner select is "simple"
// (its unique key is fully constrained by literal equalities) it is resolved
// to a Simple literal equality before enumeration (spec.md §5 S5); when
// resolution is unavailable or fails, it is left in place and the planner
// treats it as an opaque, non-flippable predicate (spec.md §7).
type Scalar struct {
	Left   Operand
	Op     Operator
	Select *Select
}

func (Scalar) isCondition() {}

// invalidAstError carries a reason string and unwraps to planerr.ErrInvalidAst.
type invalidAstError struct {
	reason string
}

func (e *invalidAstError) Error() string { return "zqlplan: invalid ast: " + e.reason }

func (e *invalidAstError) Is(target error) bool { return target == planerr.ErrInvalidAst }

func newInvalidAst(format string, args ...any) error {
	return &invalidAstError{reason: fmt.Sprintf(format, args...)}
}
