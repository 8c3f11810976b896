package ast

// Equal is structural equality. The ordering of Related matters; the
// ordering within an And/Or is compared positionally (construction is
// expected to be consistent about child order so hashes stay stable, per
// spec.md §4.1).
func (sel *Select) Equal(other *Select) bool {
	if sel == nil || other == nil {
		return sel == other
	}
	if sel.Table != other.Table {
		return false
	}
	if !equalIntPtr(sel.Limit, other.Limit) {
		return false
	}
	if !equalOrder(sel.Order, other.Order) {
		return false
	}
	if !equalCursor(sel.Start, other.Start) {
		return false
	}
	if !equalCondition(sel.Where, other.Where) {
		return false
	}
	if len(sel.Related) != len(other.Related) {
		return false
	}
	for i := range sel.Related {
		a, b := sel.Related[i], other.Related[i]
		if a.Alias != b.Alias || !equalCorrelation(a.Correlation, b.Correlation) || !a.Select.Equal(b.Select) {
			return false
		}
	}
	return true
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalOrder(a, b []OrderTerm) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalCursor(a, b *Cursor) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Exclusive != b.Exclusive || len(a.Row) != len(b.Row) {
		return false
	}
	for i := range a.Row {
		if a.Row[i] != b.Row[i] {
			return false
		}
	}
	return true
}

func equalCorrelation(a, b Correlation) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i] != b.Fields[i] {
			return false
		}
	}
	return true
}

func equalCondition(a, b Condition) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch av := a.(type) {
	case Simple:
		bv, ok := b.(Simple)
		return ok && av.Left == bv.Left && av.Op == bv.Op && av.Right == bv.Right
	case And:
		bv, ok := b.(And)
		return ok && equalConditions(av.Conds, bv.Conds)
	case Or:
		bv, ok := b.(Or)
		return ok && equalConditions(av.Conds, bv.Conds)
	case Correlated:
		bv, ok := b.(Correlated)
		return ok && av.Flip == bv.Flip && equalCorrelation(av.Correlation, bv.Correlation) && av.Select.Equal(bv.Select)
	case Scalar:
		bv, ok := b.(Scalar)
		return ok && av.Left == bv.Left && av.Op == bv.Op && av.Select.Equal(bv.Select)
	default:
		return false
	}
}

func equalConditions(a, b []Condition) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalCondition(a[i], b[i]) {
			return false
		}
	}
	return true
}
