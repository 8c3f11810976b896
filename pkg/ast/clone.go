package ast

// Clone returns a deep, independent copy of sel.
func (sel *Select) Clone() *Select {
	if sel == nil {
		return nil
	}
	out := &Select{
		Table: sel.Table,
		Limit: cloneIntPtr(sel.Limit),
	}
	if sel.Order != nil {
		out.Order = append([]OrderTerm(nil), sel.Order...)
	}
	if sel.Start != nil {
		out.Start = &Cursor{
			Row:       append([]any(nil), sel.Start.Row...),
			Exclusive: sel.Start.Exclusive,
		}
	}
	if sel.Where != nil {
		out.Where = cloneCondition(sel.Where)
	}
	for _, r := range sel.Related {
		out.Related = append(out.Related, RelatedSelection{
			Alias:       r.Alias,
			Correlation: cloneCorrelation(r.Correlation),
			Select:      r.Select.Clone(),
		})
	}
	return out
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneCorrelation(c Correlation) Correlation {
	return Correlation{Fields: append([]FieldPair(nil), c.Fields...)}
}

func cloneCondition(c Condition) Condition {
	switch v := c.(type) {
	case Simple:
		return v
	case And:
		return And{Conds: cloneConditions(v.Conds)}
	case Or:
		return Or{Conds: cloneConditions(v.Conds)}
	case Correlated:
		return Correlated{
			Select:      v.Select.Clone(),
			Correlation: cloneCorrelation(v.Correlation),
			Flip:        v.Flip,
		}
	case Scalar:
		return Scalar{Left: v.Left, Op: v.Op, Select: v.Select.Clone()}
	default:
		return c
	}
}

func cloneConditions(cs []Condition) []Condition {
	if cs == nil {
		return nil
	}
	out := make([]Condition, len(cs))
	for i, c := range cs {
		out[i] = cloneCondition(c)
	}
	return out
}

// NameMapper translates a table name, and a (table, column) pair, between
// naming conventions (e.g. client names to server names).
type NameMapper struct {
	Table  func(table string) string
	Column func(table, column string) string
}

// DeepMap rewrites every table name and column name in sel through m,
// returning a new tree. sel is unchanged.
func (sel *Select) DeepMap(m NameMapper) *Select {
	if sel == nil {
		return nil
	}
	table := m.Table(sel.Table)
	out := &Select{
		Table: table,
		Limit: cloneIntPtr(sel.Limit),
	}
	for _, o := range sel.Order {
		out.Order = append(out.Order, OrderTerm{Column: m.Column(sel.Table, o.Column), Desc: o.Desc})
	}
	if sel.Start != nil {
		out.Start = &Cursor{
			Row:       append([]any(nil), sel.Start.Row...),
			Exclusive: sel.Start.Exclusive,
		}
	}
	if sel.Where != nil {
		out.Where = deepMapCondition(sel.Where, sel.Table, m)
	}
	for _, r := range sel.Related {
		out.Related = append(out.Related, RelatedSelection{
			Alias:       r.Alias,
			Correlation: mapCorrelation(r.Correlation, sel.Table, r.Select.Table, m),
			Select:      r.Select.DeepMap(m),
		})
	}
	return out
}

func mapCorrelation(c Correlation, parentTable, childTable string, m NameMapper) Correlation {
	out := Correlation{}
	for _, f := range c.Fields {
		out.Fields = append(out.Fields, FieldPair{
			Parent: m.Column(parentTable, f.Parent),
			Child:  m.Column(childTable, f.Child),
		})
	}
	return out
}

func deepMapCondition(c Condition, table string, m NameMapper) Condition {
	switch v := c.(type) {
	case Simple:
		return Simple{
			Left:  mapOperand(v.Left, table, m),
			Op:    v.Op,
			Right: mapOperand(v.Right, table, m),
		}
	case And:
		return And{Conds: deepMapConditions(v.Conds, table, m)}
	case Or:
		return Or{Conds: deepMapConditions(v.Conds, table, m)}
	case Correlated:
		return Correlated{
			Select:      v.Select.DeepMap(m),
			Correlation: mapCorrelation(v.Correlation, table, v.Select.Table, m),
			Flip:        v.Flip,
		}
	case Scalar:
		return Scalar{Left: mapOperand(v.Left, table, m), Op: v.Op, Select: v.Select.DeepMap(m)}
	default:
		return c
	}
}

func deepMapConditions(cs []Condition, table string, m NameMapper) []Condition {
	if cs == nil {
		return nil
	}
	out := make([]Condition, len(cs))
	for i, c := range cs {
		out[i] = deepMapCondition(c, table, m)
	}
	return out
}

func mapOperand(o Operand, table string, m NameMapper) Operand {
	if col, ok := o.(Column); ok {
		return Column{Name: m.Column(table, col.Name)}
	}
	return o
}
