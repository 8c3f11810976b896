package ast

// NewSelect validates and returns sel. It checks the invariants construction
// must uphold (§3 of the spec): a starting cursor's row width must match the
// ordering it pages over, and every nested correlation is itself valid.
func NewSelect(sel *Select) (*Select, error) {
	if sel == nil {
		return nil, newInvalidAst("select is nil")
	}
	if sel.Table == "" {
		return nil, newInvalidAst("select has empty table name")
	}
	if sel.Start != nil && len(sel.Start.Row) != len(sel.Order) {
		return nil, newInvalidAst("cursor row width %d does not match ordering width %d", len(sel.Start.Row), len(sel.Order))
	}
	if sel.Where != nil {
		if err := validateCondition(sel.Where); err != nil {
			return nil, err
		}
	}
	for _, r := range sel.Related {
		if r.Alias == "" {
			return nil, newInvalidAst("related selection has empty alias")
		}
		if err := validateCorrelation(r.Correlation); err != nil {
			return nil, err
		}
		if _, err := NewSelect(r.Select); err != nil {
			return nil, err
		}
	}
	return sel, nil
}

func validateCondition(c Condition) error {
	switch v := c.(type) {
	case Simple:
		return validateSimple(v)
	case And:
		for _, inner := range v.Conds {
			if err := validateCondition(inner); err != nil {
				return err
			}
		}
	case Or:
		for _, inner := range v.Conds {
			if err := validateCondition(inner); err != nil {
				return err
			}
		}
	case Correlated:
		if err := validateCorrelation(v.Correlation); err != nil {
			return err
		}
		if _, err := NewSelect(v.Select); err != nil {
			return err
		}
	case Scalar:
		switch v.Left.(type) {
		case Column, Literal:
		default:
			return newInvalidAst("scalar predicate left operand must be a column or literal, got %T", v.Left)
		}
		if _, err := NewSelect(v.Select); err != nil {
			return err
		}
	default:
		return newInvalidAst("unknown condition variant %T", c)
	}
	return nil
}

func validateSimple(s Simple) error {
	switch s.Left.(type) {
	case Column, Literal:
	default:
		return newInvalidAst("simple predicate left operand must be a column or literal, got %T", s.Left)
	}
	if s.Right == nil {
		return newInvalidAst("simple predicate has nil right operand")
	}
	return nil
}

func validateCorrelation(c Correlation) error {
	if len(c.Fields) == 0 {
		return newInvalidAst("correlation has no field pairs")
	}
	for _, f := range c.Fields {
		if f.Parent == "" || f.Child == "" {
			return newInvalidAst("correlation field pair has an empty column name")
		}
	}
	return nil
}
