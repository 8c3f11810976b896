package costmodel

import "github.com/BurntSushi/toml"

// Tuning holds the reference stats provider's empirical constants. Design
// Notes (2) and (3) in spec.md call these engine-specific and require them
// to be threaded through as configuration rather than hardcoded.
type Tuning struct {
	// UnindexedEqualityDivisor corrects the default selectivity engines
	// assume for an equality predicate on an unindexed column. Applied
	// compounded, once per such predicate, floored at 1 row.
	UnindexedEqualityDivisor float64 `toml:"unindexed_equality_divisor"`

	// SortCostDivisor scales the (rows * log2(rows)) term added to
	// startup cost when the engine reports a subsequent sort. 1 for an
	// engine with no native sort.
	SortCostDivisor float64 `toml:"sort_cost_divisor"`

	// GreedyThreshold is the flippable-join count above which the planner
	// switches from exhaustive enumeration to the greedy strategy.
	GreedyThreshold int `toml:"greedy_threshold"`

	// UnknownTableCost is the sentinel high cost returned for a table the
	// cost model doesn't recognize.
	UnknownTableCost float64 `toml:"unknown_table_cost"`
}

// DefaultTuning returns the constants spec.md §4.3 and §9 give as empirical
// ground truth for the reference engine.
func DefaultTuning() Tuning {
	return Tuning{
		UnindexedEqualityDivisor: 50,
		SortCostDivisor:          10,
		GreedyThreshold:          12,
		UnknownTableCost:         1e12,
	}
}

// LoadTuningFile reads tuning overrides from a TOML file, starting from
// DefaultTuning so an omitted key keeps its reference value.
func LoadTuningFile(path string) (Tuning, error) {
	t := DefaultTuning()
	_, err := toml.DecodeFile(path, &t)
	if err != nil {
		return Tuning{}, err
	}
	return t, nil
}
