package plandebug

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// FormatAttempts renders recorded attempts as a human-readable EXPLAIN-style
// trace dump, for cmd/zqlplan and ad-hoc debugging.
func FormatAttempts(attempts []AttemptRecord) string {
	var b strings.Builder
	for _, a := range attempts {
		fmt.Fprintf(&b, "attempt %d [%s]: cost=%s flips=0b%0*b\n",
			a.Attempt, orRoot(a.GraphKey), humanize.CommafWithDigits(a.TotalCost, 1),
			max(len(a.Joins), 1), a.FlipPattern)
		for _, j := range a.Joins {
			orientation := "semi"
			if j.Flipped {
				orientation = "flipped"
			}
			fmt.Fprintf(&b, "  join %d: %s\n", j.JoinID, orientation)
		}
	}
	return b.String()
}

func orRoot(graphKey string) string {
	if graphKey == "" {
		return "root"
	}
	return graphKey
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
