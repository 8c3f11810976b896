// Package plancancel is a cooperative cancellation token. The planner is
// synchronous end-to-end (spec.md §5) and exposes no suspension points, so a
// context.Context would be the wrong tool here: the token is polled between
// attempts, never selected on.
package plancancel

import "sync/atomic"

// Token is a cooperative cancellation flag, safe for concurrent use. The
// zero value is never-cancelled.
type Token struct {
	tripped atomic.Bool
}

// New returns a fresh, untripped Token.
func New() *Token {
	return &Token{}
}

// Cancel trips the token. Safe to call more than once or concurrently with
// Cancelled.
func (t *Token) Cancel() {
	if t == nil {
		return
	}
	t.tripped.Store(true)
}

// Cancelled reports whether Cancel has been called. A nil Token is never
// cancelled, so callers that don't need cancellation can pass nil.
func (t *Token) Cancelled() bool {
	if t == nil {
		return false
	}
	return t.tripped.Load()
}
