// Package guardrails holds cross cutting safety helpers for the aggregation job
package guardrails

import (
	"context"
	"time"
)

// Timeouts is an optional budget bundle for a run.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Run is the overall time budget for the whole job
	Run time.Duration

	// File caps reading and aggregating one archive file
	File time.Duration
}

// WithRun returns a context limited by the run budget without extending any parent deadline.
// if Run is zero it returns a cancelable child that simply inherits the parent deadline
func WithRun(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Run)
}

// ForFile returns a sub context for one file bounded by File and any remaining parent budget
func ForFile(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.File)
}

// remaining returns the time until the deadline on ctx or zero when none is set or already expired
func remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		d := time.Until(dl)
		if d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout chooses the tighter of the requested duration and any parent remainder.
// Never extends the parent deadline
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
