// Package requestcontext carries per-request values that domain code reads
// without depending on transport details. The clock lives here so expiry and
// window logic is deterministic under test.
package requestcontext

import (
	"context"
	"time"
)

type clockKey struct{}

// Clock returns the current time. Tests install fixed or stepping clocks.
type Clock func() time.Time

// WithClock returns a context whose Now is served by the given clock.
func WithClock(ctx context.Context, clock Clock) context.Context {
	return context.WithValue(ctx, clockKey{}, clock)
}

// WithFixedNow pins Now to a single instant.
func WithFixedNow(ctx context.Context, now time.Time) context.Context {
	return WithClock(ctx, func() time.Time { return now })
}

// Now returns the context clock's time, falling back to the wall clock.
func Now(ctx context.Context) time.Time {
	if clock, ok := ctx.Value(clockKey{}).(Clock); ok && clock != nil {
		return clock()
	}
	return time.Now()
}
