package mongo

import (
	"context"
	"time"
)

// OpTimeout caps every repository call against MongoDB.
const OpTimeout = 5 * time.Second

// WithRepoTimeout bounds ctx by d unless an earlier deadline already applies.
// The returned cancel is always non-nil, so callers can defer it
// unconditionally:
//
//	ctx, cancel := WithRepoTimeout(parentCtx, d)
//	defer cancel()
func WithRepoTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if err := ctx.Err(); err != nil {
		// Already canceled or expired; nothing to bound.
		return ctx, func() {}
	}
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) <= d {
		// The caller's deadline is stricter; keep it.
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
