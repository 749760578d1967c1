package middleware

import (
	"context"
	"time"

	"github.com/folio-org/mod-data-export-spring-sub001/trigger"
)

// Timeout returns middleware that enforces a per-firing execution deadline.
// A zero duration disables the deadline.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, t *trigger.Trigger, next Handler) error {
		if d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return next(ctx)
	}
}
