package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/folio-org/mod-data-export-spring-sub001/trigger"
)

// Recover returns middleware that recovers from panics in the firing chain.
// Panics are converted to errors and logged with a stack trace.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *trigger.Trigger, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("firing panicked",
					slog.String("trigger", t.Key.String()),
					slog.String("tenant", t.Tenant),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic firing %s: %v", t.Key, r)
			}
		}()
		return next(ctx)
	}
}
