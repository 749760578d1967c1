// Package middleware provides composable middleware for trigger firings.
// Middleware wraps the executor's firing synchronously and can modify
// execution (recover from panics, open the tenant scope, log, trace, etc.).
package middleware

import (
	"context"

	"github.com/folio-org/mod-data-export-spring-sub001/trigger"
)

// Handler is the terminal function that executes the firing.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic. It receives the
// current context, the trigger being fired, and the next handler to call.
// Middleware MUST call next to continue the chain (unless short-circuiting
// on error).
type Middleware func(ctx context.Context, t *trigger.Trigger, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, scope) executes as:
//
//	logging → recover → scope → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, t *trigger.Trigger, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, t, prev)
			}
		}
		return h(ctx)
	}
}
