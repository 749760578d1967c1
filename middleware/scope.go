package middleware

import (
	"context"

	"github.com/folio-org/mod-data-export-spring-sub001/scope"
	"github.com/folio-org/mod-data-export-spring-sub001/trigger"
)

// Scope returns middleware that opens the tenant execution scope from the
// trigger's tenant field. Everything downstream of it reads the tenant from
// the context, so collaborators see the firing as system-sourced work for
// that tenant.
func Scope() Middleware {
	return func(ctx context.Context, t *trigger.Trigger, next Handler) error {
		ctx = scope.WithTenant(ctx, scope.Tenant{ID: t.Tenant, System: true})
		return next(ctx)
	}
}
