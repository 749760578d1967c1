// Package scope carries the tenant execution scope through
// context.Context as an explicit context value — never ambient global or
// thread-local state. The executor opens a tenant scope for the duration of
// a firing and every collaborator reads it from the context it is handed.
package scope

import "context"

type ctxKey struct{}

// Tenant is the execution scope of one firing: the tenant the firing acts
// on behalf of, and the system-user flag distinguishing engine-initiated
// work from user-initiated work.
type Tenant struct {
	ID     string
	System bool
}

// WithTenant attaches a tenant scope to the context.
func WithTenant(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// TenantFrom extracts the tenant scope from the context. Returns false if
// no scope is present.
func TenantFrom(ctx context.Context) (Tenant, bool) {
	t, ok := ctx.Value(ctxKey{}).(Tenant)
	return t, ok
}
