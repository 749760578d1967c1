package executor

import (
	"sync"

	"golang.org/x/time/rate"
)

// TenantConfig defines rate limits and concurrency for one tenant's
// firings.
type TenantConfig struct {
	// Tenant is the tenant identifier.
	Tenant string

	// RateLimit is the sustained firings per second for this tenant.
	// Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int

	// MaxConcurrency limits simultaneous firings for this tenant. Zero
	// means no tenant-specific concurrency limit.
	MaxConcurrency int
}

// tenantState tracks runtime state for a single tenant.
type tenantState struct {
	limiter        *rate.Limiter
	maxConcurrency int
	active         int
}

// Limiter controls per-tenant rate limiting and concurrency. The pool
// calls Acquire before running a firing and Release after it completes.
// Tenants without a configuration have no limits. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	tenants map[string]*tenantState
}

// NewLimiter creates a Limiter with the given tenant configurations.
func NewLimiter(configs ...TenantConfig) *Limiter {
	l := &Limiter{tenants: make(map[string]*tenantState, len(configs))}
	for _, cfg := range configs {
		l.tenants[cfg.Tenant] = newTenantState(cfg)
	}
	return l
}

func newTenantState(cfg TenantConfig) *tenantState {
	ts := &tenantState{maxConcurrency: cfg.MaxConcurrency}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		ts.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return ts
}

// Acquire checks rate limits and concurrency for the tenant. If the firing
// is allowed to proceed it increments the active counter and returns true.
// The caller MUST call Release when the firing completes.
func (l *Limiter) Acquire(tenant string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.tenants[tenant]
	if ts == nil {
		return true
	}
	if ts.limiter != nil && !ts.limiter.Allow() {
		return false
	}
	if ts.maxConcurrency > 0 && ts.active >= ts.maxConcurrency {
		return false
	}
	ts.active++
	return true
}

// Release decrements the active firing count for the tenant.
func (l *Limiter) Release(tenant string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ts := l.tenants[tenant]; ts != nil && ts.active > 0 {
		ts.active--
	}
}

// SetTenantConfig dynamically updates (or creates) a tenant configuration.
// The current active count is preserved when reconfiguring.
func (l *Limiter) SetTenantConfig(cfg TenantConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing := l.tenants[cfg.Tenant]
	ts := newTenantState(cfg)
	if existing != nil {
		ts.active = existing.active
	}
	l.tenants[cfg.Tenant] = ts
}

// ActiveCount returns the current number of active firings for a tenant.
func (l *Limiter) ActiveCount(tenant string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ts := l.tenants[tenant]; ts != nil {
		return ts.active
	}
	return 0
}
