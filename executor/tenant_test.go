package executor_test

import (
	"testing"

	"github.com/folio-org/mod-data-export-spring-sub001/executor"
)

func TestLimiterUnconfiguredTenantUnlimited(t *testing.T) {
	l := executor.NewLimiter()
	for range 100 {
		if !l.Acquire("diku") {
			t.Fatal("unconfigured tenant was limited")
		}
	}
}

func TestLimiterMaxConcurrency(t *testing.T) {
	l := executor.NewLimiter(executor.TenantConfig{Tenant: "diku", MaxConcurrency: 2})

	if !l.Acquire("diku") || !l.Acquire("diku") {
		t.Fatal("first two firings refused")
	}
	if l.Acquire("diku") {
		t.Fatal("third concurrent firing allowed, want refused")
	}
	if got := l.ActiveCount("diku"); got != 2 {
		t.Fatalf("ActiveCount = %d, want 2", got)
	}

	l.Release("diku")
	if !l.Acquire("diku") {
		t.Fatal("firing refused after a slot was released")
	}
}

func TestLimiterRateLimit(t *testing.T) {
	l := executor.NewLimiter(executor.TenantConfig{Tenant: "diku", RateLimit: 1, RateBurst: 2})

	if !l.Acquire("diku") || !l.Acquire("diku") {
		t.Fatal("burst firings refused")
	}
	// Burst exhausted; the next token arrives a second later.
	if l.Acquire("diku") {
		t.Fatal("firing allowed past the burst")
	}
	// Other tenants are unaffected.
	if !l.Acquire("other") {
		t.Fatal("unrelated tenant limited")
	}
}

func TestLimiterSetTenantConfigPreservesActive(t *testing.T) {
	l := executor.NewLimiter(executor.TenantConfig{Tenant: "diku", MaxConcurrency: 1})

	if !l.Acquire("diku") {
		t.Fatal("first firing refused")
	}
	l.SetTenantConfig(executor.TenantConfig{Tenant: "diku", MaxConcurrency: 2})

	if got := l.ActiveCount("diku"); got != 1 {
		t.Fatalf("ActiveCount after reconfigure = %d, want 1", got)
	}
	if !l.Acquire("diku") {
		t.Fatal("raised limit not applied")
	}
	if l.Acquire("diku") {
		t.Fatal("new limit not enforced")
	}
}

func TestLimiterReleaseNeverGoesNegative(t *testing.T) {
	l := executor.NewLimiter(executor.TenantConfig{Tenant: "diku", MaxConcurrency: 1})
	l.Release("diku")
	if got := l.ActiveCount("diku"); got != 0 {
		t.Fatalf("ActiveCount = %d, want 0", got)
	}
}
