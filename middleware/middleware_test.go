package middleware_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/folio-org/mod-data-export-spring-sub001/export"
	"github.com/folio-org/mod-data-export-spring-sub001/middleware"
	"github.com/folio-org/mod-data-export-spring-sub001/scope"
	"github.com/folio-org/mod-data-export-spring-sub001/trigger"
)

func testTrigger() *trigger.Trigger {
	return &trigger.Trigger{
		Key: trigger.Key{
			Identity: trigger.Identity{Group: "diku_scheduledExport", Name: "cfg-1"},
		},
		Tenant: "diku",
		Type:   export.TypeCirculationLog,
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) middleware.Middleware {
		return func(ctx context.Context, tr *trigger.Trigger, next middleware.Handler) error {
			order = append(order, name+":before")
			err := next(ctx)
			order = append(order, name+":after")
			return err
		}
	}

	chain := middleware.Chain(mw("a"), mw("b"), mw("c"))
	err := chain(context.Background(), testTrigger(), func(context.Context) error {
		order = append(order, "handler")
		return nil
	})
	if err != nil {
		t.Fatalf("chain: %v", err)
	}

	want := strings.Join([]string{
		"a:before", "b:before", "c:before", "handler", "c:after", "b:after", "a:after",
	}, ",")
	if got := strings.Join(order, ","); got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}
}

func TestChainEmpty(t *testing.T) {
	chain := middleware.Chain()
	ran := false
	err := chain(context.Background(), testTrigger(), func(context.Context) error {
		ran = true
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("empty chain: err=%v ran=%v", err, ran)
	}
}

func TestRecoverConvertsPanic(t *testing.T) {
	mw := middleware.Recover(slog.Default())
	err := mw(context.Background(), testTrigger(), func(context.Context) error {
		panic("boom")
	})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("recovered error = %v, want the panic value", err)
	}
}

func TestRecoverPassesThrough(t *testing.T) {
	mw := middleware.Recover(slog.Default())
	want := errors.New("plain failure")
	err := mw(context.Background(), testTrigger(), func(context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want the handler error unchanged", err)
	}
}

func TestTimeoutSetsDeadline(t *testing.T) {
	mw := middleware.Timeout(time.Minute)
	err := mw(context.Background(), testTrigger(), func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("no deadline on the firing context")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("timeout middleware: %v", err)
	}
}

func TestTimeoutZeroDisabled(t *testing.T) {
	mw := middleware.Timeout(0)
	err := mw(context.Background(), testTrigger(), func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			t.Error("deadline set despite zero timeout")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("timeout middleware: %v", err)
	}
}

func TestScopeOpensTenant(t *testing.T) {
	mw := middleware.Scope()
	err := mw(context.Background(), testTrigger(), func(ctx context.Context) error {
		tenant, ok := scope.TenantFrom(ctx)
		if !ok {
			t.Fatal("no tenant scope on the firing context")
		}
		if tenant.ID != "diku" || !tenant.System {
			t.Errorf("tenant scope = %+v, want diku system scope", tenant)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("scope middleware: %v", err)
	}
}

func TestLoggingPassesThrough(t *testing.T) {
	mw := middleware.Logging(slog.Default())
	want := errors.New("firing failed")
	err := mw(context.Background(), testTrigger(), func(context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want the handler error unchanged", err)
	}
}
