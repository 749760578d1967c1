package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/folio-org/mod-data-export-spring-sub001/trigger"
)

// Logging returns middleware that logs firing start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *trigger.Trigger, next Handler) error {
		logger.Info("firing started",
			slog.String("trigger", t.Key.String()),
			slog.String("tenant", t.Tenant),
			slog.String("export_type", string(t.Type)),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("firing failed",
				slog.String("trigger", t.Key.String()),
				slog.String("tenant", t.Tenant),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("firing completed",
				slog.String("trigger", t.Key.String()),
				slog.String("tenant", t.Tenant),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
