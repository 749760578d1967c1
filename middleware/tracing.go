package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/folio-org/mod-data-export-spring-sub001/trigger"
)

// tracerName is the instrumentation scope name for firing tracing.
const tracerName = "github.com/folio-org/mod-data-export-spring-sub001"

// Tracing returns middleware that wraps the firing in an OpenTelemetry span.
// If no TracerProvider is configured globally, the default noop tracer is
// used and this middleware becomes a pass-through with zero overhead.
//
// Span attributes include: dataexport.trigger, dataexport.tenant,
// dataexport.export_type, dataexport.config_id.
// On error, the span status is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, t *trigger.Trigger, next Handler) error {
		ctx, span := tracer.Start(ctx, "dataexport.trigger.fire",
			trace.WithAttributes(
				attribute.String("dataexport.trigger", t.Key.String()),
				attribute.String("dataexport.tenant", t.Tenant),
				attribute.String("dataexport.export_type", string(t.Type)),
				attribute.String("dataexport.config_id", t.ConfigID),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
