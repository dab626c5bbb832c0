// Package tracing provides OpenTelemetry tracing integration.
//
//	shutdown := tracing.Setup("nepsum", 1.0)
//	defer shutdown(context.Background())
//
//	ctx, span := tracing.GetTracer().Start(ctx, "summarize")
//	defer span.End()
package tracing
