package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDHeader echoes the trace ID of the server span to the client.
const TraceIDHeader = "X-Trace-Id"

// MiddlewareOptions tells the middleware how to label a request.
type MiddlewareOptions struct {
	// Route maps a request to a bounded route name used in the span name
	// and the http.route attribute. Defaults to the raw URL path.
	Route func(*http.Request) string
	// RequestID returns the correlation ID already attached to the request
	// context, if any. It is recorded as the request_id attribute.
	RequestID func(context.Context) string
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware starts a server span per request, continuing any W3C trace
// context the caller sent. Spans are named "<METHOD> <route>", so every
// summarize call lands under "POST /summarize" whichever path served it.
// Handlers add request-specific attributes (portal, backend) with Annotate.
func Middleware(opts MiddlewareOptions) func(http.Handler) http.Handler {
	route := opts.Route
	if route == nil {
		route = func(r *http.Request) string { return r.URL.Path }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			name := route(r)
			attrs := []attribute.KeyValue{
				attribute.String("http.method", r.Method),
				attribute.String("http.route", name),
			}
			if opts.RequestID != nil {
				if id := opts.RequestID(r.Context()); id != "" {
					attrs = append(attrs, attribute.String("request_id", id))
				}
			}

			ctx, span := tracer.Start(ctx, r.Method+" "+name,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			if sc := span.SpanContext(); sc.HasTraceID() {
				w.Header().Set(TraceIDHeader, sc.TraceID().String())
			}

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.status_code", sw.status))
			if sw.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(sw.status))
			}
		})
	}
}

// Annotate adds attrs to the span carried by ctx. Without a recording span
// it does nothing.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
