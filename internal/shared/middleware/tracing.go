package middleware

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	httpTracer             = otel.Tracer("truebalance/http")
	httpMeter              = otel.Meter("truebalance/http")
	httpRequestDuration, _ = httpMeter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	httpRequestTotal, _ = httpMeter.Int64Counter("http.server.request.total",
		metric.WithDescription("Total HTTP requests"),
	)
)

// Tracing creates a server span per request and records request metrics
// keyed by the matched route pattern, so account ids do not explode the
// metric cardinality.
func Tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := httpTracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			),
		)
		defer span.End()

		start := time.Now()
		wrapped := wrapResponseWriter(w)
		r = r.WithContext(ctx)
		next.ServeHTTP(wrapped, r)

		status := wrapped.Status()
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		} else {
			span.SetName(route)
		}
		if id := RequestIDFromContext(ctx); id != "" {
			span.SetAttributes(attribute.String("http.request_id", id))
		}

		span.SetAttributes(attribute.Int("http.status_code", status), attribute.String("http.route", route))
		if status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		attrs := metric.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		httpRequestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		httpRequestTotal.Add(ctx, 1, attrs)
	})
}
