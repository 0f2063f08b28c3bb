package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Telemetry wraps an http.Handler with the otelhttp server instrumentation
// (active requests, body sizes, and propagated trace context).
func Telemetry(next http.Handler) http.Handler {
	return otelhttp.NewMiddleware("truebalance-api")(next)
}
