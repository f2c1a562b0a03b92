package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request and renames it to the matched chi route
// once routing has run, e.g. "POST /api/v1/subscriptions/{id}/seats".
func Tracing(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		named := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			trace.SpanFromContext(r.Context()).SetName(r.Method + " " + routePattern(r))
		})
		return otelhttp.NewHandler(named, service)
	}
}
