package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// RequestLogger attaches a request-scoped logger to the context and writes one
// access log line per request.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			event := hlog.FromRequest(r).Info()
			if status >= http.StatusInternalServerError {
				event = hlog.FromRequest(r).Error()
			}
			event.
				Str("method", r.Method).
				Str("route", routePattern(r)).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("Request handled")
		})(next)
		h = hlog.RemoteAddrHandler("remote_addr")(h)
		h = hlog.RequestIDHandler("request_id", "X-Request-Id")(h)
		return hlog.NewHandler(logger)(h)
	}
}
