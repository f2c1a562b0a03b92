package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit throttles checkout calls per authenticated customer, or per client IP
// before authentication.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(keyByCustomer),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "rate limit exceeded",
				"code":  "rate_limit",
			})
		}),
	)
}

func keyByCustomer(r *http.Request) (string, error) {
	if customerID, ok := CustomerIDFromContext(r.Context()); ok {
		return "customer:" + customerID, nil
	}
	return httprate.KeyByIP(r)
}
