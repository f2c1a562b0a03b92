package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/cassiomorais/storefront/internal/repository/postgres"
	"github.com/rs/zerolog"
)

const maxIdempotencyBodySize = 1 << 20

// IdempotencyStore keeps checkout responses keyed by customer and Idempotency-Key.
type IdempotencyStore interface {
	Get(ctx context.Context, customerID, key string) (*postgres.IdempotencyEntry, error)
	Set(ctx context.Context, entry *postgres.IdempotencyEntry) error
}

// Idempotency replays the stored response when a customer repeats a checkout with the
// same Idempotency-Key, so a retried request cannot charge twice. Only non-5xx responses
// are stored; a 5xx may be retried for real.
func Idempotency(store IdempotencyStore, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			customerID, ok := CustomerIDFromContext(r.Context())
			if key == "" || !ok {
				next.ServeHTTP(w, r)
				return
			}
			logger := zerolog.Ctx(r.Context())

			entry, err := store.Get(r.Context(), customerID, key)
			if err != nil {
				logger.Warn().Err(err).Str("idempotency_key", key).Msg("Idempotency lookup failed, processing request")
			}
			if err == nil && entry != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotency-Replayed", "true")
				w.WriteHeader(entry.ResponseStatus)
				_, _ = w.Write([]byte(entry.ResponseBody))
				return
			}

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode >= 500 || rec.bodyTruncated {
				return
			}
			now := time.Now().UTC()
			err = store.Set(context.WithoutCancel(r.Context()), &postgres.IdempotencyEntry{
				Key:            key,
				CustomerID:     customerID,
				ResponseBody:   rec.body.String(),
				ResponseStatus: rec.statusCode,
				CreatedAt:      now,
				ExpiresAt:      now.Add(ttl),
			})
			if err != nil {
				logger.Error().Err(err).Str("idempotency_key", key).Msg("Failed to store idempotent response")
			}
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode    int
	body          *bytes.Buffer
	bodyTruncated bool
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.bodyTruncated {
		if r.body.Len()+len(b) > maxIdempotencyBodySize {
			r.bodyTruncated = true
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}
