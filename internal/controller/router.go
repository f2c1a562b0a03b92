package controller

import (
	"net/http"
	"time"

	"github.com/cassiomorais/storefront/internal/application/checkout"
	"github.com/cassiomorais/storefront/internal/infrastructure/config"
	"github.com/cassiomorais/storefront/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/storefront/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	Logger         zerolog.Logger
	Checkout       checkout.Deps
	Health         map[string]Pinger
	Idempotency    customMW.IdempotencyStore
	IdempotencyTTL time.Duration
	Metrics        *observability.Metrics
	MetricsHandler http.Handler
	CORSConfig     config.CORSConfig
	JWTSecret      string
	RateLimit      int
	RequestTimeout time.Duration
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 60 * time.Second
	}
	if deps.IdempotencyTTL <= 0 {
		deps.IdempotencyTTL = 24 * time.Hour
	}
	if deps.MetricsHandler == nil {
		deps.MetricsHandler = promhttp.Handler()
	}

	r.Use(chimw.RealIP)
	r.Use(customMW.Tracing("storefront-api"))
	r.Use(customMW.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(deps.RequestTimeout))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Idempotency-Replayed"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	if deps.Metrics != nil {
		r.Use(customMW.Metrics(deps.Metrics))
	}

	healthH := NewHealthController(deps.Health)
	checkoutH := NewCheckoutController(deps.Checkout)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", deps.MetricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(customMW.RequireAuth(deps.JWTSecret))
		if deps.RateLimit > 0 {
			r.Use(customMW.RateLimit(deps.RateLimit))
		}

		// Checkouts charge the customer; a repeated Idempotency-Key replays the first response.
		r.Group(func(r chi.Router) {
			if deps.Idempotency != nil {
				r.Use(customMW.Idempotency(deps.Idempotency, deps.IdempotencyTTL))
			}
			r.Post("/purchases", checkoutH.Purchase)
			r.Post("/subscriptions/{id}/seats", checkoutH.AddSeats)
			r.Post("/subscriptions/{id}/renew", checkoutH.Renew)
		})

		r.Get("/subscriptions", checkoutH.ListSubscriptions)
		r.Get("/purchases", checkoutH.ListPurchases)
	})

	return r
}
