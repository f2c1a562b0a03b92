package controller

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by the database pool and by the Redis adapter below.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthController struct {
	checks map[string]Pinger
}

// NewHealthController reports not-ready when any named dependency fails to answer a ping.
func NewHealthController(checks map[string]Pinger) *HealthController {
	return &HealthController{checks: checks}
}

func (h *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthController) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h *HealthController) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": name + " unavailable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
