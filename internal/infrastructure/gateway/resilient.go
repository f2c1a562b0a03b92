package gateway

import (
	"context"
	"errors"
	"time"

	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/internal/domain/payment"
	"github.com/cassiomorais/storefront/internal/infrastructure/observability"
	"github.com/cassiomorais/storefront/pkg/retry"
	"github.com/sony/gobreaker/v2"
)

// Settings configures the breaker and retries around a gateway.
type Settings struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
	// CallTimeout bounds each gateway call. Zero leaves the caller's deadline alone.
	CallTimeout time.Duration
	Retry       retry.Config
}

// Resilient guards a gateway with a circuit breaker. Capture and Void are retried on
// timeouts; authorizations are not, so a timed out request never authorizes twice.
type Resilient struct {
	next    payment.Gateway
	breaker *gobreaker.CircuitBreaker[string]
	retry   retry.Config
	timeout time.Duration
	metrics *observability.Metrics
}

var _ payment.Gateway = (*Resilient)(nil)

// NewResilient wraps next. metrics may be nil.
func NewResilient(next payment.Gateway, s Settings, metrics *observability.Metrics) *Resilient {
	threshold := s.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	r := &Resilient{next: next, metrics: metrics, retry: s.Retry, timeout: s.CallTimeout}
	if r.retry.MaxAttempts == 0 {
		r.retry = retry.DefaultConfig()
	}
	r.retry.RetryIf = isTransient

	r.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Declines and caller errors say nothing about gateway health.
		IsSuccessful: func(err error) bool {
			return err == nil || !isTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if metrics != nil {
				metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return r
}

func (r *Resilient) ExecutePayment(ctx context.Context, req payment.AuthorizationRequest) (string, error) {
	code, err := r.breaker.Execute(func() (string, error) {
		ctx, cancel := r.callContext(ctx)
		defer cancel()
		return r.next.ExecutePayment(ctx, req)
	})
	return code, r.observe("authorize", err)
}

func (r *Resilient) Capture(ctx context.Context, code string) error {
	return r.observe("capture", retry.Do(ctx, r.retry, func() error {
		_, err := r.breaker.Execute(func() (string, error) {
			ctx, cancel := r.callContext(ctx)
			defer cancel()
			return "", r.next.Capture(ctx, code)
		})
		return err
	}))
}

func (r *Resilient) Void(ctx context.Context, code string) error {
	return r.observe("void", retry.Do(ctx, r.retry, func() error {
		_, err := r.breaker.Execute(func() (string, error) {
			ctx, cancel := r.callContext(ctx)
			defer cancel()
			return "", r.next.Void(ctx, code)
		})
		return err
	}))
}

func (r *Resilient) State() gobreaker.State { return r.breaker.State() }

func (r *Resilient) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *Resilient) observe(operation string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = errors.Join(domainErrors.ErrGatewayUnavailable, err)
	}
	if r.metrics != nil {
		result := "success"
		if err != nil {
			result = "error"
		}
		r.metrics.GatewayCallsTotal.WithLabelValues(operation, result).Inc()
		r.metrics.CircuitBreakerRequests.WithLabelValues(r.breaker.Name(), result).Inc()
	}
	return err
}

func isTransient(err error) bool {
	return errors.Is(err, domainErrors.ErrGatewayTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, domainErrors.ErrGatewayUnavailable)
}
