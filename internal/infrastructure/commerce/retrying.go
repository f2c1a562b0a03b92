package commerce

import (
	"context"
	"errors"
	"time"

	"github.com/cassiomorais/storefront/internal/domain/commerce"
	"github.com/cassiomorais/storefront/internal/infrastructure/observability"
	"github.com/cassiomorais/storefront/pkg/retry"
)

// Retrying retries subscription reads and patches that failed on the provider side.
// Orders are placed once: a retried placement could create a second order.
type Retrying struct {
	next    commerce.OrderService
	retry   retry.Config
	timeout time.Duration
	metrics *observability.Metrics
}

var _ commerce.OrderService = (*Retrying)(nil)

// NewRetrying wraps next. metrics may be nil.
func NewRetrying(next commerce.OrderService, cfg retry.Config, metrics *observability.Metrics) *Retrying {
	if cfg.MaxAttempts == 0 {
		cfg = retry.DefaultConfig()
	}
	cfg.RetryIf = isProviderFailure
	return &Retrying{next: next, retry: cfg, metrics: metrics}
}

// WithCallTimeout bounds each provider call, per attempt.
func (r *Retrying) WithCallTimeout(d time.Duration) *Retrying {
	r.timeout = d
	return r
}

func (r *Retrying) CreateOrder(ctx context.Context, order commerce.Order) (*commerce.Order, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()
	placed, err := r.next.CreateOrder(callCtx, order)
	r.observe("create_order", err)
	return placed, err
}

func (r *Retrying) GetSubscription(ctx context.Context, customerID, subscriptionID string) (*commerce.Subscription, error) {
	sub, err := retry.DoWithResult(ctx, r.retry, func() (*commerce.Subscription, error) {
		callCtx, cancel := r.callContext(ctx)
		defer cancel()
		return r.next.GetSubscription(callCtx, customerID, subscriptionID)
	})
	r.observe("get_subscription", err)
	return sub, err
}

// PatchSubscription sends the full subscription state, so repeating it is safe.
func (r *Retrying) PatchSubscription(ctx context.Context, customerID string, sub *commerce.Subscription) (*commerce.Subscription, error) {
	patched, err := retry.DoWithResult(ctx, r.retry, func() (*commerce.Subscription, error) {
		callCtx, cancel := r.callContext(ctx)
		defer cancel()
		return r.next.PatchSubscription(callCtx, customerID, sub)
	})
	r.observe("patch_subscription", err)
	return patched, err
}

func (r *Retrying) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *Retrying) observe(operation string, err error) {
	if r.metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	r.metrics.OrderServiceCallTotal.WithLabelValues(operation, result).Inc()
}

func isProviderFailure(err error) bool {
	var pe *commerce.ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == commerce.ProviderFailure
	}
	return !errors.Is(err, context.Canceled)
}
