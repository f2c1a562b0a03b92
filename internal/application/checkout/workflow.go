package checkout

import (
	"context"
	"errors"
	"time"

	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/internal/domain/subscription"
	"github.com/cassiomorais/storefront/pkg/saga"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	WorkflowPurchase = "purchase"
	WorkflowAddSeats = "add-seats"
	WorkflowRenew    = "renew-subscription"
)

// Receipt is what a committed checkout workflow returns to the caller.
type Receipt struct {
	OrderID           string
	AuthorizationCode string
	LineItems         []subscription.TransactionResultLineItem
	Total             decimal.Decimal
}

func newReceipt(orderID, authorizationCode string, items []subscription.TransactionResultLineItem) *Receipt {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.AmountCharged)
	}
	return &Receipt{
		OrderID:           orderID,
		AuthorizationCode: authorizationCode,
		LineItems:         items,
		Total:             total,
	}
}

// workflow holds what the checkout use cases share: locking, running the saga,
// escalating failed compensations and recording metrics.
type workflow struct {
	deps Deps
}

func (w *workflow) currency() string {
	if w.deps.Currency == "" {
		return "USD"
	}
	return w.deps.Currency
}

func (w *workflow) lock(ctx context.Context, customerID string) (func(context.Context), error) {
	if w.deps.Locker == nil {
		return func(context.Context) {}, nil
	}
	return w.deps.Locker.Acquire(ctx, customerID)
}

// loadPersisted reads the stored record the seat and renewal workflows price from.
func (w *workflow) loadPersisted(ctx context.Context, customerID, subscriptionID string) (subscription.CustomerSubscriptionEntity, error) {
	records, err := w.deps.Subscriptions.RetrieveByCustomer(ctx, customerID)
	if err != nil {
		return subscription.CustomerSubscriptionEntity{}, err
	}
	current, ok := subscription.Find(records, subscriptionID)
	if !ok {
		return subscription.CustomerSubscriptionEntity{}, domainErrors.NewDomainError(
			"subscription_not_found",
			"subscription "+subscriptionID+" not found",
			domainErrors.ErrSubscriptionNotFound,
		)
	}
	return current, nil
}

// run executes s. The error returned is the saga's, which unwraps to the failing step's error.
func (w *workflow) run(ctx context.Context, name, customerID string, s *saga.Saga) error {
	start := time.Now()
	logger := zerolog.Ctx(ctx).With().Str("workflow", name).Str("customer_id", customerID).Logger()
	ctx = logger.WithContext(ctx)

	if w.deps.Metrics != nil {
		done := w.deps.Metrics.TrackActiveCheckout()
		defer done()
	}

	err := s.Execute(ctx)
	status := s.State().String()
	if w.deps.Metrics != nil {
		w.deps.Metrics.ObserveWorkflow(name, status, time.Since(start))
	}
	if err == nil {
		logger.Info().Int("steps", s.Len()).Dur("duration", time.Since(start)).Msg("Checkout workflow committed")
		return nil
	}

	logger.Warn().Err(err).Msg("Checkout workflow unwound")
	w.recordCompensations(ctx, name, customerID, err)
	return err
}

func (w *workflow) recordCompensations(ctx context.Context, name, customerID string, err error) {
	if w.deps.Metrics != nil {
		var ee *saga.ExecutionError
		if errors.As(err, &ee) {
			for _, out := range ee.Report.Outcomes {
				w.deps.Metrics.ObserveCompensation(name, out.Step, out.Status.String())
			}
		}
	}

	for _, out := range saga.FailedCompensations(err) {
		incident := IntegrityIncident{
			Workflow:    name,
			CustomerID:  customerID,
			Step:        out.Step,
			Reason:      out.Reason.Error(),
			TriggeredBy: err.Error(),
			OccurredAt:  time.Now().UTC(),
		}
		if w.deps.Metrics != nil {
			w.deps.Metrics.IncIntegrityIncidents(name)
		}
		if w.deps.Integrity == nil {
			continue
		}
		// The checkout already failed; escalation must not outlive a cancelled request.
		if reportErr := w.deps.Integrity.ReportIntegrityIncident(context.WithoutCancel(ctx), incident); reportErr != nil {
			zerolog.Ctx(ctx).Error().Err(reportErr).
				Str("step", out.Step).
				Str("reason", incident.Reason).
				Msg("Failed to escalate integrity incident")
		}
	}
}
