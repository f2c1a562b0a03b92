package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/cassiomorais/storefront/internal/domain/commerce"
	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/pkg/saga"
)

// subscriptionPatch reads a provider subscription, mutates it and patches it back,
// keeping the pre-mutation snapshot so rollback can re-apply it without a re-read.
type subscriptionPatch struct {
	name           string
	orders         commerce.OrderService
	customerID     string
	subscriptionID string
	mutate         func(sub *commerce.Subscription)

	snapshot *commerce.Subscription
	updated  *commerce.Subscription
	status   Status
}

func (s *subscriptionPatch) Name() string   { return s.name }
func (s *subscriptionPatch) Status() Status { return s.status }

func (s *subscriptionPatch) Result() (*commerce.Subscription, bool) {
	return s.updated, s.updated != nil
}

func (s *subscriptionPatch) execute(ctx context.Context) error {
	current, err := s.orders.GetSubscription(ctx, s.customerID, s.subscriptionID)
	if err != nil {
		return commerce.ClassifySubscriptionError(err)
	}
	snapshot := current.Clone()
	changed := current.Clone()
	s.mutate(changed)

	updated, err := s.orders.PatchSubscription(ctx, s.customerID, changed)
	if err != nil {
		return commerce.ClassifySubscriptionError(err)
	}
	s.snapshot = snapshot
	s.updated = updated
	s.status = Succeeded
	return nil
}

func (s *subscriptionPatch) Rollback(ctx context.Context) saga.Outcome {
	if s.snapshot == nil {
		return saga.Skipped(s.name)
	}
	if _, err := s.orders.PatchSubscription(ctx, s.customerID, s.snapshot.Clone()); err != nil {
		compensationFailed(ctx, s.name, err).
			Str("customer_id", s.customerID).
			Str("subscription_id", s.subscriptionID).
			Int("snapshot_quantity", s.snapshot.Quantity).
			Str("snapshot_status", string(s.snapshot.Status)).
			Msg("Failed to restore subscription snapshot")
		return saga.Failed(s.name, fmt.Errorf("restore subscription %s: %w", s.subscriptionID, err))
	}
	s.snapshot = nil
	s.updated = nil
	s.status = RolledBack
	return saga.Compensated(s.name)
}

// PurchaseExtraSeats adds seats to a provider subscription. Its result is the patched subscription.
type PurchaseExtraSeats struct {
	subscriptionPatch
	seats int
}

var _ saga.Producer[*commerce.Subscription] = (*PurchaseExtraSeats)(nil)

func NewPurchaseExtraSeats(orders commerce.OrderService, customerID, subscriptionID string, seats int) *PurchaseExtraSeats {
	return &PurchaseExtraSeats{
		subscriptionPatch: subscriptionPatch{
			name:           PurchaseExtraSeatsStep,
			orders:         orders,
			customerID:     customerID,
			subscriptionID: subscriptionID,
			mutate:         func(sub *commerce.Subscription) { sub.Quantity += seats },
		},
		seats: seats,
	}
}

func (s *PurchaseExtraSeats) Execute(ctx context.Context) error {
	if s.seats <= 0 {
		return domainErrors.NewDomainError(
			"invalid_seat_count",
			fmt.Sprintf("seats to purchase must be positive, got %d", s.seats),
			domainErrors.ErrPreconditionFailed,
		)
	}
	return s.execute(ctx)
}

// RenewSubscription reactivates a provider subscription for one more billing term.
type RenewSubscription struct {
	subscriptionPatch
}

var _ saga.Producer[*commerce.Subscription] = (*RenewSubscription)(nil)

func NewRenewSubscription(orders commerce.OrderService, customerID, subscriptionID string) *RenewSubscription {
	return &RenewSubscription{
		subscriptionPatch: subscriptionPatch{
			name:           RenewSubscriptionStep,
			orders:         orders,
			customerID:     customerID,
			subscriptionID: subscriptionID,
			mutate:         renew,
		},
	}
}

func (s *RenewSubscription) Execute(ctx context.Context) error {
	return s.execute(ctx)
}

func renew(sub *commerce.Subscription) {
	from := time.Now().UTC()
	if sub.CommitmentEndDate.After(from) {
		from = sub.CommitmentEndDate
	}
	sub.Status = commerce.StatusActive
	sub.AutoRenew = true
	sub.CommitmentEndDate = sub.BillingCycle.Term(from)
}
