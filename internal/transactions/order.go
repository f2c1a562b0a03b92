package transactions

import (
	"context"
	"errors"
	"fmt"

	"github.com/cassiomorais/storefront/internal/domain/commerce"
	"github.com/cassiomorais/storefront/pkg/saga"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SuspendedNamePrefix marks subscriptions neutralized after their order was rolled back.
const SuspendedNamePrefix = "[rolled back] "

// PlaceOrder places an order with the commerce provider. Its result is the placed order.
type PlaceOrder struct {
	orders commerce.OrderService
	order  saga.Input[commerce.Order]
	placed *commerce.Order
	status Status

	// suspended holds the subscriptions a partial rollback already neutralized.
	suspended map[string]bool
}

var _ saga.Producer[*commerce.Order] = (*PlaceOrder)(nil)

func NewPlaceOrder(orders commerce.OrderService, order saga.Input[commerce.Order]) *PlaceOrder {
	return &PlaceOrder{orders: orders, order: order}
}

func (s *PlaceOrder) Name() string   { return PlaceOrderStep }
func (s *PlaceOrder) Status() Status { return s.status }

func (s *PlaceOrder) Result() (*commerce.Order, bool) { return s.placed, s.placed != nil }

func (s *PlaceOrder) Execute(ctx context.Context) error {
	order, err := s.order.Resolve()
	if err != nil {
		return fmt.Errorf("place order: %w", err)
	}
	placed, err := s.orders.CreateOrder(ctx, order)
	if err != nil {
		return commerce.ClassifyOrderError(err)
	}
	s.placed = placed
	s.status = Succeeded

	zerolog.Ctx(ctx).Debug().
		Str("order_id", placed.ID).
		Str("customer_id", placed.CustomerID).
		Int("line_items", len(placed.LineItems)).
		Msg("Order placed")
	return nil
}

// Rollback suspends and renames every subscription the order created. An order cannot be
// deleted upstream, so neutralizing its subscriptions is the compensation. Suspensions run
// concurrently and are all awaited. After a partial failure, a repeated Rollback only
// retries the subscriptions that are not suspended yet.
func (s *PlaceOrder) Rollback(ctx context.Context) saga.Outcome {
	if s.placed == nil {
		return saga.Skipped(s.Name())
	}
	order := s.placed

	errs := make([]error, len(order.LineItems))
	var g errgroup.Group
	for i, item := range order.LineItems {
		if item.SubscriptionID == "" || s.suspended[item.SubscriptionID] {
			continue
		}
		g.Go(func() error {
			if err := s.suspend(ctx, order, item); err != nil {
				compensationFailed(ctx, s.Name(), err).
					Str("customer_id", order.CustomerID).
					Str("order_id", order.ID).
					Str("subscription_id", item.SubscriptionID).
					Msg("Failed to suspend subscription of rolled back order")
				errs[i] = fmt.Errorf("suspend subscription %s: %w", item.SubscriptionID, err)
				return errs[i]
			}
			return nil
		})
	}
	_ = g.Wait()

	if s.suspended == nil {
		s.suspended = make(map[string]bool, len(order.LineItems))
	}
	for i, item := range order.LineItems {
		if item.SubscriptionID != "" && errs[i] == nil {
			s.suspended[item.SubscriptionID] = true
		}
	}

	if err := errors.Join(errs...); err != nil {
		compensationFailed(ctx, s.Name(), err).
			Str("customer_id", order.CustomerID).
			Str("order_id", order.ID).
			Msg("Order rollback left active subscriptions")
		return saga.Failed(s.Name(), err)
	}

	s.placed = nil
	s.suspended = nil
	s.status = RolledBack
	return saga.Compensated(s.Name())
}

func (s *PlaceOrder) suspend(ctx context.Context, order *commerce.Order, item commerce.OrderLineItem) error {
	sub, err := s.orders.GetSubscription(ctx, order.CustomerID, item.SubscriptionID)
	if err != nil {
		return err
	}
	suspended := sub.Clone()
	suspended.Status = commerce.StatusSuspended
	suspended.AutoRenew = false
	suspended.FriendlyName = SuspendedNamePrefix + sub.FriendlyName
	_, err = s.orders.PatchSubscription(ctx, order.CustomerID, suspended)
	return err
}
