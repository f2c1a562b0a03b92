package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/cassiomorais/storefront/internal/domain/commerce"
	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/internal/domain/subscription"
	"github.com/cassiomorais/storefront/pkg/saga"
)

// PersistNewlyPurchasedSubscriptions records, for every line of a placed order, the new
// subscription and its purchase. The records are written by an inner saga, so a failure
// part way removes the records already written. Its result is the receipt line items.
type PersistNewlyPurchasedSubscriptions struct {
	subscriptions subscription.SubscriptionsRepository
	purchases     subscription.PurchasesRepository
	order         saga.Input[*commerce.Order]
	offers        []commerce.OfferLineItem

	inner  *saga.Saga
	items  []subscription.TransactionResultLineItem
	status Status
}

var _ saga.Producer[[]subscription.TransactionResultLineItem] = (*PersistNewlyPurchasedSubscriptions)(nil)

func NewPersistNewlyPurchasedSubscriptions(
	subscriptions subscription.SubscriptionsRepository,
	purchases subscription.PurchasesRepository,
	order saga.Input[*commerce.Order],
	offers []commerce.OfferLineItem,
) *PersistNewlyPurchasedSubscriptions {
	return &PersistNewlyPurchasedSubscriptions{
		subscriptions: subscriptions,
		purchases:     purchases,
		order:         order,
		offers:        offers,
	}
}

func (s *PersistNewlyPurchasedSubscriptions) Name() string   { return PersistNewSubscriptionsStep }
func (s *PersistNewlyPurchasedSubscriptions) Status() Status { return s.status }

func (s *PersistNewlyPurchasedSubscriptions) Result() ([]subscription.TransactionResultLineItem, bool) {
	return s.items, s.items != nil
}

func (s *PersistNewlyPurchasedSubscriptions) Execute(ctx context.Context) error {
	order, err := s.order.Resolve()
	if err != nil {
		return fmt.Errorf("persist subscriptions: %w", err)
	}
	if order == nil {
		return domainErrors.NewDomainError("missing_order", "no placed order to persist", domainErrors.ErrPreconditionFailed)
	}

	placedAt := order.CreatedAt
	if placedAt.IsZero() {
		placedAt = time.Now().UTC()
	}

	steps := make([]saga.Step, 0, 2*len(order.LineItems))
	items := make([]subscription.TransactionResultLineItem, 0, len(order.LineItems))
	for _, line := range order.LineItems {
		offer, err := s.offerFor(line)
		if err != nil {
			return err
		}
		if line.SubscriptionID == "" {
			return domainErrors.NewDomainError(
				"missing_subscription",
				fmt.Sprintf("order %s line %d has no subscription", order.ID, line.LineNumber),
				domainErrors.ErrPreconditionFailed,
			)
		}

		entity, err := subscription.NewCustomerSubscription(
			order.CustomerID, line.SubscriptionID, line.OfferID, line.Quantity, offer.SeatPrice,
			offer.BillingCycle.Term(placedAt),
		)
		if err != nil {
			return err
		}
		purchase, err := subscription.NewCustomerPurchase(
			subscription.PurchaseNew, order.CustomerID, line.SubscriptionID, line.Quantity, offer.SeatPrice,
		)
		if err != nil {
			return err
		}
		item, err := subscription.NewTransactionResultLineItem(line.SubscriptionID, line.OfferID, line.Quantity, offer.SeatPrice)
		if err != nil {
			return err
		}

		steps = append(steps,
			NewRecordNewCustomerSubscription(s.subscriptions, saga.Value(entity)),
			NewRecordPurchase(s.purchases, saga.Value(purchase)),
		)
		items = append(items, item)
	}

	s.inner = saga.New(s.Name(), steps...)
	if err := s.inner.Execute(ctx); err != nil {
		return err
	}
	s.items = items
	s.status = Succeeded
	return nil
}

// Rollback delegates to the inner saga.
func (s *PersistNewlyPurchasedSubscriptions) Rollback(ctx context.Context) saga.Outcome {
	if s.inner == nil {
		return saga.Skipped(s.Name())
	}
	out := s.inner.Rollback(ctx)
	if !out.IsFailure() {
		s.items = nil
		s.status = RolledBack
	}
	return out
}

// offerFor matches a placed line to the offer it was ordered from, by line number first.
func (s *PersistNewlyPurchasedSubscriptions) offerFor(line commerce.OrderLineItem) (commerce.OfferLineItem, error) {
	if line.LineNumber >= 0 && line.LineNumber < len(s.offers) && s.offers[line.LineNumber].OfferID == line.OfferID {
		return s.offers[line.LineNumber], nil
	}
	for _, offer := range s.offers {
		if offer.OfferID == line.OfferID {
			return offer, nil
		}
	}
	return commerce.OfferLineItem{}, domainErrors.NewDomainError(
		"offer_not_found",
		fmt.Sprintf("no offer for ordered line %d (%s)", line.LineNumber, line.OfferID),
		domainErrors.ErrOfferNotFound,
	)
}
