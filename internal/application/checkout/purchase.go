package checkout

import (
	"context"
	"fmt"

	"github.com/cassiomorais/storefront/internal/domain/commerce"
	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/internal/domain/payment"
	"github.com/cassiomorais/storefront/internal/domain/subscription"
	"github.com/cassiomorais/storefront/internal/transactions"
	"github.com/cassiomorais/storefront/pkg/saga"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseRequest is a checkout of one or more catalog offers.
type PurchaseRequest struct {
	CustomerID string
	Items      []commerce.OfferLineItem
}

// Validate checks the request before any collaborator is called.
func (r PurchaseRequest) Validate() error {
	if r.CustomerID == "" {
		return domainErrors.NewValidationError("customer_id", "cannot be empty")
	}
	if len(r.Items) == 0 {
		return domainErrors.NewValidationError("items", "at least one offer is required")
	}
	for i, item := range r.Items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func (r PurchaseRequest) total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.Total())
	}
	return total
}

// PurchaseUseCase buys new subscriptions: authorize and capture the total, place the order,
// then persist a subscription and a purchase record per ordered line.
type PurchaseUseCase struct {
	workflow
}

func NewPurchaseUseCase(deps Deps) *PurchaseUseCase {
	return &PurchaseUseCase{workflow{deps: deps}}
}

func (uc *PurchaseUseCase) Execute(ctx context.Context, req PurchaseRequest) (*Receipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	release, err := uc.lock(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	defer release(ctx)

	authorize := transactions.NewAuthorizePayment(uc.deps.Gateway, payment.AuthorizationRequest{
		CustomerID:  req.CustomerID,
		Amount:      req.total(),
		Currency:    uc.currency(),
		Description: fmt.Sprintf("purchase of %d offers", len(req.Items)),
	})
	capture := transactions.NewCapturePayment(uc.deps.Gateway, saga.ResultOf[string](authorize))
	place := transactions.NewPlaceOrder(uc.deps.Orders, saga.Value(commerce.NewOrder(req.CustomerID, uuid.NewString(), req.Items)))
	persist := transactions.NewPersistNewlyPurchasedSubscriptions(
		uc.deps.Subscriptions,
		uc.deps.Purchases,
		saga.ResultOf[*commerce.Order](place),
		req.Items,
	)

	s := saga.New(WorkflowPurchase, authorize, capture, place, persist)
	if err := uc.run(ctx, WorkflowPurchase, req.CustomerID, s); err != nil {
		return nil, err
	}

	code, _ := authorize.Result()
	order, _ := place.Result()
	items, _ := persist.Result()
	return newReceipt(order.ID, code, items), nil
}

// ListSubscriptionsUseCase returns the persisted subscriptions of a customer.
type ListSubscriptionsUseCase struct {
	subscriptions subscription.SubscriptionsRepository
}

func NewListSubscriptionsUseCase(subscriptions subscription.SubscriptionsRepository) *ListSubscriptionsUseCase {
	return &ListSubscriptionsUseCase{subscriptions: subscriptions}
}

func (uc *ListSubscriptionsUseCase) Execute(ctx context.Context, customerID string) ([]subscription.CustomerSubscriptionEntity, error) {
	if customerID == "" {
		return nil, domainErrors.NewValidationError("customer_id", "cannot be empty")
	}
	return uc.subscriptions.RetrieveByCustomer(ctx, customerID)
}

// ListPurchasesUseCase returns the purchase history of a customer, newest first.
type ListPurchasesUseCase struct {
	purchases subscription.PurchasesRepository
}

func NewListPurchasesUseCase(purchases subscription.PurchasesRepository) *ListPurchasesUseCase {
	return &ListPurchasesUseCase{purchases: purchases}
}

func (uc *ListPurchasesUseCase) Execute(ctx context.Context, customerID string) ([]subscription.CustomerPurchaseEntity, error) {
	if customerID == "" {
		return nil, domainErrors.NewValidationError("customer_id", "cannot be empty")
	}
	return uc.purchases.RetrieveByCustomer(ctx, customerID)
}
