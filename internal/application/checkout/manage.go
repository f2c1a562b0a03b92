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
)

// AddSeatsRequest buys extra seats on an existing subscription.
type AddSeatsRequest struct {
	CustomerID     string
	SubscriptionID string
	Seats          int
}

func (r AddSeatsRequest) Validate() error {
	if r.CustomerID == "" {
		return domainErrors.NewValidationError("customer_id", "cannot be empty")
	}
	if r.SubscriptionID == "" {
		return domainErrors.NewValidationError("subscription_id", "cannot be empty")
	}
	if r.Seats <= 0 {
		return domainErrors.NewValidationError("seats", "must be greater than 0")
	}
	return nil
}

// AddSeatsUseCase charges for extra seats, raises the provider-side quantity and then
// records the purchase and the new quantity locally.
type AddSeatsUseCase struct {
	workflow
}

func NewAddSeatsUseCase(deps Deps) *AddSeatsUseCase {
	return &AddSeatsUseCase{workflow{deps: deps}}
}

func (uc *AddSeatsUseCase) Execute(ctx context.Context, req AddSeatsRequest) (*Receipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	release, err := uc.lock(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	defer release(ctx)

	current, err := uc.loadPersisted(ctx, req.CustomerID, req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	purchase, err := subscription.NewCustomerPurchase(
		subscription.PurchaseAddSeats, req.CustomerID, req.SubscriptionID, req.Seats, current.SeatPrice,
	)
	if err != nil {
		return nil, err
	}
	item, err := subscription.NewTransactionResultLineItem(req.SubscriptionID, current.OfferID, req.Seats, current.SeatPrice)
	if err != nil {
		return nil, err
	}

	authorize := transactions.NewAuthorizePayment(uc.deps.Gateway, payment.AuthorizationRequest{
		CustomerID:  req.CustomerID,
		Amount:      purchase.Amount(),
		Currency:    uc.currency(),
		Description: fmt.Sprintf("%d extra seats on %s", req.Seats, req.SubscriptionID),
	})
	capture := transactions.NewCapturePayment(uc.deps.Gateway, saga.ResultOf[string](authorize))
	seats := transactions.NewPurchaseExtraSeats(uc.deps.Orders, req.CustomerID, req.SubscriptionID, req.Seats)
	record := transactions.NewRecordPurchase(uc.deps.Purchases, saga.Value(purchase))
	update := transactions.NewUpdatePersistedSubscription(uc.deps.Subscriptions,
		saga.Map[*commerce.Subscription](seats, func(sub *commerce.Subscription) (subscription.CustomerSubscriptionEntity, error) {
			return current.WithQuantity(sub.Quantity), nil
		}),
	)

	s := saga.New(WorkflowAddSeats, authorize, capture, seats, record, update)
	if err := uc.run(ctx, WorkflowAddSeats, req.CustomerID, s); err != nil {
		return nil, err
	}

	code, _ := authorize.Result()
	return newReceipt("", code, []subscription.TransactionResultLineItem{item}), nil
}

// RenewSubscriptionRequest renews a subscription for another billing term.
type RenewSubscriptionRequest struct {
	CustomerID     string
	SubscriptionID string
}

func (r RenewSubscriptionRequest) Validate() error {
	if r.CustomerID == "" {
		return domainErrors.NewValidationError("customer_id", "cannot be empty")
	}
	if r.SubscriptionID == "" {
		return domainErrors.NewValidationError("subscription_id", "cannot be empty")
	}
	return nil
}

// RenewSubscriptionUseCase charges one more term for every seat, extends the provider-side
// commitment and then records the renewal and the new expiry locally.
type RenewSubscriptionUseCase struct {
	workflow
}

func NewRenewSubscriptionUseCase(deps Deps) *RenewSubscriptionUseCase {
	return &RenewSubscriptionUseCase{workflow{deps: deps}}
}

func (uc *RenewSubscriptionUseCase) Execute(ctx context.Context, req RenewSubscriptionRequest) (*Receipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	release, err := uc.lock(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	defer release(ctx)

	current, err := uc.loadPersisted(ctx, req.CustomerID, req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	purchase, err := subscription.NewCustomerPurchase(
		subscription.PurchaseRenewal, req.CustomerID, req.SubscriptionID, current.Quantity, current.SeatPrice,
	)
	if err != nil {
		return nil, err
	}
	item, err := subscription.NewTransactionResultLineItem(req.SubscriptionID, current.OfferID, current.Quantity, current.SeatPrice)
	if err != nil {
		return nil, err
	}

	authorize := transactions.NewAuthorizePayment(uc.deps.Gateway, payment.AuthorizationRequest{
		CustomerID:  req.CustomerID,
		Amount:      purchase.Amount(),
		Currency:    uc.currency(),
		Description: "renewal of " + req.SubscriptionID,
	})
	capture := transactions.NewCapturePayment(uc.deps.Gateway, saga.ResultOf[string](authorize))
	renew := transactions.NewRenewSubscription(uc.deps.Orders, req.CustomerID, req.SubscriptionID)
	record := transactions.NewRecordPurchase(uc.deps.Purchases, saga.Value(purchase))
	update := transactions.NewUpdatePersistedSubscription(uc.deps.Subscriptions,
		saga.Map[*commerce.Subscription](renew, func(sub *commerce.Subscription) (subscription.CustomerSubscriptionEntity, error) {
			return current.WithExpiry(sub.CommitmentEndDate), nil
		}),
	)

	s := saga.New(WorkflowRenew, authorize, capture, renew, record, update)
	if err := uc.run(ctx, WorkflowRenew, req.CustomerID, s); err != nil {
		return nil, err
	}

	code, _ := authorize.Result()
	return newReceipt("", code, []subscription.TransactionResultLineItem{item}), nil
}
