package subscription

import (
	"time"

	"github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerSubscriptionEntity is the persisted record of a subscription a customer bought.
// Values are never mutated in place; the With* methods return updated copies.
type CustomerSubscriptionEntity struct {
	CustomerID     string
	SubscriptionID string
	OfferID        string
	Quantity       int
	SeatPrice      decimal.Decimal
	ExpiryDate     time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewCustomerSubscription creates a subscription record.
func NewCustomerSubscription(
	customerID, subscriptionID, offerID string,
	quantity int,
	seatPrice decimal.Decimal,
	expiry time.Time,
) (CustomerSubscriptionEntity, error) {
	if customerID == "" {
		return CustomerSubscriptionEntity{}, errors.NewValidationError("customer_id", "cannot be empty")
	}
	if subscriptionID == "" {
		return CustomerSubscriptionEntity{}, errors.NewValidationError("subscription_id", "cannot be empty")
	}
	if offerID == "" {
		return CustomerSubscriptionEntity{}, errors.NewValidationError("offer_id", "cannot be empty")
	}
	if quantity <= 0 {
		return CustomerSubscriptionEntity{}, errors.NewValidationError("quantity", "must be greater than 0")
	}
	if seatPrice.IsNegative() {
		return CustomerSubscriptionEntity{}, errors.NewValidationError("seat_price", "cannot be negative")
	}

	now := time.Now().UTC()
	return CustomerSubscriptionEntity{
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
		OfferID:        offerID,
		Quantity:       quantity,
		SeatPrice:      seatPrice,
		ExpiryDate:     expiry,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// WithQuantity returns a copy with a new seat count.
func (e CustomerSubscriptionEntity) WithQuantity(quantity int) CustomerSubscriptionEntity {
	e.Quantity = quantity
	e.UpdatedAt = time.Now().UTC()
	return e
}

// WithExpiry returns a copy with a new expiry date.
func (e CustomerSubscriptionEntity) WithExpiry(expiry time.Time) CustomerSubscriptionEntity {
	e.ExpiryDate = expiry
	e.UpdatedAt = time.Now().UTC()
	return e
}

// PurchaseType is the kind of purchase a CustomerPurchaseEntity records.
type PurchaseType string

const (
	PurchaseNew      PurchaseType = "new_purchase"
	PurchaseAddSeats PurchaseType = "add_seats"
	PurchaseRenewal  PurchaseType = "renewal"
)

// CustomerPurchaseEntity records one charge against a subscription.
type CustomerPurchaseEntity struct {
	ID              uuid.UUID
	CustomerID      string
	SubscriptionID  string
	PurchaseType    PurchaseType
	SeatsBought     int
	SeatPrice       decimal.Decimal
	TransactionDate time.Time
}

// NewCustomerPurchase creates a purchase record with a fresh id.
func NewCustomerPurchase(
	purchaseType PurchaseType,
	customerID, subscriptionID string,
	seatsBought int,
	seatPrice decimal.Decimal,
) (CustomerPurchaseEntity, error) {
	if customerID == "" {
		return CustomerPurchaseEntity{}, errors.NewValidationError("customer_id", "cannot be empty")
	}
	if subscriptionID == "" {
		return CustomerPurchaseEntity{}, errors.NewValidationError("subscription_id", "cannot be empty")
	}
	if seatsBought <= 0 {
		return CustomerPurchaseEntity{}, errors.NewValidationError("seats_bought", "must be greater than 0")
	}
	if seatPrice.IsNegative() {
		return CustomerPurchaseEntity{}, errors.NewValidationError("seat_price", "cannot be negative")
	}
	switch purchaseType {
	case PurchaseNew, PurchaseAddSeats, PurchaseRenewal:
	default:
		return CustomerPurchaseEntity{}, errors.NewValidationError("purchase_type", "unknown purchase type "+string(purchaseType))
	}

	return CustomerPurchaseEntity{
		ID:              uuid.New(),
		CustomerID:      customerID,
		SubscriptionID:  subscriptionID,
		PurchaseType:    purchaseType,
		SeatsBought:     seatsBought,
		SeatPrice:       seatPrice,
		TransactionDate: time.Now().UTC(),
	}, nil
}

// Amount is what the purchase charged.
func (p CustomerPurchaseEntity) Amount() decimal.Decimal {
	return p.SeatPrice.Mul(decimal.NewFromInt(int64(p.SeatsBought)))
}

// TransactionResultLineItem summarizes one charged line for receipts.
type TransactionResultLineItem struct {
	SubscriptionID string
	OfferID        string
	Quantity       int
	SeatPrice      decimal.Decimal
	AmountCharged  decimal.Decimal
}

// NewTransactionResultLineItem validates quantity and price and computes the charged amount.
func NewTransactionResultLineItem(subscriptionID, offerID string, quantity int, seatPrice decimal.Decimal) (TransactionResultLineItem, error) {
	if subscriptionID == "" {
		return TransactionResultLineItem{}, errors.NewValidationError("subscription_id", "cannot be empty")
	}
	if quantity <= 0 {
		return TransactionResultLineItem{}, errors.NewValidationError("quantity", "must be greater than 0")
	}
	if !seatPrice.IsPositive() {
		return TransactionResultLineItem{}, errors.NewValidationError("seat_price", "must be greater than 0")
	}
	return TransactionResultLineItem{
		SubscriptionID: subscriptionID,
		OfferID:        offerID,
		Quantity:       quantity,
		SeatPrice:      seatPrice,
		AmountCharged:  seatPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}, nil
}
