package commerce

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/shopspring/decimal"
)

// OrderService is the commerce provider that places orders and owns subscriptions.
type OrderService interface {
	CreateOrder(ctx context.Context, order Order) (*Order, error)
	GetSubscription(ctx context.Context, customerID, subscriptionID string) (*Subscription, error)
	PatchSubscription(ctx context.Context, customerID string, sub *Subscription) (*Subscription, error)
}

// SubscriptionStatus is the provider-side state of a subscription.
type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusSuspended SubscriptionStatus = "suspended"
)

// BillingCycle determines how long one paid term of a subscription lasts.
type BillingCycle string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingAnnual  BillingCycle = "annual"
)

// Term returns the length of one billing period starting at from.
func (c BillingCycle) Term(from time.Time) time.Time {
	if c == BillingAnnual {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

// Subscription is a provider-side subscription.
type Subscription struct {
	ID                string
	CustomerID        string
	OfferID           string
	FriendlyName      string
	Quantity          int
	Status            SubscriptionStatus
	AutoRenew         bool
	BillingCycle      BillingCycle
	CommitmentEndDate time.Time
}

// Clone returns a copy that can be mutated without touching s.
func (s *Subscription) Clone() *Subscription {
	c := *s
	return &c
}

// OrderLineItem is one line of an order. SubscriptionID is assigned by the provider.
type OrderLineItem struct {
	LineNumber     int
	OfferID        string
	FriendlyName   string
	Quantity       int
	SubscriptionID string
}

// Order is an order sent to, or returned by, the commerce provider.
type Order struct {
	ID          string
	CustomerID  string
	ReferenceID string
	LineItems   []OrderLineItem
	CreatedAt   time.Time
}

// OfferLineItem is a catalog offer the customer checks out, with its price.
type OfferLineItem struct {
	OfferID      string
	FriendlyName string
	Quantity     int
	SeatPrice    decimal.Decimal
	BillingCycle BillingCycle
}

// Validate checks the line item can be ordered and charged.
func (o OfferLineItem) Validate() error {
	if o.OfferID == "" {
		return domainErrors.NewValidationError("offer_id", "cannot be empty")
	}
	if o.Quantity <= 0 {
		return domainErrors.NewValidationError("quantity", "must be greater than 0")
	}
	if !o.SeatPrice.IsPositive() {
		return domainErrors.NewValidationError("seat_price", "must be greater than 0")
	}
	return nil
}

// Total is the amount charged for the line item.
func (o OfferLineItem) Total() decimal.Decimal {
	return o.SeatPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// NewOrder builds an order for the given offers, numbering lines from zero.
func NewOrder(customerID, referenceID string, items []OfferLineItem) Order {
	lines := make([]OrderLineItem, 0, len(items))
	for i, item := range items {
		lines = append(lines, OrderLineItem{
			LineNumber:   i,
			OfferID:      item.OfferID,
			FriendlyName: item.FriendlyName,
			Quantity:     item.Quantity,
		})
	}
	return Order{
		CustomerID:  customerID,
		ReferenceID: referenceID,
		LineItems:   lines,
	}
}

// ProviderErrorKind classifies a commerce provider failure.
type ProviderErrorKind int

const (
	ProviderFailure ProviderErrorKind = iota
	ProviderBadInput
	ProviderAlreadyExists
	ProviderNotFound
)

// ProviderError is returned by OrderService implementations.
type ProviderError struct {
	Kind      ProviderErrorKind
	Operation string
	Message   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("commerce provider %s: %s", e.Operation, e.Message)
}

// ClassifyOrderError maps a failed order placement to a domain error.
// Bad input and already-exists are user-correctable, everything else is a downstream failure.
func ClassifyOrderError(err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case ProviderBadInput:
			return domainErrors.NewDomainError("invalid_order", pe.Message, errors.Join(domainErrors.ErrInvalidInput, err))
		case ProviderAlreadyExists:
			return domainErrors.NewDomainError("order_exists", pe.Message, errors.Join(domainErrors.ErrAlreadyExists, err))
		}
	}
	return domainErrors.Downstream("order service", err)
}

// ClassifySubscriptionError maps a failed subscription read or patch to a domain error.
func ClassifySubscriptionError(err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case ProviderNotFound:
			return domainErrors.NewDomainError("subscription_not_found", pe.Message, errors.Join(domainErrors.ErrSubscriptionNotFound, err))
		case ProviderBadInput:
			return domainErrors.NewDomainError("invalid_subscription_update", pe.Message, errors.Join(domainErrors.ErrInvalidInput, err))
		}
	}
	return domainErrors.Downstream("order service", err)
}
