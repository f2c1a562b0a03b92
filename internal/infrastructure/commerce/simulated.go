package commerce

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cassiomorais/storefront/internal/domain/commerce"
	"github.com/google/uuid"
)

// Simulated is an in-memory order service. Every placed line creates an active subscription.
type Simulated struct {
	latency     time.Duration
	failureRate float64
	catalog     map[string]commerce.BillingCycle

	mu            sync.RWMutex
	orders        map[string]commerce.Order
	references    map[string]string
	subscriptions map[string]*commerce.Subscription
}

type SimulatedOption func(*Simulated)

func WithLatency(d time.Duration) SimulatedOption {
	return func(s *Simulated) { s.latency = d }
}

func WithFailureRate(rate float64) SimulatedOption {
	return func(s *Simulated) { s.failureRate = rate }
}

// WithOffer registers the billing cycle of an offer. Unknown offers bill monthly.
func WithOffer(offerID string, cycle commerce.BillingCycle) SimulatedOption {
	return func(s *Simulated) { s.catalog[offerID] = cycle }
}

func NewSimulated(opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		latency:       20 * time.Millisecond,
		catalog:       make(map[string]commerce.BillingCycle),
		orders:        make(map[string]commerce.Order),
		references:    make(map[string]string),
		subscriptions: make(map[string]*commerce.Subscription),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ commerce.OrderService = (*Simulated)(nil)

func key(customerID, subscriptionID string) string { return customerID + "/" + subscriptionID }

func (s *Simulated) CreateOrder(ctx context.Context, order commerce.Order) (*commerce.Order, error) {
	if err := s.roundTrip(ctx, "create order"); err != nil {
		return nil, err
	}
	if len(order.LineItems) == 0 {
		return nil, &commerce.ProviderError{Kind: commerce.ProviderBadInput, Operation: "create order", Message: "order has no line items"}
	}
	for _, line := range order.LineItems {
		if line.Quantity <= 0 || line.OfferID == "" {
			return nil, &commerce.ProviderError{
				Kind:      commerce.ProviderBadInput,
				Operation: "create order",
				Message:   fmt.Sprintf("line %d is not orderable", line.LineNumber),
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ReferenceID != "" {
		if existing, ok := s.references[order.ReferenceID]; ok {
			return nil, &commerce.ProviderError{
				Kind:      commerce.ProviderAlreadyExists,
				Operation: "create order",
				Message:   "reference " + order.ReferenceID + " already placed as " + existing,
			}
		}
	}

	placed := order
	placed.ID = uuid.NewString()
	placed.CreatedAt = time.Now().UTC()
	placed.LineItems = make([]commerce.OrderLineItem, len(order.LineItems))
	for i, line := range order.LineItems {
		line.SubscriptionID = uuid.NewString()
		placed.LineItems[i] = line

		cycle, ok := s.catalog[line.OfferID]
		if !ok {
			cycle = commerce.BillingMonthly
		}
		s.subscriptions[key(order.CustomerID, line.SubscriptionID)] = &commerce.Subscription{
			ID:                line.SubscriptionID,
			CustomerID:        order.CustomerID,
			OfferID:           line.OfferID,
			FriendlyName:      line.FriendlyName,
			Quantity:          line.Quantity,
			Status:            commerce.StatusActive,
			AutoRenew:         true,
			BillingCycle:      cycle,
			CommitmentEndDate: cycle.Term(placed.CreatedAt),
		}
	}
	s.orders[placed.ID] = placed
	if order.ReferenceID != "" {
		s.references[order.ReferenceID] = placed.ID
	}
	return &placed, nil
}

func (s *Simulated) GetSubscription(ctx context.Context, customerID, subscriptionID string) (*commerce.Subscription, error) {
	if err := s.roundTrip(ctx, "get subscription"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[key(customerID, subscriptionID)]
	if !ok {
		return nil, &commerce.ProviderError{Kind: commerce.ProviderNotFound, Operation: "get subscription", Message: "subscription " + subscriptionID + " not found"}
	}
	return sub.Clone(), nil
}

func (s *Simulated) PatchSubscription(ctx context.Context, customerID string, sub *commerce.Subscription) (*commerce.Subscription, error) {
	if err := s.roundTrip(ctx, "patch subscription"); err != nil {
		return nil, err
	}
	if sub.Quantity <= 0 {
		return nil, &commerce.ProviderError{Kind: commerce.ProviderBadInput, Operation: "patch subscription", Message: "quantity must be positive"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(customerID, sub.ID)
	if _, ok := s.subscriptions[k]; !ok {
		return nil, &commerce.ProviderError{Kind: commerce.ProviderNotFound, Operation: "patch subscription", Message: "subscription " + sub.ID + " not found"}
	}
	stored := sub.Clone()
	stored.CustomerID = customerID
	s.subscriptions[k] = stored
	return stored.Clone(), nil
}

func (s *Simulated) roundTrip(ctx context.Context, operation string) error {
	select {
	case <-time.After(s.latency):
	case <-ctx.Done():
		return ctx.Err()
	}
	if rand.Float64() < s.failureRate {
		return &commerce.ProviderError{Kind: commerce.ProviderFailure, Operation: operation, Message: "service unavailable"}
	}
	return nil
}
