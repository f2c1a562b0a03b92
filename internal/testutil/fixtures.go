package testutil

import (
	"time"

	"github.com/cassiomorais/storefront/internal/domain/commerce"
	"github.com/cassiomorais/storefront/internal/domain/subscription"
	"github.com/shopspring/decimal"
)

const TestCustomerID = "customer-1"

func NewTestOffer(offerID string, quantity int, seatPrice string) commerce.OfferLineItem {
	return commerce.OfferLineItem{
		OfferID:      offerID,
		FriendlyName: "Offer " + offerID,
		Quantity:     quantity,
		SeatPrice:    decimal.RequireFromString(seatPrice),
		BillingCycle: commerce.BillingMonthly,
	}
}

func NewTestSubscription(customerID, subscriptionID, offerID string, quantity int) *commerce.Subscription {
	return &commerce.Subscription{
		ID:                subscriptionID,
		CustomerID:        customerID,
		OfferID:           offerID,
		FriendlyName:      "Subscription " + subscriptionID,
		Quantity:          quantity,
		Status:            commerce.StatusActive,
		AutoRenew:         true,
		BillingCycle:      commerce.BillingMonthly,
		CommitmentEndDate: time.Now().UTC().AddDate(0, 0, 10),
	}
}

func NewTestSubscriptionEntity(customerID, subscriptionID, offerID string, quantity int, seatPrice string) subscription.CustomerSubscriptionEntity {
	now := time.Now().UTC()
	return subscription.CustomerSubscriptionEntity{
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
		OfferID:        offerID,
		Quantity:       quantity,
		SeatPrice:      decimal.RequireFromString(seatPrice),
		ExpiryDate:     now.AddDate(0, 0, 10),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// SeedSubscription stores the same subscription provider-side and locally.
func SeedSubscription(orders *MockOrderService, repo *MockSubscriptionsRepository, customerID, subscriptionID string, quantity int, seatPrice string) {
	orders.AddSubscription(NewTestSubscription(customerID, subscriptionID, "offer-"+subscriptionID, quantity))
	repo.Seed(NewTestSubscriptionEntity(customerID, subscriptionID, "offer-"+subscriptionID, quantity, seatPrice))
}
