package subscription

import (
	"context"
)

// SubscriptionsRepository persists customer subscription records
type SubscriptionsRepository interface {
	// Add inserts a new subscription record
	Add(ctx context.Context, e CustomerSubscriptionEntity) (CustomerSubscriptionEntity, error)

	// Update replaces the stored record with the same customer and subscription id
	Update(ctx context.Context, e CustomerSubscriptionEntity) (CustomerSubscriptionEntity, error)

	// Delete removes a subscription record
	Delete(ctx context.Context, e CustomerSubscriptionEntity) error

	// RetrieveByCustomer lists the subscription records of a customer
	RetrieveByCustomer(ctx context.Context, customerID string) ([]CustomerSubscriptionEntity, error)
}

// PurchasesRepository persists customer purchase records
type PurchasesRepository interface {
	// Add inserts a purchase record
	Add(ctx context.Context, p CustomerPurchaseEntity) (CustomerPurchaseEntity, error)

	// Delete removes a purchase record
	Delete(ctx context.Context, p CustomerPurchaseEntity) error

	// RetrieveByCustomer lists the purchases of a customer, newest first
	RetrieveByCustomer(ctx context.Context, customerID string) ([]CustomerPurchaseEntity, error)
}

// Find returns the record for subscriptionID in records.
func Find(records []CustomerSubscriptionEntity, subscriptionID string) (CustomerSubscriptionEntity, bool) {
	for _, r := range records {
		if r.SubscriptionID == subscriptionID {
			return r, true
		}
	}
	return CustomerSubscriptionEntity{}, false
}
