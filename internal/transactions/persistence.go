package transactions

import (
	"context"
	"fmt"

	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/internal/domain/subscription"
	"github.com/cassiomorais/storefront/pkg/saga"
)

// RecordPurchase stores a purchase record; rollback deletes it.
type RecordPurchase struct {
	repo     subscription.PurchasesRepository
	purchase saga.Input[subscription.CustomerPurchaseEntity]
	stored   *subscription.CustomerPurchaseEntity
	status   Status
}

var _ saga.Producer[subscription.CustomerPurchaseEntity] = (*RecordPurchase)(nil)

func NewRecordPurchase(repo subscription.PurchasesRepository, purchase saga.Input[subscription.CustomerPurchaseEntity]) *RecordPurchase {
	return &RecordPurchase{repo: repo, purchase: purchase}
}

func (s *RecordPurchase) Name() string   { return RecordPurchaseStep }
func (s *RecordPurchase) Status() Status { return s.status }

func (s *RecordPurchase) Result() (subscription.CustomerPurchaseEntity, bool) {
	if s.stored == nil {
		return subscription.CustomerPurchaseEntity{}, false
	}
	return *s.stored, true
}

func (s *RecordPurchase) Execute(ctx context.Context) error {
	purchase, err := s.purchase.Resolve()
	if err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}
	stored, err := s.repo.Add(ctx, purchase)
	if err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}
	s.stored = &stored
	s.status = Succeeded
	return nil
}

func (s *RecordPurchase) Rollback(ctx context.Context) saga.Outcome {
	if s.stored == nil {
		return saga.Skipped(s.Name())
	}
	if err := s.repo.Delete(ctx, *s.stored); err != nil {
		compensationFailed(ctx, s.Name(), err).
			Str("customer_id", s.stored.CustomerID).
			Str("subscription_id", s.stored.SubscriptionID).
			Str("purchase_id", s.stored.ID.String()).
			Msg("Failed to delete purchase record")
		return saga.Failed(s.Name(), fmt.Errorf("delete purchase %s: %w", s.stored.ID, err))
	}
	s.stored = nil
	s.status = RolledBack
	return saga.Compensated(s.Name())
}

// RecordNewCustomerSubscription stores a new subscription record; rollback deletes it.
type RecordNewCustomerSubscription struct {
	repo   subscription.SubscriptionsRepository
	entity saga.Input[subscription.CustomerSubscriptionEntity]
	stored *subscription.CustomerSubscriptionEntity
	status Status
}

var _ saga.Producer[subscription.CustomerSubscriptionEntity] = (*RecordNewCustomerSubscription)(nil)

func NewRecordNewCustomerSubscription(repo subscription.SubscriptionsRepository, entity saga.Input[subscription.CustomerSubscriptionEntity]) *RecordNewCustomerSubscription {
	return &RecordNewCustomerSubscription{repo: repo, entity: entity}
}

func (s *RecordNewCustomerSubscription) Name() string   { return RecordNewCustomerSubscriptionStep }
func (s *RecordNewCustomerSubscription) Status() Status { return s.status }

func (s *RecordNewCustomerSubscription) Result() (subscription.CustomerSubscriptionEntity, bool) {
	if s.stored == nil {
		return subscription.CustomerSubscriptionEntity{}, false
	}
	return *s.stored, true
}

func (s *RecordNewCustomerSubscription) Execute(ctx context.Context) error {
	entity, err := s.entity.Resolve()
	if err != nil {
		return fmt.Errorf("record subscription: %w", err)
	}
	stored, err := s.repo.Add(ctx, entity)
	if err != nil {
		return fmt.Errorf("record subscription: %w", err)
	}
	s.stored = &stored
	s.status = Succeeded
	return nil
}

func (s *RecordNewCustomerSubscription) Rollback(ctx context.Context) saga.Outcome {
	if s.stored == nil {
		return saga.Skipped(s.Name())
	}
	if err := s.repo.Delete(ctx, *s.stored); err != nil {
		compensationFailed(ctx, s.Name(), err).
			Str("customer_id", s.stored.CustomerID).
			Str("subscription_id", s.stored.SubscriptionID).
			Msg("Failed to delete subscription record")
		return saga.Failed(s.Name(), fmt.Errorf("delete subscription record %s: %w", s.stored.SubscriptionID, err))
	}
	s.stored = nil
	s.status = RolledBack
	return saga.Compensated(s.Name())
}

// UpdatePersistedSubscription replaces a stored subscription record and keeps the record it
// replaced so rollback can restore it.
type UpdatePersistedSubscription struct {
	repo     subscription.SubscriptionsRepository
	entity   saga.Input[subscription.CustomerSubscriptionEntity]
	original *subscription.CustomerSubscriptionEntity
	updated  *subscription.CustomerSubscriptionEntity
	status   Status
}

var _ saga.Producer[subscription.CustomerSubscriptionEntity] = (*UpdatePersistedSubscription)(nil)

func NewUpdatePersistedSubscription(repo subscription.SubscriptionsRepository, entity saga.Input[subscription.CustomerSubscriptionEntity]) *UpdatePersistedSubscription {
	return &UpdatePersistedSubscription{repo: repo, entity: entity}
}

func (s *UpdatePersistedSubscription) Name() string   { return UpdatePersistedSubscriptionStep }
func (s *UpdatePersistedSubscription) Status() Status { return s.status }

func (s *UpdatePersistedSubscription) Result() (subscription.CustomerSubscriptionEntity, bool) {
	if s.updated == nil {
		return subscription.CustomerSubscriptionEntity{}, false
	}
	return *s.updated, true
}

// Execute re-reads the stored record first: it is the only source of the value rollback restores.
func (s *UpdatePersistedSubscription) Execute(ctx context.Context) error {
	target, err := s.entity.Resolve()
	if err != nil {
		return fmt.Errorf("update subscription record: %w", err)
	}
	records, err := s.repo.RetrieveByCustomer(ctx, target.CustomerID)
	if err != nil {
		return fmt.Errorf("update subscription record: %w", err)
	}
	current, ok := subscription.Find(records, target.SubscriptionID)
	if !ok {
		return domainErrors.NewDomainError(
			"subscription_not_found",
			fmt.Sprintf("subscription %s of customer %s is not persisted", target.SubscriptionID, target.CustomerID),
			domainErrors.ErrSubscriptionNotFound,
		)
	}
	updated, err := s.repo.Update(ctx, target)
	if err != nil {
		return fmt.Errorf("update subscription record: %w", err)
	}
	s.original = &current
	s.updated = &updated
	s.status = Succeeded
	return nil
}

func (s *UpdatePersistedSubscription) Rollback(ctx context.Context) saga.Outcome {
	if s.original == nil {
		return saga.Skipped(s.Name())
	}
	if _, err := s.repo.Update(ctx, *s.original); err != nil {
		compensationFailed(ctx, s.Name(), err).
			Str("customer_id", s.original.CustomerID).
			Str("subscription_id", s.original.SubscriptionID).
			Int("original_quantity", s.original.Quantity).
			Msg("Failed to restore subscription record")
		return saga.Failed(s.Name(), fmt.Errorf("restore subscription record %s: %w", s.original.SubscriptionID, err))
	}
	s.original = nil
	s.updated = nil
	s.status = RolledBack
	return saga.Compensated(s.Name())
}
