package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/internal/domain/subscription"
	"github.com/jackc/pgx/v5"
)

// SubscriptionRepository implements subscription.SubscriptionsRepository using PostgreSQL.
type SubscriptionRepository struct {
	db DBTX
}

var _ subscription.SubscriptionsRepository = (*SubscriptionRepository)(nil)

func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `customer_id, subscription_id, offer_id, quantity, seat_price::text, expiry_date, created_at, updated_at`

func scanSubscription(s scanner) (subscription.CustomerSubscriptionEntity, error) {
	var (
		e     subscription.CustomerSubscriptionEntity
		price string
	)
	if err := s.Scan(&e.CustomerID, &e.SubscriptionID, &e.OfferID, &e.Quantity, &price, &e.ExpiryDate, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return e, err
	}
	p, err := numericToDecimal(price)
	if err != nil {
		return e, fmt.Errorf("parse seat price: %w", err)
	}
	e.SeatPrice = p
	return e, nil
}

func (r *SubscriptionRepository) Add(ctx context.Context, e subscription.CustomerSubscriptionEntity) (subscription.CustomerSubscriptionEntity, error) {
	stored, err := scanSubscription(r.db.QueryRow(ctx,
		`INSERT INTO customer_subscriptions (customer_id, subscription_id, offer_id, quantity, seat_price, expiry_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+subscriptionColumns,
		e.CustomerID, e.SubscriptionID, e.OfferID, e.Quantity, decimalToNumeric(e.SeatPrice), e.ExpiryDate, e.CreatedAt, e.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return stored, fmt.Errorf("insert subscription %s: %w", e.SubscriptionID, domainErrors.ErrAlreadyExists)
		}
		return stored, fmt.Errorf("insert subscription: %w", err)
	}
	return stored, nil
}

func (r *SubscriptionRepository) Update(ctx context.Context, e subscription.CustomerSubscriptionEntity) (subscription.CustomerSubscriptionEntity, error) {
	stored, err := scanSubscription(r.db.QueryRow(ctx,
		`UPDATE customer_subscriptions
		 SET offer_id = $3, quantity = $4, seat_price = $5, expiry_date = $6, updated_at = $7
		 WHERE customer_id = $1 AND subscription_id = $2
		 RETURNING `+subscriptionColumns,
		e.CustomerID, e.SubscriptionID, e.OfferID, e.Quantity, decimalToNumeric(e.SeatPrice), e.ExpiryDate, e.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stored, fmt.Errorf("update subscription %s: %w", e.SubscriptionID, domainErrors.ErrRecordNotFound)
		}
		return stored, fmt.Errorf("update subscription: %w", err)
	}
	return stored, nil
}

// Delete removes the record. Deleting a record that is already gone is not an error.
func (r *SubscriptionRepository) Delete(ctx context.Context, e subscription.CustomerSubscriptionEntity) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM customer_subscriptions WHERE customer_id = $1 AND subscription_id = $2`,
		e.CustomerID, e.SubscriptionID,
	)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) RetrieveByCustomer(ctx context.Context, customerID string) ([]subscription.CustomerSubscriptionEntity, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+subscriptionColumns+`
		 FROM customer_subscriptions WHERE customer_id = $1 ORDER BY created_at, subscription_id`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []subscription.CustomerSubscriptionEntity
	for rows.Next() {
		e, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
