package postgres

import (
	"context"
	"fmt"

	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/internal/domain/subscription"
)

// PurchaseRepository implements subscription.PurchasesRepository using PostgreSQL.
type PurchaseRepository struct {
	db DBTX
}

var _ subscription.PurchasesRepository = (*PurchaseRepository)(nil)

func NewPurchaseRepository(db DBTX) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

const purchaseColumns = `id, customer_id, subscription_id, purchase_type, seats_bought, seat_price::text, transaction_date`

func scanPurchase(s scanner) (subscription.CustomerPurchaseEntity, error) {
	var (
		p     subscription.CustomerPurchaseEntity
		kind  string
		price string
	)
	if err := s.Scan(&p.ID, &p.CustomerID, &p.SubscriptionID, &kind, &p.SeatsBought, &price, &p.TransactionDate); err != nil {
		return p, err
	}
	d, err := numericToDecimal(price)
	if err != nil {
		return p, fmt.Errorf("parse seat price: %w", err)
	}
	p.PurchaseType = subscription.PurchaseType(kind)
	p.SeatPrice = d
	return p, nil
}

func (r *PurchaseRepository) Add(ctx context.Context, p subscription.CustomerPurchaseEntity) (subscription.CustomerPurchaseEntity, error) {
	stored, err := scanPurchase(r.db.QueryRow(ctx,
		`INSERT INTO customer_purchases (id, customer_id, subscription_id, purchase_type, seats_bought, seat_price, transaction_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+purchaseColumns,
		p.ID, p.CustomerID, p.SubscriptionID, string(p.PurchaseType), p.SeatsBought, decimalToNumeric(p.SeatPrice), p.TransactionDate,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return stored, fmt.Errorf("insert purchase %s: %w", p.ID, domainErrors.ErrAlreadyExists)
		}
		return stored, fmt.Errorf("insert purchase: %w", err)
	}
	return stored, nil
}

func (r *PurchaseRepository) Delete(ctx context.Context, p subscription.CustomerPurchaseEntity) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM customer_purchases WHERE id = $1`, p.ID); err != nil {
		return fmt.Errorf("delete purchase: %w", err)
	}
	return nil
}

func (r *PurchaseRepository) RetrieveByCustomer(ctx context.Context, customerID string) ([]subscription.CustomerPurchaseEntity, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+purchaseColumns+`
		 FROM customer_purchases WHERE customer_id = $1 ORDER BY transaction_date DESC, id`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var out []subscription.CustomerPurchaseEntity
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
