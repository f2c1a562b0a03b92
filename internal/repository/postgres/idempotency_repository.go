package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// IdempotencyEntry is a stored checkout response, replayed for a repeated Idempotency-Key.
type IdempotencyEntry struct {
	Key            string
	CustomerID     string
	ResponseBody   string
	ResponseStatus int
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

type IdempotencyRepository struct {
	db DBTX
}

func NewIdempotencyRepository(db DBTX) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Get returns the unexpired entry stored for a customer's key, or nil.
func (r *IdempotencyRepository) Get(ctx context.Context, customerID, key string) (*IdempotencyEntry, error) {
	e := &IdempotencyEntry{}
	err := r.db.QueryRow(ctx,
		`SELECT key, customer_id, response_body, response_status, created_at, expires_at
		 FROM idempotency_keys WHERE customer_id = $1 AND key = $2 AND expires_at > NOW()`, customerID, key,
	).Scan(&e.Key, &e.CustomerID, &e.ResponseBody, &e.ResponseStatus, &e.CreatedAt, &e.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	return e, nil
}

func (r *IdempotencyRepository) Set(ctx context.Context, entry *IdempotencyEntry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO idempotency_keys (key, customer_id, response_body, response_status, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (customer_id, key) DO UPDATE SET response_body = EXCLUDED.response_body, response_status = EXCLUDED.response_status`,
		entry.Key, entry.CustomerID, entry.ResponseBody, entry.ResponseStatus, entry.CreatedAt, entry.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("set idempotency key: %w", err)
	}
	return nil
}

func (r *IdempotencyRepository) Cleanup(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
