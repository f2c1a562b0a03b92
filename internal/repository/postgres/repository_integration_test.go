//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/internal/domain/subscription"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("storefront"),
		tcpostgres.WithUsername("storefront"),
		tcpostgres.WithPassword("storefront"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migrate.New("file://migrations", dsn)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("migrate up: %v", err)
	}
	_, _ = m.Close()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestSubscriptionRepository_Integration(t *testing.T) {
	pool := setupDatabase(t)
	repo := NewSubscriptionRepository(pool)
	ctx := context.Background()

	expiry := time.Now().UTC().Add(30 * 24 * time.Hour).Truncate(time.Microsecond)
	e, err := subscription.NewCustomerSubscription("customer-1", "sub-1", "offer-1", 5, decimal.RequireFromString("12.25"), expiry)
	require.NoError(t, err)

	stored, err := repo.Add(ctx, e)
	require.NoError(t, err)
	assert.True(t, stored.SeatPrice.Equal(decimal.RequireFromString("12.25")))
	assert.True(t, stored.ExpiryDate.Equal(expiry))

	_, err = repo.Add(ctx, e)
	assert.ErrorIs(t, err, domainErrors.ErrAlreadyExists)

	updated, err := repo.Update(ctx, stored.WithQuantity(8))
	require.NoError(t, err)
	assert.Equal(t, 8, updated.Quantity)

	missing := e
	missing.SubscriptionID = "sub-missing"
	_, err = repo.Update(ctx, missing)
	assert.ErrorIs(t, err, domainErrors.ErrRecordNotFound)

	list, err := repo.RetrieveByCustomer(ctx, "customer-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 8, list[0].Quantity)

	require.NoError(t, repo.Delete(ctx, stored))
	require.NoError(t, repo.Delete(ctx, stored))
	list, err = repo.RetrieveByCustomer(ctx, "customer-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPurchaseRepository_Integration(t *testing.T) {
	pool := setupDatabase(t)
	repo := NewPurchaseRepository(pool)
	ctx := context.Background()

	first, err := subscription.NewCustomerPurchase(subscription.PurchaseNew, "customer-1", "sub-1", 5, decimal.RequireFromString("10"))
	require.NoError(t, err)
	second, err := subscription.NewCustomerPurchase(subscription.PurchaseAddSeats, "customer-1", "sub-1", 3, decimal.RequireFromString("10"))
	require.NoError(t, err)
	second.TransactionDate = first.TransactionDate.Add(time.Minute)

	_, err = repo.Add(ctx, first)
	require.NoError(t, err)
	_, err = repo.Add(ctx, second)
	require.NoError(t, err)

	list, err := repo.RetrieveByCustomer(ctx, "customer-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, subscription.PurchaseAddSeats, list[0].PurchaseType)

	require.NoError(t, repo.Delete(ctx, second))
	list, err = repo.RetrieveByCustomer(ctx, "customer-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
}

func TestIdempotencyRepository_Integration(t *testing.T) {
	pool := setupDatabase(t)
	repo := NewIdempotencyRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Set(ctx, &IdempotencyEntry{
		Key: "key-1", CustomerID: "customer-1", ResponseBody: `{"order_id":"o-1"}`, ResponseStatus: 201,
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, repo.Set(ctx, &IdempotencyEntry{
		Key: "key-old", CustomerID: "customer-1", ResponseBody: `{}`, ResponseStatus: 201,
		CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))

	got, err := repo.Get(ctx, "customer-1", "key-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 201, got.ResponseStatus)

	other, err := repo.Get(ctx, "customer-2", "key-1")
	require.NoError(t, err)
	assert.Nil(t, other)

	removed, err := repo.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
