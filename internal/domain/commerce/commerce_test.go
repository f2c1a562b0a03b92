package commerce_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cassiomorais/storefront/internal/domain/commerce"
	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferLineItem_Validate(t *testing.T) {
	tests := []struct {
		name  string
		item  commerce.OfferLineItem
		field string
	}{
		{"valid", commerce.OfferLineItem{OfferID: "o1", Quantity: 3, SeatPrice: decimal.NewFromInt(10)}, ""},
		{"missing offer", commerce.OfferLineItem{Quantity: 3, SeatPrice: decimal.NewFromInt(10)}, "offer_id"},
		{"zero quantity", commerce.OfferLineItem{OfferID: "o1", SeatPrice: decimal.NewFromInt(10)}, "quantity"},
		{"zero price", commerce.OfferLineItem{OfferID: "o1", Quantity: 1}, "seat_price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *domainErrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestOfferLineItem_Total(t *testing.T) {
	item := commerce.OfferLineItem{OfferID: "o1", Quantity: 3, SeatPrice: decimal.RequireFromString("12.50")}
	assert.True(t, decimal.RequireFromString("37.50").Equal(item.Total()))
}

func TestNewOrder_NumbersLines(t *testing.T) {
	order := commerce.NewOrder("cust-1", "ref-1", []commerce.OfferLineItem{
		{OfferID: "a", Quantity: 1},
		{OfferID: "b", Quantity: 2},
	})
	require.Len(t, order.LineItems, 2)
	assert.Equal(t, 0, order.LineItems[0].LineNumber)
	assert.Equal(t, "b", order.LineItems[1].OfferID)
	assert.Equal(t, 2, order.LineItems[1].Quantity)
	assert.Equal(t, "cust-1", order.CustomerID)
}

func TestBillingCycle_Term(t *testing.T) {
	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), commerce.BillingMonthly.Term(start))
	assert.Equal(t, time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC), commerce.BillingAnnual.Term(start))
}

func TestSubscription_CloneIsIndependent(t *testing.T) {
	sub := &commerce.Subscription{ID: "s1", Quantity: 5}
	c := sub.Clone()
	c.Quantity = 8
	assert.Equal(t, 5, sub.Quantity)
}

func TestClassifyOrderError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   error
	}{
		{"bad input", &commerce.ProviderError{Kind: commerce.ProviderBadInput, Operation: "create order", Message: "bad offer"}, domainErrors.ErrInvalidInput},
		{"already exists", &commerce.ProviderError{Kind: commerce.ProviderAlreadyExists, Operation: "create order", Message: "dup"}, domainErrors.ErrAlreadyExists},
		{"not found is downstream", &commerce.ProviderError{Kind: commerce.ProviderNotFound, Operation: "create order", Message: "no customer"}, domainErrors.ErrDownstreamService},
		{"generic failure", &commerce.ProviderError{Kind: commerce.ProviderFailure, Operation: "create order", Message: "503"}, domainErrors.ErrDownstreamService},
		{"timeout", fmt.Errorf("create order: %w", context.DeadlineExceeded), domainErrors.ErrDownstreamService},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := commerce.ClassifyOrderError(tt.err)
			assert.ErrorIs(t, got, tt.is)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifySubscriptionError(t *testing.T) {
	notFound := &commerce.ProviderError{Kind: commerce.ProviderNotFound, Operation: "get subscription", Message: "missing"}
	assert.ErrorIs(t, commerce.ClassifySubscriptionError(notFound), domainErrors.ErrSubscriptionNotFound)
	assert.ErrorIs(t, commerce.ClassifySubscriptionError(errors.New("boom")), domainErrors.ErrDownstreamService)
}
