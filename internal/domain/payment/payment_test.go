package payment_test

import (
	"testing"

	"github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/internal/domain/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAuthorizationRequest_Validate(t *testing.T) {
	valid := payment.AuthorizationRequest{CustomerID: "cust-1", Amount: decimal.RequireFromString("25.50"), Currency: "USD"}

	tests := []struct {
		name   string
		mutate func(r *payment.AuthorizationRequest)
		field  string
	}{
		{"valid", func(r *payment.AuthorizationRequest) {}, ""},
		{"missing customer", func(r *payment.AuthorizationRequest) { r.CustomerID = "" }, "customer_id"},
		{"zero amount", func(r *payment.AuthorizationRequest) { r.Amount = decimal.Zero }, "amount"},
		{"negative amount", func(r *payment.AuthorizationRequest) { r.Amount = decimal.NewFromInt(-1) }, "amount"},
		{"empty currency", func(r *payment.AuthorizationRequest) { r.Currency = "" }, "currency"},
		{"bad currency length", func(r *payment.AuthorizationRequest) { r.Currency = "US" }, "currency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			err := r.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *errors.ValidationError
			if assert.ErrorAs(t, err, &ve) {
				assert.Equal(t, tt.field, ve.Field)
			}
		})
	}
}

func TestAuthorizationRequest_String(t *testing.T) {
	r := payment.AuthorizationRequest{Amount: decimal.RequireFromString("100.5"), Currency: "USD"}
	assert.Equal(t, "100.50 USD", r.String())
}
