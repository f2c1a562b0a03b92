package payment

import (
	"context"
	"fmt"

	"github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/shopspring/decimal"
)

// Gateway is the payment gateway the checkout authorizes, captures and voids against.
type Gateway interface {
	// ExecutePayment authorizes the amount and returns the authorization code.
	ExecutePayment(ctx context.Context, req AuthorizationRequest) (string, error)
	// Capture settles a previous authorization.
	Capture(ctx context.Context, authorizationCode string) error
	// Void releases an authorization that has not been captured.
	Void(ctx context.Context, authorizationCode string) error
}

// AuthorizationRequest describes the amount a customer is charged for one checkout.
type AuthorizationRequest struct {
	CustomerID  string
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// String returns a human-readable representation of the amount.
func (r AuthorizationRequest) String() string {
	return fmt.Sprintf("%s %s", r.Amount.StringFixed(2), r.Currency)
}

// Validate checks that the request can be sent to a gateway.
func (r AuthorizationRequest) Validate() error {
	if r.CustomerID == "" {
		return errors.NewValidationError("customer_id", "cannot be empty")
	}
	if !r.Amount.IsPositive() {
		return errors.NewValidationError("amount", "must be greater than 0")
	}
	if r.Currency == "" {
		return errors.NewValidationError("currency", "cannot be empty")
	}
	// Simple currency validation (3-letter code)
	if len(r.Currency) != 3 {
		return errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	return nil
}
