package transactions

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/internal/domain/payment"
	"github.com/cassiomorais/storefront/pkg/saga"
	"github.com/rs/zerolog"
)

// AuthorizePayment authorizes the checkout amount. Its result is the authorization code.
type AuthorizePayment struct {
	gateway payment.Gateway
	request payment.AuthorizationRequest
	code    string
	status  Status
}

var _ saga.Producer[string] = (*AuthorizePayment)(nil)

func NewAuthorizePayment(gateway payment.Gateway, request payment.AuthorizationRequest) *AuthorizePayment {
	return &AuthorizePayment{gateway: gateway, request: request}
}

func (s *AuthorizePayment) Name() string   { return AuthorizePaymentStep }
func (s *AuthorizePayment) Status() Status { return s.status }

func (s *AuthorizePayment) Result() (string, bool) { return s.code, s.code != "" }

func (s *AuthorizePayment) Execute(ctx context.Context) error {
	if err := s.request.Validate(); err != nil {
		return err
	}
	code, err := s.gateway.ExecutePayment(ctx, s.request)
	if err != nil {
		return fmt.Errorf("authorize payment: %w", err)
	}
	if code == "" {
		return domainErrors.Downstream("payment gateway", errors.New("empty authorization code"))
	}
	s.code = code
	s.status = Succeeded
	return nil
}

// Rollback voids the authorization. The code is cleared whether or not the void succeeds.
func (s *AuthorizePayment) Rollback(ctx context.Context) saga.Outcome {
	if s.code == "" {
		return saga.Skipped(s.Name())
	}
	code := s.code
	s.code = ""
	s.status = RolledBack

	if err := s.gateway.Void(ctx, code); err != nil {
		compensationFailed(ctx, s.Name(), err).
			Str("customer_id", s.request.CustomerID).
			Str("authorization_code", code).
			Msg("Failed to void payment authorization")
		return saga.Failed(s.Name(), fmt.Errorf("void authorization %s: %w", code, err))
	}
	return saga.Compensated(s.Name())
}

// CapturePayment captures an authorization, usually the result of AuthorizePayment.
type CapturePayment struct {
	gateway  payment.Gateway
	code     saga.Input[string]
	captured string
	status   Status
}

var _ saga.Step = (*CapturePayment)(nil)

func NewCapturePayment(gateway payment.Gateway, code saga.Input[string]) *CapturePayment {
	return &CapturePayment{gateway: gateway, code: code}
}

func (s *CapturePayment) Name() string   { return CapturePaymentStep }
func (s *CapturePayment) Status() Status { return s.status }

func (s *CapturePayment) Execute(ctx context.Context) error {
	code, err := s.code.Resolve()
	if err != nil {
		return fmt.Errorf("capture payment: %w", err)
	}
	if err := s.gateway.Capture(ctx, code); err != nil {
		return fmt.Errorf("capture payment: %w", err)
	}
	s.captured = code
	s.status = Succeeded
	return nil
}

// Rollback only logs: the gateway offers no reversal of a captured payment.
func (s *CapturePayment) Rollback(ctx context.Context) saga.Outcome {
	if s.captured == "" {
		return saga.Skipped(s.Name())
	}
	code := s.captured
	s.captured = ""
	s.status = RolledBack

	zerolog.Ctx(ctx).Warn().
		Str("step", s.Name()).
		Str("authorization_code", code).
		Msg("Captured payment cannot be reversed by the gateway")
	return saga.Irreversible(s.Name(), fmt.Errorf("payment %s already captured", code))
}
