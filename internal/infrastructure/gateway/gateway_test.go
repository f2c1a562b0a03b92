package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/internal/domain/payment"
	"github.com/cassiomorais/storefront/internal/infrastructure/observability"
	"github.com/cassiomorais/storefront/internal/testutil"
	"github.com/cassiomorais/storefront/pkg/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request() payment.AuthorizationRequest {
	return payment.AuthorizationRequest{CustomerID: "c-1", Amount: decimal.NewFromInt(10), Currency: "USD"}
}

func TestSimulated_AuthorizeCaptureVoid(t *testing.T) {
	ctx := context.Background()
	g := NewSimulated("sim", WithLatency(0))

	code, err := g.ExecutePayment(ctx, request())
	require.NoError(t, err)
	assert.Contains(t, code, "AUTH-")

	require.NoError(t, g.Capture(ctx, code))
	require.NoError(t, g.Capture(ctx, code), "repeated capture is accepted")
	require.NoError(t, g.Void(ctx, code), "voiding a captured payment releases it")
	require.NoError(t, g.Void(ctx, code), "repeated void is accepted")
	assert.ErrorIs(t, g.Capture(ctx, code), domainErrors.ErrInvalidInput)

	other, err := g.ExecutePayment(ctx, request())
	require.NoError(t, err)
	require.NoError(t, g.Void(ctx, other))
	assert.ErrorIs(t, g.Capture(ctx, other), domainErrors.ErrInvalidInput)

	assert.ErrorIs(t, g.Void(ctx, "AUTH-UNKNOWN"), domainErrors.ErrInvalidInput)
}

func TestSimulated_DeclinesAndTimeouts(t *testing.T) {
	ctx := context.Background()

	_, err := NewSimulated("sim", WithLatency(0), WithDeclineRate(1)).ExecutePayment(ctx, request())
	assert.ErrorIs(t, err, domainErrors.ErrPaymentDeclined)

	_, err = NewSimulated("sim", WithLatency(0), WithTimeoutRate(1)).ExecutePayment(ctx, request())
	assert.ErrorIs(t, err, domainErrors.ErrGatewayTimeout)
}

func TestSimulated_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSimulated("sim", WithLatency(time.Second)).ExecutePayment(ctx, request())
	assert.ErrorIs(t, err, context.Canceled)
}

func fastSettings() Settings {
	return Settings{
		Name:             "test-gateway",
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		Retry:            retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}
}

func TestResilient_RetriesVoidOnTimeout(t *testing.T) {
	mock := testutil.NewMockGateway()
	calls := 0
	mock.VoidFunc = func(ctx context.Context, code string) error {
		calls++
		if calls < 2 {
			return domainErrors.ErrGatewayTimeout
		}
		return nil
	}
	g := NewResilient(mock, fastSettings(), observability.NewMetrics("test", prometheus.NewRegistry()))

	require.NoError(t, g.Void(context.Background(), "AUTH-1"))
	assert.Equal(t, 2, calls)
}

func TestResilient_DoesNotRetryAuthorization(t *testing.T) {
	mock := testutil.NewMockGateway()
	mock.ExecutePaymentFunc = func(ctx context.Context, req payment.AuthorizationRequest) (string, error) {
		return "", domainErrors.ErrGatewayTimeout
	}
	g := NewResilient(mock, fastSettings(), nil)

	_, err := g.ExecutePayment(context.Background(), request())
	assert.ErrorIs(t, err, domainErrors.ErrGatewayTimeout)
	assert.Len(t, mock.Authorized, 1)
}

func TestResilient_OpensAfterConsecutiveFailures(t *testing.T) {
	mock := testutil.NewMockGateway()
	mock.ExecutePaymentFunc = func(ctx context.Context, req payment.AuthorizationRequest) (string, error) {
		return "", domainErrors.ErrGatewayTimeout
	}
	g := NewResilient(mock, fastSettings(), nil)

	for range 2 {
		_, _ = g.ExecutePayment(context.Background(), request())
	}
	assert.Equal(t, gobreaker.StateOpen, g.State())

	_, err := g.ExecutePayment(context.Background(), request())
	assert.ErrorIs(t, err, domainErrors.ErrGatewayUnavailable)
	assert.Len(t, mock.Authorized, 2)
}

func TestResilient_DeclinesDoNotTripBreaker(t *testing.T) {
	mock := testutil.NewMockGateway()
	mock.ExecutePaymentFunc = func(ctx context.Context, req payment.AuthorizationRequest) (string, error) {
		return "", errors.Join(domainErrors.ErrPaymentDeclined, errors.New("insufficient funds"))
	}
	g := NewResilient(mock, fastSettings(), nil)

	for range 5 {
		_, err := g.ExecutePayment(context.Background(), request())
		assert.ErrorIs(t, err, domainErrors.ErrPaymentDeclined)
	}
	assert.Equal(t, gobreaker.StateClosed, g.State())
}
