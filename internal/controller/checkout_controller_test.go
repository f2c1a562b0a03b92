package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cassiomorais/storefront/internal/application/checkout"
	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/internal/domain/payment"
	customMW "github.com/cassiomorais/storefront/internal/middleware"
	"github.com/cassiomorais/storefront/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "controller-test-secret-0123456789"

type apiFixture struct {
	gateway   *testutil.MockGateway
	orders    *testutil.MockOrderService
	subs      *testutil.MockSubscriptionsRepository
	purchases *testutil.MockPurchasesRepository
	locker    *testutil.MockLocker
	router    http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{
		gateway:   testutil.NewMockGateway(),
		orders:    testutil.NewMockOrderService(),
		subs:      testutil.NewMockSubscriptionsRepository(),
		purchases: testutil.NewMockPurchasesRepository(),
		locker:    &testutil.MockLocker{},
	}
	f.router = NewRouter(RouterDeps{
		Logger: zerolog.Nop(),
		Checkout: checkout.Deps{
			Gateway:       f.gateway,
			Orders:        f.orders,
			Subscriptions: f.subs,
			Purchases:     f.purchases,
			Locker:        f.locker,
			Integrity:     &testutil.MockIntegrityReporter{},
			Metrics:       testutil.NewMockMetrics(),
			Currency:      "USD",
		},
		Health: map[string]Pinger{
			"database": PingFunc(func(context.Context) error { return nil }),
		},
		JWTSecret: testJWTSecret,
	})
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	token, err := customMW.IssueToken(testJWTSecret, testutil.TestCustomerID, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestCheckoutAPI_Purchase(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/purchases", PurchaseRequest{Items: []OfferLineItemRequest{
		{OfferID: "offer-a", Quantity: 2, SeatPrice: "10.00"},
		{OfferID: "offer-b", Quantity: 1, SeatPrice: "4.50", BillingCycle: "annual"},
	}})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp ReceiptResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "order-1", resp.OrderID)
	assert.Equal(t, "AUTH-1", resp.AuthorizationCode)
	assert.Equal(t, "24.50", resp.Total)
	assert.Equal(t, "USD", resp.Currency)
	assert.Len(t, resp.LineItems, 2)
	assert.Equal(t, []string{testutil.TestCustomerID}, f.locker.Acquired)

	list := f.do(t, http.MethodGet, "/api/v1/subscriptions", nil)
	require.Equal(t, http.StatusOK, list.Code)
	var subs []SubscriptionResponse
	require.NoError(t, json.NewDecoder(list.Body).Decode(&subs))
	assert.Len(t, subs, 2)

	history := f.do(t, http.MethodGet, "/api/v1/purchases", nil)
	require.Equal(t, http.StatusOK, history.Code)
	var purchases []PurchaseResponse
	require.NoError(t, json.NewDecoder(history.Body).Decode(&purchases))
	assert.Len(t, purchases, 2)
}

func TestCheckoutAPI_PurchaseDeclined(t *testing.T) {
	f := newAPIFixture(t)
	f.gateway.ExecutePaymentFunc = func(ctx context.Context, req payment.AuthorizationRequest) (string, error) {
		return "", domainErrors.NewDomainError("payment_declined", "card declined", domainErrors.ErrPaymentDeclined)
	}

	w := f.do(t, http.MethodPost, "/api/v1/purchases", PurchaseRequest{Items: []OfferLineItemRequest{
		{OfferID: "offer-a", Quantity: 1, SeatPrice: "10.00"},
	}})

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, 0, f.subs.Count())
}

func TestCheckoutAPI_PurchaseValidation(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/purchases", PurchaseRequest{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.gateway.Authorized)
}

func TestCheckoutAPI_AddSeatsAndRenew(t *testing.T) {
	f := newAPIFixture(t)
	testutil.SeedSubscription(f.orders, f.subs, testutil.TestCustomerID, "sub-1", 5, "3.00")

	w := f.do(t, http.MethodPost, "/api/v1/subscriptions/sub-1/seats", AddSeatsRequest{Seats: 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp ReceiptResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "9.00", resp.Total)

	stored, ok := f.subs.Get(testutil.TestCustomerID, "sub-1")
	require.True(t, ok)
	assert.Equal(t, 8, stored.Quantity)

	renew := f.do(t, http.MethodPost, "/api/v1/subscriptions/sub-1/renew", nil)
	require.Equal(t, http.StatusCreated, renew.Code, renew.Body.String())
}

func TestCheckoutAPI_UnknownSubscription(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/subscriptions/nope/seats", AddSeatsRequest{Seats: 1})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, f.gateway.Authorized)
}

func TestCheckoutAPI_CheckoutInProgress(t *testing.T) {
	f := newAPIFixture(t)
	f.locker.AcquireFunc = func(ctx context.Context, customerID string) error {
		return domainErrors.ErrCheckoutInProgress
	}

	w := f.do(t, http.MethodPost, "/api/v1/purchases", PurchaseRequest{Items: []OfferLineItemRequest{
		{OfferID: "offer-a", Quantity: 1, SeatPrice: "1.00"},
	}})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCheckoutAPI_RequiresAuth(t *testing.T) {
	f := newAPIFixture(t)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestHealthController_NotReady(t *testing.T) {
	h := NewHealthController(map[string]Pinger{
		"redis": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis unavailable")
}
