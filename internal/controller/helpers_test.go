package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/pkg/saga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		payload      any
		expectedBody string
	}{
		{"simple map", http.StatusOK, map[string]string{"message": "hello"}, `{"message":"hello"}`},
		{"struct", http.StatusCreated, struct{ ID string }{ID: "123"}, `{"ID":"123"}`},
		{"error response", http.StatusBadRequest, ErrorResponse{Error: "bad request", Code: "invalid_input"}, `{"error":"bad request","code":"invalid_input"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeJSON(w, tt.status, tt.payload)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestWriteError_ValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	err := fmt.Errorf("item 0: %w", domainErrors.NewValidationError("quantity", "must be greater than 0"))

	writeError(w, httptest.NewRequest(http.MethodPost, "/", nil), err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "validation_error", resp.Code)
	assert.Contains(t, resp.Error, "quantity")
}

func TestWriteError_Mappings(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "unknown subscription",
			err:            domainErrors.NewDomainError("subscription_not_found", "no such subscription", domainErrors.ErrSubscriptionNotFound),
			expectedStatus: http.StatusNotFound,
			expectedCode:   "subscription_not_found",
		},
		{"missing record", domainErrors.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{"declined", fmt.Errorf("authorize: %w", domainErrors.ErrPaymentDeclined), http.StatusPaymentRequired, "payment_declined"},
		{"lock held", domainErrors.ErrCheckoutInProgress, http.StatusConflict, "checkout_in_progress"},
		{"duplicate reference", domainErrors.ErrAlreadyExists, http.StatusConflict, "already_exists"},
		{"precondition", domainErrors.ErrPreconditionFailed, http.StatusBadRequest, "precondition_failed"},
		{"provider rejected input", domainErrors.NewDomainError("invalid_order", "bad line", domainErrors.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{"breaker open", domainErrors.ErrGatewayUnavailable, http.StatusServiceUnavailable, "gateway_unavailable"},
		{"gateway timeout", domainErrors.ErrGatewayTimeout, http.StatusGatewayTimeout, "gateway_timeout"},
		{"downstream", domainErrors.Downstream("order service", errors.New("502")), http.StatusServiceUnavailable, "downstream_unavailable"},
		{"unauthorized", domainErrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, httptest.NewRequest(http.MethodPost, "/", nil), tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedCode, decodeError(t, w).Code)
		})
	}
}

func TestWriteError_HidesCompensationDetails(t *testing.T) {
	inner := &saga.ExecutionError{
		Saga: "persist-new-subscriptions",
		Step: "record-purchase",
		Err:  domainErrors.Downstream("purchases store", errors.New("connection reset")),
		Report: saga.Report{Outcomes: []saga.Outcome{
			saga.Failed("record-new-customer-subscription", errors.New("delete subscription sub-1: db down")),
		}},
	}
	err := &saga.ExecutionError{
		Saga:  "purchase",
		Step:  "persist-new-subscriptions",
		Index: 3,
		Err:   inner,
		Report: saga.Report{Outcomes: []saga.Outcome{
			saga.Failed("authorize-payment", errors.New("void authorization AUTH-1: gateway down")),
		}},
	}

	w := httptest.NewRecorder()
	writeError(w, httptest.NewRequest(http.MethodPost, "/", nil), err)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "downstream_unavailable", resp.Code)
	assert.Contains(t, resp.Error, "purchases store request failed")
	assert.NotContains(t, resp.Error, "AUTH-1")
	assert.NotContains(t, resp.Error, "compensat")
	assert.NotContains(t, resp.Error, "sub-1")
}

func TestWriteError_UnmappedDomainError(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, httptest.NewRequest(http.MethodGet, "/", nil), domainErrors.NewDomainError("odd_state", "odd state", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "odd_state", decodeError(t, w).Code)
}

func TestWriteError_InternalErrorHidesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("pq: connection refused to 10.0.0.5"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "internal_error", resp.Code)
	assert.NotContains(t, resp.Error, "10.0.0.5")
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"items":[{"offer_id":"o-1","quantity":2,"seat_price":"9.99"}]}`, ""},
		{"invalid json", `{"items":`, "invalid JSON"},
		{"no items", `{"items":[]}`, "Items"},
		{"missing offer", `{"items":[{"quantity":2,"seat_price":"9.99"}]}`, "OfferID"},
		{"zero quantity", `{"items":[{"offer_id":"o-1","quantity":0,"seat_price":"9.99"}]}`, "Quantity"},
		{"non numeric price", `{"items":[{"offer_id":"o-1","quantity":1,"seat_price":"ten"}]}`, "SeatPrice"},
		{"unknown cycle", `{"items":[{"offer_id":"o-1","quantity":1,"seat_price":"1","billing_cycle":"weekly"}]}`, "BillingCycle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			var dst PurchaseRequest
			err := decodeAndValidate(req, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domainErrors.ErrValidationFailed)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}
