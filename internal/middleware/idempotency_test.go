package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cassiomorais/storefront/internal/repository/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]*postgres.IdempotencyEntry
	getErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]*postgres.IdempotencyEntry)}
}

func (s *memoryStore) Get(_ context.Context, customerID, key string) (*postgres.IdempotencyEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.entries[customerID+"/"+key], nil
}

func (s *memoryStore) Set(_ context.Context, e *postgres.IdempotencyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.CustomerID+"/"+e.Key] = e
	return nil
}

func countingHandler(calls *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"order_id":"order-1"}`))
	})
}

func idempotentRequest(customerID, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchases", nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	if customerID != "" {
		req = req.WithContext(WithCustomerID(req.Context(), customerID))
	}
	return req
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	h := Idempotency(store, time.Hour)(countingHandler(&calls, http.StatusCreated))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, idempotentRequest("c-1", "key-1"))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, idempotentRequest("c-1", "key-1"))

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	entry := store.entries["c-1/key-1"]
	require.NotNil(t, entry)
	assert.WithinDuration(t, time.Now().Add(time.Hour), entry.ExpiresAt, time.Minute)
}

func TestIdempotency_KeysAreScopedPerCustomer(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	h := Idempotency(store, time.Hour)(countingHandler(&calls, http.StatusCreated))

	h.ServeHTTP(httptest.NewRecorder(), idempotentRequest("c-1", "key-1"))
	h.ServeHTTP(httptest.NewRecorder(), idempotentRequest("c-2", "key-1"))

	assert.Equal(t, 2, calls)
}

func TestIdempotency_PassThrough(t *testing.T) {
	tests := []struct {
		name       string
		customerID string
		key        string
	}{
		{"no key", "c-1", ""},
		{"unauthenticated", "", "key-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			calls := 0
			h := Idempotency(store, time.Hour)(countingHandler(&calls, http.StatusCreated))

			h.ServeHTTP(httptest.NewRecorder(), idempotentRequest(tt.customerID, tt.key))
			h.ServeHTTP(httptest.NewRecorder(), idempotentRequest(tt.customerID, tt.key))

			assert.Equal(t, 2, calls)
			assert.Empty(t, store.entries)
		})
	}
}

func TestIdempotency_ServerErrorsAreNotStored(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	h := Idempotency(store, time.Hour)(countingHandler(&calls, http.StatusServiceUnavailable))

	h.ServeHTTP(httptest.NewRecorder(), idempotentRequest("c-1", "key-1"))
	h.ServeHTTP(httptest.NewRecorder(), idempotentRequest("c-1", "key-1"))

	assert.Equal(t, 2, calls)
	assert.Empty(t, store.entries)
}

func TestIdempotency_LookupFailureStillServes(t *testing.T) {
	store := newMemoryStore()
	store.getErr = errors.New("db down")
	calls := 0
	h := Idempotency(store, time.Hour)(countingHandler(&calls, http.StatusCreated))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, idempotentRequest("c-1", "key-1"))

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, w.Code)
}
