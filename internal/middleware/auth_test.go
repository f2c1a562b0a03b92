package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-enough-length-123"

func echoCustomer() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := CustomerIDFromContext(r.Context())
		_, _ = w.Write([]byte(id))
	})
}

func TestRequireAuth_ValidToken(t *testing.T) {
	token, err := IssueToken(testSecret, "customer-42", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	RequireAuth(testSecret)(echoCustomer()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "customer-42", w.Body.String())
}

func TestRequireAuth_Rejections(t *testing.T) {
	expired, err := IssueToken(testSecret, "customer-42", -time.Minute)
	require.NoError(t, err)
	wrongKey, err := IssueToken("another-secret-with-enough-length", "customer-42", time.Hour)
	require.NoError(t, err)
	noCustomer, err := IssueToken(testSecret, "", time.Hour)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{CustomerID: "customer-42"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "auth_required"},
		{"basic scheme", "Basic dXNlcjpwYXNz", "auth_invalid_scheme"},
		{"garbage token", "Bearer not-a-jwt", "auth_invalid"},
		{"expired", "Bearer " + expired, "auth_invalid"},
		{"wrong key", "Bearer " + wrongKey, "auth_invalid"},
		{"no customer", "Bearer " + noCustomer, "auth_invalid"},
		{"no expiry", "Bearer " + noExpiry, "auth_invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			RequireAuth(testSecret)(echoCustomer()).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.code)
		})
	}
}

func TestCustomerIDFromContext(t *testing.T) {
	_, ok := CustomerIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)

	ctx := WithCustomerID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "c-1")
	id, ok := CustomerIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "c-1", id)
}
