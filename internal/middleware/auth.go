package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

type contextKey string

const CustomerIDKey contextKey = "customer_id"

// Claims identify the storefront customer a bearer token was issued to.
type Claims struct {
	CustomerID string `json:"customer_id"`
	jwt.RegisteredClaims
}

// RequireAuth rejects requests without a valid HS256 bearer token and puts the
// token's customer id on the request context.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	keyFunc := func(*jwt.Token) (any, error) { return []byte(jwtSecret), nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, "missing authorization header", "auth_required")
				return
			}

			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				writeAuthError(w, "invalid authorization scheme", "auth_invalid_scheme")
				return
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(tokenString, claims, keyFunc)
			if err != nil || !token.Valid {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("Rejected bearer token")
				writeAuthError(w, "invalid token", "auth_invalid")
				return
			}
			if claims.CustomerID == "" {
				writeAuthError(w, "token has no customer", "auth_invalid")
				return
			}

			ctx := WithCustomerID(r.Context(), claims.CustomerID)
			zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("customer_id", claims.CustomerID)
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IssueToken signs a customer token. Used by tooling and tests.
func IssueToken(jwtSecret, customerID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		CustomerID: customerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   customerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
}

func WithCustomerID(ctx context.Context, customerID string) context.Context {
	return context.WithValue(ctx, CustomerIDKey, customerID)
}

func CustomerIDFromContext(ctx context.Context) (string, bool) {
	customerID, ok := ctx.Value(CustomerIDKey).(string)
	return customerID, ok && customerID != ""
}

func writeAuthError(w http.ResponseWriter, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
		"code":  code,
	})
}
