// Package middleware provides the HTTP middleware stack: bearer-token
// authentication, per-client rate limiting, and request ids.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"dynatable/internal/token"
)

type claimsKey struct{}

// WithClaims stores verified claims in the context.
func WithClaims(ctx context.Context, c token.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext extracts the verified claims from the context.
func ClaimsFromContext(ctx context.Context) (token.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(token.Claims)
	return c, ok
}

// Verifier validates a bearer token and returns its claims.
type Verifier interface {
	VerifyAccess(tokenString string) (token.Claims, error)
}

// Auth requires a valid Bearer token on every request and stores the
// verified claims in the context. The response for a failed verification
// names the failure class (expired vs. invalid) but never whether the
// subject exists.
func Auth(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				writeUnauthorized(w, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyAccess(strings.TrimPrefix(authz, "Bearer "))
			if err != nil {
				writeUnauthorized(w, unauthorizedMessage(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "token expired"
	case errors.Is(err, token.ErrNotYetValid):
		return "token not yet valid"
	default:
		return "invalid token"
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}
