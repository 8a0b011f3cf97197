package auth

import (
	"context"
	"net/http"
)

type contextKey string

const claimsKey contextKey = "claims"

// Middleware validates the bearer token and stashes the claims in the
// request context.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := ParseToken(secret, tokenString)
			if err != nil {
				http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireStaff gates staff-only endpoints. Admin tokens pass too. Must run
// after Middleware.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := FromContext(r.Context())
		if claims == nil || (claims.Role != "staff" && claims.Role != "admin") {
			http.Error(w, "staff access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FromContext returns the authenticated claims, or nil on unauthenticated
// requests.
func FromContext(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(claimsKey).(*Claims); ok {
		return claims
	}
	return nil
}

// CustomerID is a convenience for handlers that only need the identity.
func CustomerID(ctx context.Context) int64 {
	if claims := FromContext(ctx); claims != nil {
		return claims.CustomerID
	}
	return 0
}
