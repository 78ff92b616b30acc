package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/kunal-drall/halo/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// IdentityKey is the context key for the authenticated identity.
const IdentityKey contextKey = "identity"

// GetIdentity extracts the authenticated identity from the context.
// Returns empty string if not found.
func GetIdentity(ctx context.Context) string {
	identity, _ := ctx.Value(IdentityKey).(string)
	return identity
}

// RequireAuth validates the Bearer token on every request and stores the
// authenticated identity in the request context. The token-issuance and
// health endpoints pass through.
func RequireAuth(jwtManager *auth.JWTManager, exempt ...string) func(http.Handler) http.Handler {
	open := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		open[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if open[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, auth.ErrMissingToken.Error(), http.StatusUnauthorized)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, auth.ErrInvalidToken.Error(), http.StatusUnauthorized)
				return
			}
			claims, err := jwtManager.Validate(parts[1])
			if err != nil {
				http.Error(w, auth.ErrInvalidToken.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, claims.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
