package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"campus-food-backend/internal/models"
	"campus-food-backend/internal/services"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenValidator resolves an identity token
type TokenValidator interface {
	ValidateJWT(token string) (services.Identity, error)
}

// AuthMiddleware creates a middleware for JWT authentication
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			identity, err := validator.ValidateJWT(parts[1])
			if err != nil {
				respondError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole rejects callers whose role is not listed
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetIdentity(r.Context())
			if !ok {
				respondError(w, "Authentication required", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondError(w, "Role not allowed", http.StatusForbidden)
		})
	}
}

// WithIdentity stores the caller in ctx
func WithIdentity(ctx context.Context, identity services.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity extracts the caller from context
func GetIdentity(ctx context.Context) (services.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(services.Identity)
	return identity, ok
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	identity, _ := GetIdentity(ctx)
	return identity.UserID
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
