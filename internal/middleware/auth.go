package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/askme/backend/internal/models"
	"github.com/askme/backend/internal/provider"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	tokenKey    contextKey = "bearerToken"
)

// RequireAuth resolves the bearer token to a verified identity through the
// provider and attaches it to the request context. The identity is resolved
// exactly once per request; downstream code reads it with GetIdentity and
// passes it on explicitly.
func RequireAuth(auth provider.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("No authorization header"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid authorization header format"))
				return
			}
			token := parts[1]

			identity, err := auth.UserFromToken(r.Context(), token)
			if err != nil || identity == nil {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity extracts the verified identity from context. Nil outside
// RequireAuth-protected routes.
func GetIdentity(ctx context.Context) *provider.Identity {
	identity, ok := ctx.Value(identityKey).(*provider.Identity)
	if !ok {
		return nil
	}
	return identity
}

// BearerToken returns the raw access token the identity was resolved from.
func BearerToken(ctx context.Context) string {
	token, ok := ctx.Value(tokenKey).(string)
	if !ok {
		return ""
	}
	return token
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
