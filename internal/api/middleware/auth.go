package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/good-yellow-bee/tempus/internal/api/auth"
	"github.com/good-yellow-bee/tempus/internal/models"
)

// Context keys for storing the resolved identity.
type contextKey string

const authUserKey contextKey = "auth_user"

// jsonUnauthorized writes an unauthorized error response.
func jsonUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "UNAUTHORIZED",
			"message": "invalid or expired token",
		},
	})
}

// jsonForbidden writes a forbidden error response.
func jsonForbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "FORBIDDEN",
			"message": "access denied",
		},
	})
}

// JWTAuth returns middleware that validates bearer tokens and resolves the
// caller's identity into the request context. Handlers take tenant and user
// identity from this context only, never from the request body or path.
func JWTAuth(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				jsonUnauthorized(w)
				return
			}

			// Parse Bearer token
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				jsonUnauthorized(w)
				return
			}

			claims, err := jwtService.ValidateToken(parts[1])
			if err != nil {
				log.Printf("JWT auth failed for %s: %v", r.RemoteAddr, err)
				jsonUnauthorized(w)
				return
			}

			ctx := WithAuthUser(r.Context(), claims.AuthenticatedUser())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithAuthUser stores the resolved identity in the context. Exported so
// handler tests can inject an identity without minting tokens.
func WithAuthUser(ctx context.Context, user *models.AuthenticatedUser) context.Context {
	return context.WithValue(ctx, authUserKey, user)
}

// GetAuthUser returns the resolved identity from context, or nil when the
// request did not pass through JWTAuth.
func GetAuthUser(ctx context.Context) *models.AuthenticatedUser {
	if v := ctx.Value(authUserKey); v != nil {
		if u, ok := v.(*models.AuthenticatedUser); ok {
			return u
		}
	}
	return nil
}

// RequireRole returns middleware that requires one of the given roles.
func RequireRole(allowedRoles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetAuthUser(r.Context())
			if user == nil {
				jsonForbidden(w)
				return
			}

			for _, role := range allowedRoles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			jsonForbidden(w)
		})
	}
}

// RequireOwner is shorthand for RequireRole(RoleOwner).
func RequireOwner(next http.Handler) http.Handler {
	return RequireRole(models.RoleOwner)(next)
}
