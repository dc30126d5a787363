package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/benvon/identity-api/internal/models"
	"go.uber.org/zap"
)

type contextKey string

const userContextKey contextKey = "user"

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(userContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// SessionValidator validates locally issued session tokens.
type SessionValidator interface {
	Validate(tokenString, expectedSubject string) bool
	ExtractClaim(tokenString, key string) (any, error)
}

// UserLoader resolves the authenticated principal to a user record.
type UserLoader interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// SessionAuth creates middleware that validates the locally signed session
// token and loads the corresponding user into the request context. The
// resolved user travels with the request explicitly; there is no ambient
// current-user state.
func SessionAuth(tokens SessionValidator, users UserLoader, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}
			tokenString := parts[1]

			subjectClaim, err := tokens.ExtractClaim(tokenString, "sub")
			if err != nil {
				respondError(w, http.StatusUnauthorized, "Invalid session token")
				return
			}
			subject, ok := subjectClaim.(string)
			if !ok || subject == "" {
				respondError(w, http.StatusUnauthorized, "Invalid session token")
				return
			}

			if !tokens.Validate(tokenString, subject) {
				respondError(w, http.StatusUnauthorized, "Invalid session token")
				return
			}

			user, err := users.GetByEmail(r.Context(), subject)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					respondError(w, http.StatusUnauthorized, "Unknown user")
					return
				}
				logger.Error("auth_user_lookup_failed", zap.Error(err))
				respondError(w, http.StatusInternalServerError, "Failed to resolve user")
				return
			}

			if !user.Active {
				respondError(w, http.StatusUnauthorized, "User is deactivated")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
