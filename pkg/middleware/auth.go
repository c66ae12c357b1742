package middleware

import (
	"context"
	"net/http"
	"strings"

	"lofshare/pkg/auth"
	"lofshare/pkg/logger"
	"lofshare/pkg/sanitizer"
)

const (
	UserIDKey      contextKey = "user_id"
	UserEmailKey   contextKey = "user_email"
	DisplayNameKey contextKey = "display_name"
)

// GetUserID extracts the authenticated user id from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetUserEmail extracts the authenticated member email (lowercased).
func GetUserEmail(ctx context.Context) string {
	email, _ := ctx.Value(UserEmailKey).(string)
	return email
}

// GetDisplayName extracts the authenticated user's display name.
func GetDisplayName(ctx context.Context) string {
	name, _ := ctx.Value(DisplayNameKey).(string)
	return name
}

// RequireAuth validates the bearer token and injects the caller's identity
// into the request context. Requests without a valid token are rejected;
// the handlers behind this middleware can assume both identity axes are set.
func RequireAuth(jwtManager *auth.JWTManager, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				rejectUnauthorized(w, log, r, auth.ErrMissingToken.Error())
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				rejectUnauthorized(w, log, r, auth.ErrInvalidToken.Error())
				return
			}

			claims, err := jwtManager.Validate(parts[1])
			if err != nil {
				rejectUnauthorized(w, log, r, auth.ErrInvalidToken.Error())
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserEmailKey, sanitizer.NormalizeEmail(claims.Email))
			ctx = context.WithValue(ctx, DisplayNameKey, claims.DisplayName)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejectUnauthorized(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Unauthorized request",
		"request_id", requestIDFromContext(r.Context()),
		"path", r.URL.Path,
		"reason", reason,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + reason + `"}`))
}
