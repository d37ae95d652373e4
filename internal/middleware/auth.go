package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/AnshRaj112/salvioris-chat/internal/services"
)

type contextKey string

const userIDKey contextKey = "user_id"

// BearerToken extracts the session token from the Authorization header,
// falling back to the `token` query parameter for browser WebSocket clients
// that cannot set headers.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")); token != "" {
			return token
		}
	}
	return r.URL.Query().Get("token")
}

// RequireSession validates the session token and stores the user id in the
// request context. 401 on missing or invalid tokens.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			http.Error(w, "missing session token", http.StatusUnauthorized)
			return
		}

		userID, ok, err := services.ValidateSession(r.Context(), token)
		if err != nil || !ok {
			http.Error(w, "invalid session token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionUserID returns the authenticated user id placed by RequireSession.
func SessionUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}
