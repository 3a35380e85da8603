package middleware

import (
	"context"
	"net/http"

	"horizon/internal/domain/user"
)

// SessionCookieName is the cookie carrying the opaque session secret.
const SessionCookieName = "horizon_session"

// ContextKey is the type used for request context keys set by middleware.
type ContextKey string

const (
	// UserKey holds the resolved *user.User for the request.
	UserKey ContextKey = "user"
	// SessionSecretKey holds the raw session secret from the cookie.
	SessionSecretKey ContextKey = "session_secret"
)

// SessionResolver resolves a session secret to a user. A (nil, nil) result
// means the session is missing or invalid.
type SessionResolver interface {
	LoggedInUser(ctx context.Context, sessionSecret string) (*user.User, error)
}

// Session authenticates requests via the session cookie. Requests without a
// valid session get 401; otherwise the user and secret are placed on the
// request context.
func Session(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := sessionSecret(r)

			u, err := resolver.LoggedInUser(r.Context(), secret)
			if err != nil {
				http.Error(w, "failed to resolve session", http.StatusInternalServerError)
				return
			}
			if u == nil {
				http.Error(w, "not authenticated", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, u)
			ctx = context.WithValue(ctx, SessionSecretKey, secret)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user set by Session.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(UserKey).(*user.User)
	return u, ok
}

// SecretFromContext returns the session secret set by Session.
func SecretFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(SessionSecretKey).(string)
	return s, ok
}

func sessionSecret(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
