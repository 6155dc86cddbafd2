package app

import (
	"context"
	"errors"
	"net/http"

	"tiktok-signin-go/internal/auth"
	"tiktok-signin-go/internal/session"
)

// contextKey is a custom type to use as a key for context values.
type contextKey string

const sessionContextKey = contextKey("session")

type sessionValue struct {
	token *auth.TokenInfo
	user  *auth.UserInfo
}

// requireAuth loads the stored session and attaches it to the request
// context. Without an intact session the user is sent to /login.
func (a *Application) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, user, err := a.Session.Load(r.Context())
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				a.Logger.Printf("middleware: failed to load session: %v", err)
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, &sessionValue{token: token, user: user})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFromContext retrieves the loaded session from the request context.
func sessionFromContext(r *http.Request) (*auth.TokenInfo, *auth.UserInfo, bool) {
	value, ok := r.Context().Value(sessionContextKey).(*sessionValue)
	if !ok {
		return nil, nil, false
	}
	return value.token, value.user, true
}
