package middleware

import (
	"context"
	"net/http"

	"github.com/eldtechnologies/batepapo/internal/chat"
)

type contextKey string

const UserContextKey contextKey = "user"

// UserHeader carries the caller's participant name.
const UserHeader = "user"

// Identity reads the user header and stores its sanitized value in the request
// context. A missing header yields the empty identity; handlers decide what that
// identity may do.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := chat.Sanitize(r.Header.Get(UserHeader))
		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the identity stored by Identity.
func UserFromContext(ctx context.Context) string {
	user, _ := ctx.Value(UserContextKey).(string)
	return user
}
