// Package auth carries the caller's upstream access token through the
// request context.
//
// The middleware and handler packages both import it, so it must not
// import either of them.
package auth

import (
	"context"
	"net/http"

	"github.com/DukeRupert/shopdesk/internal/session"
)

type contextKey string

const tokenContextKey contextKey = "access_token"

// Token returns the access token stored by WithToken, or "".
func Token(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// WithToken stores the access token in ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// TokenFromCookie reads the access token cookie set by the login proxy.
func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
