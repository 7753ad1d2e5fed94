// Package middleware contains HTTP middleware for the dashboard.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/DukeRupert/shopdesk/internal/auth"
	"github.com/DukeRupert/shopdesk/internal/handler"
)

// LoginPath is where unauthenticated page requests are sent.
const LoginPath = "/login"

// =============================================================================
// Auth Middleware
// =============================================================================

// AuthMiddleware moves the upstream access token from its cookie into the
// request context, where the API client reads it.
//
// The dashboard never validates the token itself; the REST API does, and
// a rejected token surfaces as an unauthorized error from the client.
type AuthMiddleware struct {
	logger *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{logger: logger}
}

// WithToken copies the access token cookie, if any, into the context and
// always continues.
func (m *AuthMiddleware) WithToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := auth.TokenFromCookie(r); token != "" {
			r = r.WithContext(auth.WithToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireToken rejects requests without an access token: API requests get
// a 401, htmx requests are told to redirect, pages are redirected to the
// login page with a return_to parameter.
//
// IMPORTANT: This middleware must be used AFTER WithToken in the middleware chain.
func (m *AuthMiddleware) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.Token(r.Context()) != "" {
			next.ServeHTTP(w, r)
			return
		}

		if isAPIRequest(r) {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}

		target := LoginRedirect(r)
		if r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Redirect", target)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	})
}

// LoginRedirect returns the login URL that sends the user back to r after
// signing in.
func LoginRedirect(r *http.Request) string {
	returnTo := r.URL.Path
	if r.URL.RawQuery != "" {
		returnTo += "?" + r.URL.RawQuery
	}
	return LoginPath + "?return_to=" + url.QueryEscape(returnTo)
}

// =============================================================================
// Request Helpers
// =============================================================================

// isAPIRequest determines if the request expects a JSON response.
//
// htmx requests want HTML fragments even under /api/.
func isAPIRequest(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return false
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// =============================================================================
// Middleware Stack Helpers
// =============================================================================

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided, meaning the first middleware
// in the slice is the outermost (runs first on request, last on response).
//
// Example:
//
//	stack := Stack(loggingMw, authMw.WithToken, authMw.RequireToken)
//	mux.Handle("GET /products", stack(productsHandler))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

var (
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).WithToken
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequireToken
)
