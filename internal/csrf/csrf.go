// Package csrf protects dashboard form posts with the double-submit
// cookie pattern.
//
// A random token is set in a cookie and echoed by every form, either as
// the csrf_token field or, for htmx requests, the X-CSRF-Token header.
// A cross-site page can make the browser send the cookie but cannot read
// it, so it cannot echo it.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
)

const (
	CookieName    = "csrf_token"
	FormFieldName = "csrf_token"
	HeaderName    = "X-CSRF-Token"

	// TokenLength is the number of random bytes in a token.
	TokenLength = 32

	// CookieMaxAge is the token lifetime in seconds.
	CookieMaxAge = 3600
)

// GenerateToken returns TokenLength random bytes, base64 URL-encoded.
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// ValidateToken compares the two tokens in constant time.
func ValidateToken(cookieToken, submitted string) bool {
	if cookieToken == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(submitted)) == 1
}

// ValidateRequest checks the submitted token against the cookie. The header
// is preferred; the form field is read otherwise, which parses the body.
func ValidateRequest(r *http.Request) bool {
	submitted := r.Header.Get(HeaderName)
	if submitted == "" {
		submitted = r.FormValue(FormFieldName)
	}
	return ValidateToken(TokenFromRequest(r), submitted)
}

// TokenFromRequest returns the token cookie value, or "".
func TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// EnsureToken returns the request's token, issuing a new cookie when it
// has none. Handlers call it before rendering a form.
func EnsureToken(w http.ResponseWriter, r *http.Request, isSecure bool) (string, error) {
	if token := TokenFromRequest(r); token != "" {
		return token, nil
	}

	token, err := GenerateToken()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		Secure:   isSecure,
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}

// Protect rejects state-changing requests whose token does not match.
// Safe methods pass through untouched.
func Protect(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			if !ValidateRequest(r) {
				logger.Warn("csrf token mismatch", "method", r.Method, "path", r.URL.Path)
				http.Error(w, "Invalid or missing CSRF token", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
