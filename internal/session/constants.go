// Package session holds the cookie settings shared by the login proxy and
// the auth middleware.
package session

const (
	// CookieName is the cookie the upstream access token is stored in.
	CookieName = "access_token"

	// CookiePath ensures the cookie is sent with all requests.
	CookiePath = "/"

	// CookieMaxAge is one day, matching the upstream token lifetime.
	CookieMaxAge = 24 * 60 * 60
)
