package session

import "net/http"

// TokenCookie builds the cookie that stores the upstream access token.
//
// The cookie is HttpOnly and SameSite=Lax; Secure is set outside
// development.
func TokenCookie(token string, isSecure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     CookiePath,
		MaxAge:   CookieMaxAge,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetTokenCookie stores the upstream access token.
func SetTokenCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, TokenCookie(token, isSecure))
}

// ClearTokenCookie tells the browser to drop the access token.
func ClearTokenCookie(w http.ResponseWriter, isSecure bool) {
	c := TokenCookie("", isSecure)
	c.MaxAge = -1
	http.SetCookie(w, c)
}
