package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DukeRupert/shopdesk/internal/session"
	"github.com/stretchr/testify/assert"
)

func TestToken_RoundTrip(t *testing.T) {
	assert.Equal(t, "", Token(context.Background()))

	ctx := WithToken(context.Background(), "abc")
	assert.Equal(t, "abc", Token(ctx))
}

func TestTokenFromCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	assert.Equal(t, "", TokenFromCookie(req))

	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "jwt"})
	assert.Equal(t, "jwt", TokenFromCookie(req))
}
