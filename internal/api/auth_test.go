package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/shopdesk/internal/domain"
)

func TestLogin(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, Credentials{Username: "admin", Password: "secret"}, creds)

		w.Write(envelope(map[string]any{
			"accessToken": "tok_new",
			"user":        map[string]any{"_id": "u1", "username": "admin"},
		}, 0, ""))
	})

	login, err := client.Login(tokenCtx(), Credentials{Username: "admin", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "tok_new", login.AccessToken)
	assert.Equal(t, "admin", login.User.Username)
}

func TestLoginRejected(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelope(nil, 1, "Wrong username or password"))
	})

	_, err := client.Login(context.Background(), Credentials{Username: "admin", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, domain.EUPSTREAM, domain.ErrorCode(err))
	assert.Equal(t, "Wrong username or password", domain.ErrorMessage(err))
}

func TestLoginRequiresCredentials(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.Login(context.Background(), Credentials{Username: "admin"})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestLoginMissingToken(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(envelope(map[string]any{"user": map[string]any{"_id": "u1"}}, 0, ""))
	})

	_, err := client.Login(context.Background(), Credentials{Username: "a", Password: "b"})
	assert.Equal(t, domain.EUPSTREAM, domain.ErrorCode(err))
}

func TestLoginURL(t *testing.T) {
	c := NewClient("https://api.example.com/v1/", nil)
	assert.Equal(t, "https://api.example.com/v1/auth/login", c.LoginURL())
}
