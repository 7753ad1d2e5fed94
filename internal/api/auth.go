package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/DukeRupert/shopdesk/internal/auth"
	"github.com/DukeRupert/shopdesk/internal/domain"
)

// LoginPath is the login endpoint relative to the API root.
const LoginPath = "auth/login"

// Credentials is the body of a login request.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginURL returns the absolute login endpoint.
func (c *Client) LoginURL() string {
	return c.baseURL + "/" + LoginPath
}

// Login exchanges credentials for an access token. No token is sent with
// the request even if ctx carries one.
func (c *Client) Login(ctx context.Context, creds Credentials) (domain.LoginData, error) {
	const op = "auth.login"

	if creds.Username == "" || creds.Password == "" {
		return domain.LoginData{}, domain.Invalid(op, "Username and password are required.")
	}

	data, err := c.do(auth.WithToken(ctx, ""), request{Op: op, Method: http.MethodPost, Path: LoginPath, JSON: creds})
	if err != nil {
		return domain.LoginData{}, err
	}
	login, err := decodeOne[domain.LoginData](op, data)
	if err != nil {
		return domain.LoginData{}, err
	}
	if login.AccessToken == "" {
		return domain.LoginData{}, domain.Upstream(errors.New("empty access token"), op, "The shop API did not return an access token.")
	}
	return login, nil
}
