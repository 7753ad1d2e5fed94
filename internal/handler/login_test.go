package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/shopdesk/internal/api"
	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/DukeRupert/shopdesk/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProxy(t *testing.T, isSecure bool, upstream http.HandlerFunc) *LoginProxy {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	p, err := NewLoginProxy(srv.URL+"/auth/login", testLogger(), isSecure, nil)
	require.NoError(t, err)
	return p
}

func postLogin(p http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", "access_token=stale; csrf_token=abc")
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)
	return rec
}

func tokenCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func TestLoginProxy_Success(t *testing.T) {
	const upstreamBody = `{"data":{"accessToken":"tok_1","user":{"_id":"u1","username":"admin"}},"errorCode":0,"message":"OK"}`

	p := newTestProxy(t, true, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Cookie"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"username":"admin","password":"secret"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, upstreamBody)
	})

	rec := postLogin(p, `{"username":"admin","password":"secret"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, upstreamBody, rec.Body.String())

	c := tokenCookie(rec)
	require.NotNil(t, c)
	assert.Equal(t, "tok_1", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
}

func TestLoginProxy_DevelopmentCookieNotSecure(t *testing.T) {
	p := newTestProxy(t, false, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"accessToken":"tok_dev"},"errorCode":0,"message":""}`)
	})

	rec := postLogin(p, `{}`)

	c := tokenCookie(rec)
	require.NotNil(t, c)
	assert.False(t, c.Secure)
}

func TestLoginProxy_RejectedRelaysWith200(t *testing.T) {
	const upstreamBody = `{"data":null,"errorCode":1,"message":"Wrong username or password"}`

	p := newTestProxy(t, true, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, upstreamBody)
	})

	rec := postLogin(p, `{"username":"admin","password":"nope"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, upstreamBody, rec.Body.String())
	assert.Nil(t, tokenCookie(rec))
}

func TestLoginProxy_NonJSONKeepsUpstreamStatus(t *testing.T) {
	p := newTestProxy(t, true, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "<h1>maintenance</h1>")
	})

	rec := postLogin(p, `{}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "<h1>maintenance</h1>", rec.Body.String())
	assert.Nil(t, tokenCookie(rec))
}

func TestLoginProxy_SuccessWithoutTokenSetsNoCookie(t *testing.T) {
	p := newTestProxy(t, true, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{},"errorCode":0,"message":""}`)
	})

	rec := postLogin(p, `{}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, tokenCookie(rec))
}

func TestLoginProxy_MethodNotSupported(t *testing.T) {
	p := newTestProxy(t, true, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream must not be called")
	})

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			p.ServeHTTP(rec, httptest.NewRequest(method, "/api/auth/login", nil))

			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, `{"data":null,"errorCode":0,"message":"Method is not supported"}`, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestLoginProxy_UpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL + "/auth/login"
	srv.Close()

	p, err := NewLoginProxy(target, testLogger(), true, nil)
	require.NoError(t, err)

	rec := postLogin(p, `{}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errorCode":502`)
	assert.Nil(t, tokenCookie(rec))
}

func TestLoginProxy_OversizedResponseIsNotRelayed(t *testing.T) {
	p := newTestProxy(t, true, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"accessToken":"tok"},"errorCode":0,"message":"`)
		io.WriteString(w, strings.Repeat("a", maxLoginBody))
		io.WriteString(w, `"}`)
	})

	rec := postLogin(p, `{}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errorCode":502`)
	assert.NotContains(t, rec.Body.String(), "aaaa")
	assert.Nil(t, tokenCookie(rec))
}

func TestLoginProxy_ResponseAtLimitIsRelayed(t *testing.T) {
	head := `{"data":null,"errorCode":1,"message":"`
	tail := `"}`
	upstreamBody := head + strings.Repeat("a", maxLoginBody-len(head)-len(tail)) + tail
	p := newTestProxy(t, true, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, upstreamBody)
	})

	rec := postLogin(p, `{}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, len(upstreamBody), rec.Body.Len())
}

func TestNewLoginProxy_InvalidTarget(t *testing.T) {
	_, err := NewLoginProxy("not a url", testLogger(), true, nil)
	assert.Error(t, err)
}

// =============================================================================
// Login page
// =============================================================================

type renderCall struct {
	Status int
	Name   string
	Data   interface{}
}

type fakeRenderer struct {
	calls []renderCall
}

func (f *fakeRenderer) RenderHTTP(w http.ResponseWriter, name string, data interface{}) {
	f.RenderHTTPStatus(w, http.StatusOK, name, data)
}

func (f *fakeRenderer) RenderHTTPStatus(w http.ResponseWriter, status int, name string, data interface{}) {
	f.calls = append(f.calls, renderCall{Status: status, Name: name, Data: data})
	w.WriteHeader(status)
}

func (f *fakeRenderer) RenderPartial(w http.ResponseWriter, name string, data interface{}) {
	f.calls = append(f.calls, renderCall{Status: http.StatusOK, Name: "partial/" + name, Data: data})
}

func (f *fakeRenderer) last(t *testing.T) renderCall {
	t.Helper()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

type fakeAuthenticator struct {
	login domain.LoginData
	err   error
	got   api.Credentials
}

func (f *fakeAuthenticator) Login(_ context.Context, creds api.Credentials) (domain.LoginData, error) {
	f.got = creds
	return f.login, f.err
}

func postForm(h http.HandlerFunc, target string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestAuthHandler_LoginSuccess(t *testing.T) {
	auth := &fakeAuthenticator{login: domain.LoginData{AccessToken: "tok_9", User: domain.Account{ID: "u1"}}}
	h := NewAuthHandler(auth, &fakeRenderer{}, testLogger(), true)

	rec := postForm(h.Login, "/login", url.Values{
		"username":  {" admin "},
		"password":  {"secret"},
		"return_to": {"/orders?page=2"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/orders?page=2", rec.Header().Get("Location"))
	assert.Equal(t, api.Credentials{Username: "admin", Password: "secret"}, auth.got)

	c := tokenCookie(rec)
	require.NotNil(t, c)
	assert.Equal(t, "tok_9", c.Value)
}

func TestAuthHandler_LoginIgnoresUnsafeReturnTo(t *testing.T) {
	auth := &fakeAuthenticator{login: domain.LoginData{AccessToken: "tok"}}
	h := NewAuthHandler(auth, &fakeRenderer{}, testLogger(), true)

	rec := postForm(h.Login, "/login", url.Values{
		"username":  {"admin"},
		"password":  {"secret"},
		"return_to": {"https://evil.example.com"},
	})

	assert.Equal(t, HomePath, rec.Header().Get("Location"))
}

func TestAuthHandler_LoginValidation(t *testing.T) {
	auth := &fakeAuthenticator{}
	renderer := &fakeRenderer{}
	h := NewAuthHandler(auth, renderer, testLogger(), true)

	rec := postForm(h.Login, "/login", url.Values{"username": {"admin"}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	call := renderer.last(t)
	assert.Equal(t, "auth/login", call.Name)
	data := call.Data.(AuthPageData)
	assert.Equal(t, "Password is required", data.Errors["password"])
	assert.Equal(t, "admin", data.Form["Username"])
	assert.NotEmpty(t, data.CSRFToken)
	assert.Empty(t, auth.got.Username, "api must not be called")
}

func TestAuthHandler_LoginRejectedShowsUpstreamMessage(t *testing.T) {
	auth := &fakeAuthenticator{err: domain.Upstream(nil, "auth.login", "Wrong username or password")}
	renderer := &fakeRenderer{}
	h := NewAuthHandler(auth, renderer, testLogger(), true)

	rec := postForm(h.Login, "/login", url.Values{"username": {"admin"}, "password": {"x"}})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	data := renderer.last(t).Data.(AuthPageData)
	require.NotNil(t, data.Flash)
	assert.Equal(t, "Wrong username or password", data.Flash.Message)
	assert.Nil(t, tokenCookie(rec))
}

func TestAuthHandler_LoginInternalErrorIsGeneric(t *testing.T) {
	auth := &fakeAuthenticator{err: domain.Internal(io.EOF, "auth.login", "The shop API is unreachable.")}
	renderer := &fakeRenderer{}
	h := NewAuthHandler(auth, renderer, testLogger(), true)

	rec := postForm(h.Login, "/login", url.Values{"username": {"admin"}, "password": {"x"}})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	data := renderer.last(t).Data.(AuthPageData)
	assert.Equal(t, "Login failed. Please try again later.", data.Flash.Message)
}

func TestAuthHandler_ShowLogin(t *testing.T) {
	renderer := &fakeRenderer{}
	h := NewAuthHandler(&fakeAuthenticator{}, renderer, testLogger(), true)

	rec := httptest.NewRecorder()
	h.ShowLogin(rec, httptest.NewRequest(http.MethodGet, "/login?logout=1&return_to=/customers", nil))

	data := renderer.last(t).Data.(AuthPageData)
	assert.Equal(t, "/customers", data.ReturnTo)
	require.NotNil(t, data.Flash)
	assert.Equal(t, "info", data.Flash.Type)
}

func TestAuthHandler_Logout(t *testing.T) {
	h := NewAuthHandler(&fakeAuthenticator{}, &fakeRenderer{}, testLogger(), true)

	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?logout=1", rec.Header().Get("Location"))
	c := tokenCookie(rec)
	require.NotNil(t, c)
	assert.Less(t, c.MaxAge, 0)
}

func TestAuthHandler_LogoutAPI(t *testing.T) {
	h := NewAuthHandler(&fakeAuthenticator{}, &fakeRenderer{}, testLogger(), true)

	rec := httptest.NewRecorder()
	h.LogoutAPI(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":null,"errorCode":0,"message":"Signed out"}`, rec.Body.String())
	require.NotNil(t, tokenCookie(rec))
}
