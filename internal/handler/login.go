package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/DukeRupert/shopdesk/internal/api"
	"github.com/DukeRupert/shopdesk/internal/csrf"
	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/DukeRupert/shopdesk/internal/metrics"
	"github.com/DukeRupert/shopdesk/internal/session"
)

// HomePath is where a successful sign-in lands when no return_to is given.
const HomePath = "/products"

// maxLoginBody caps the login response the proxy buffers.
const maxLoginBody = 1 << 20

// errLoginTooLarge fails a login response over maxLoginBody; the proxy
// answers 502 instead of relaying a truncated body.
var errLoginTooLarge = errors.New("login response too large")

// methodNotSupported is the exact body sent for non-POST login requests.
var methodNotSupported = []byte(`{"data":null,"errorCode":0,"message":"Method is not supported"}`)

// =============================================================================
// POST /api/auth/login - Login Proxy
// =============================================================================

// LoginProxy relays login requests to the REST API and turns a successful
// answer into the access_token cookie.
//
// Behaviour:
// - Only POST is accepted; anything else gets 404 with an envelope body
// - The browser's Cookie header is never forwarded
// - errorCode == 0 sets the cookie; the body is relayed verbatim with 200
// - errorCode != 0 relays the body with 200 and no cookie
// - A body that is not JSON is relayed with the upstream status
// - A body over maxLoginBody, or an unreachable upstream, gets 502
type LoginProxy struct {
	proxy    *httputil.ReverseProxy
	logger   *slog.Logger
	isSecure bool
}

// NewLoginProxy creates a proxy that forwards to target, the absolute URL
// of the upstream login endpoint.
func NewLoginProxy(target string, logger *slog.Logger, isSecure bool, transport http.RoundTripper) (*LoginProxy, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid login target %q", target)
	}

	p := &LoginProxy{logger: logger, isSecure: isSecure}
	p.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			out := *u
			pr.Out.URL = &out
			pr.Out.Host = u.Host
			pr.Out.Header.Del("Cookie")
			// Let the transport negotiate compression so the body can be read.
			pr.Out.Header.Del("Accept-Encoding")
			pr.SetXForwarded()
		},
		Transport:      transport,
		ModifyResponse: p.modifyResponse,
		ErrorHandler:   p.handleError,
	}
	return p, nil
}

// ServeHTTP implements http.Handler.
func (p *LoginProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write(methodNotSupported)
		return
	}
	p.proxy.ServeHTTP(w, r)
}

func (p *LoginProxy) modifyResponse(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLoginBody+1))
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read login response: %w", err)
	}
	if len(body) > maxLoginBody {
		return fmt.Errorf("%w: over %d bytes", errLoginTooLarge, maxLoginBody)
	}
	defer resetBody(resp, body)

	var env domain.Response[json.RawMessage]
	if err := json.Unmarshal(body, &env); err != nil {
		p.logger.Warn("login response is not json", "status", resp.StatusCode)
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil
	}

	resp.StatusCode = http.StatusOK
	resp.Status = "200 OK"

	if !env.OK() {
		p.logger.Info("login rejected", "error_code", env.ErrorCode)
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		return nil
	}

	var data domain.LoginData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.AccessToken == "" {
		p.logger.Warn("login response has no access token")
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil
	}

	resp.Header.Add("Set-Cookie", session.TokenCookie(data.AccessToken, p.isSecure).String())
	p.logger.Info("operator signed in", "user_id", data.User.ID, "username", data.User.Username)
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return nil
}

func (p *LoginProxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	p.logger.Error("login proxy failed", "error", err)
	metrics.LoginsTotal.WithLabelValues("error").Inc()
	writeEnvelope(w, http.StatusBadGateway, http.StatusBadGateway, "The shop API is unreachable. Please try again.")
}

// resetBody replaces a consumed response body and fixes its length.
func resetBody(resp *http.Response, body []byte) {
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	resp.Header.Del("Content-Encoding")
}

// writeEnvelope writes a {data, errorCode, message} body with a null data.
func writeEnvelope(w http.ResponseWriter, status, errorCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.Response[any]{ErrorCode: errorCode, Message: message})
}

// =============================================================================
// Login Page
// =============================================================================

// Authenticator exchanges credentials for an access token. api.Client
// satisfies it.
type Authenticator interface {
	Login(ctx context.Context, creds api.Credentials) (domain.LoginData, error)
}

// AuthPageData contains the data for the login page.
type AuthPageData struct {
	CurrentPath string            // Current URL path
	CSRFToken   string            // CSRF token for form protection
	Form        map[string]string // Form field values for re-populating on error
	Errors      map[string]string // Field-level validation errors
	Flash       *Flash            // Flash message to display
	ReturnTo    string            // URL to redirect to after successful login
}

// AuthHandler serves the sign-in page and sign-out for the dashboard.
//
// Routes handled:
// - GET  /login           -> ShowLogin
// - POST /login           -> Login
// - POST /logout          -> Logout
// - POST /api/auth/logout -> LogoutAPI
type AuthHandler struct {
	auth     Authenticator
	renderer TemplateRenderer
	logger   *slog.Logger
	isSecure bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth Authenticator, renderer TemplateRenderer, logger *slog.Logger, isSecure bool) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		renderer: renderer,
		logger:   logger,
		isSecure: isSecure,
	}
}

// RegisterRoutes registers the sign-in routes. limit wraps the routes
// that submit credentials.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, limit func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /login", h.ShowLogin)
	mux.Handle("POST /login", limit(http.HandlerFunc(h.Login)))
	mux.HandleFunc("POST /logout", h.Logout)
	mux.HandleFunc("POST /api/auth/logout", h.LogoutAPI)
}

// ShowLogin renders the login form.
//
// Template: auth/login
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, http.StatusOK, nil, nil, flashFromQuery(r.URL.Query()), r.URL.Query().Get("return_to"))
}

// Login processes the login form submission.
//
// Form Fields:
// - username (required)
// - password (required)
// - return_to (optional): local URL to redirect to after signing in
//
// The upstream message is shown when the API rejects the credentials.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderLogin(w, r, http.StatusBadRequest, nil, nil, &Flash{
			Type:    "error",
			Message: "Invalid form submission. Please try again.",
		}, "")
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	returnTo := r.FormValue("return_to")

	formValues := map[string]string{"Username": username}

	errors := make(map[string]string)
	if username == "" {
		errors["username"] = "Username is required"
	}
	if password == "" {
		errors["password"] = "Password is required"
	}
	if len(errors) > 0 {
		h.renderLogin(w, r, http.StatusUnprocessableEntity, formValues, errors, nil, returnTo)
		return
	}

	login, err := h.auth.Login(r.Context(), api.Credentials{Username: username, Password: password})
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.EUPSTREAM, domain.EUNAUTHORIZED, domain.EINVALID:
			metrics.LoginsTotal.WithLabelValues("rejected").Inc()
			h.renderLogin(w, r, http.StatusUnauthorized, formValues, nil, &Flash{
				Type:    "error",
				Message: domain.ErrorMessage(err),
			}, returnTo)
		default:
			metrics.LoginsTotal.WithLabelValues("error").Inc()
			h.logger.Error("login failed", "error", err, "username", username)
			h.renderLogin(w, r, http.StatusBadGateway, formValues, nil, &Flash{
				Type:    "error",
				Message: "Login failed. Please try again later.",
			}, returnTo)
		}
		return
	}

	session.SetTokenCookie(w, login.AccessToken, h.isSecure)
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	h.logger.Info("operator signed in", "user_id", login.User.ID, "username", login.User.Username)

	target := HomePath
	if returnTo != "" && isSafeRedirectURL(returnTo) {
		target = returnTo
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Logout clears the access token cookie and returns to the login page.
// The upstream token is not revoked; it expires on its own.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session.ClearTokenCookie(w, h.isSecure)
	h.logger.Debug("operator signed out")
	redirect(w, r, "/login?logout=1")
}

// LogoutAPI clears the access token cookie for API clients.
func (h *AuthHandler) LogoutAPI(w http.ResponseWriter, r *http.Request) {
	session.ClearTokenCookie(w, h.isSecure)
	writeEnvelope(w, http.StatusOK, 0, "Signed out")
}

func (h *AuthHandler) renderLogin(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	formValues map[string]string,
	errors map[string]string,
	flash *Flash,
	returnTo string,
) {
	if formValues == nil {
		formValues = make(map[string]string)
	}
	if errors == nil {
		errors = make(map[string]string)
	}
	if !isSafeRedirectURL(returnTo) {
		returnTo = ""
	}

	token, err := csrf.EnsureToken(w, r, h.isSecure)
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	data := AuthPageData{
		CurrentPath: "/login",
		CSRFToken:   token,
		Form:        formValues,
		Errors:      errors,
		Flash:       flash,
		ReturnTo:    returnTo,
	}
	h.renderer.RenderHTTPStatus(w, status, "auth/login", data)
}
