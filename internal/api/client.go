// Package api is the client for the shop's REST API.
//
// Every endpoint answers with the {data, errorCode, message} envelope. A
// non-zero errorCode is returned as a domain EUPSTREAM error carrying the
// upstream message, so handlers can show it as-is.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DukeRupert/shopdesk/internal/auth"
	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/DukeRupert/shopdesk/internal/metrics"
)

// DefaultTimeout bounds a single REST API call.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is read for the message.
const maxErrorBody = 64 << 10

// Client talks to the REST API on behalf of the signed-in operator. The
// bearer token is read from the request context on every call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Products returns the products resource.
func (c *Client) Products() *Products {
	return &Products{Resource: Resource[domain.Product]{c: c, path: "products"}}
}

// Customers returns the customers resource. The API exposes shop
// customers as users.
func (c *Client) Customers() Resource[domain.Customer] {
	return Resource[domain.Customer]{c: c, path: "users"}
}

// Orders returns the orders resource.
func (c *Client) Orders() Resource[domain.Order] {
	return Resource[domain.Order]{c: c, path: "orders"}
}

// =============================================================================
// Transport
// =============================================================================

// request is one outgoing call. Exactly one of JSON or Body is used.
type request struct {
	Op          string
	Method      string
	Path        string
	JSON        any
	Body        io.Reader
	ContentType string
}

// do sends the request and returns the raw body of a 2xx response.
// Transport failures and HTTP errors are mapped to domain errors.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	var body io.Reader = req.Body
	contentType := req.ContentType
	if req.JSON != nil {
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, domain.Internal(err, req.Op, "failed to encode request")
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+"/"+strings.TrimLeft(req.Path, "/"), body)
	if err != nil {
		return nil, domain.Internal(err, req.Op, "failed to create request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token := auth.Token(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resource := resourceLabel(req.Path)
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.UpstreamCall(resource, req.Method, 0, err, time.Since(start))
		c.logger.Error("api request failed", "op", req.Op, "method", req.Method, "path", req.Path, "error", err)
		return nil, domain.Internal(err, req.Op, "The shop API is unreachable. Please try again.")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := statusError(req.Op, resp.StatusCode, raw)
		metrics.UpstreamCall(resource, req.Method, resp.StatusCode, apiErr, time.Since(start))
		c.logger.Warn("api request rejected",
			"op", req.Op,
			"method", req.Method,
			"path", req.Path,
			"status", resp.StatusCode,
			"message", apiErr.Message,
		)
		return nil, apiErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamCall(resource, req.Method, resp.StatusCode, err, time.Since(start))
		return nil, domain.Internal(err, req.Op, "failed to read response")
	}
	metrics.UpstreamCall(resource, req.Method, resp.StatusCode, nil, time.Since(start))
	return data, nil
}

// statusError maps an HTTP error response to a domain error. The envelope
// message is used when the body carries one.
func statusError(op string, status int, raw []byte) *domain.Error {
	msg := extractMessage(raw)
	switch status {
	case http.StatusUnauthorized:
		if msg == "" {
			msg = "Your session has expired. Please sign in again."
		}
		return domain.Unauthorized(op, msg)
	case http.StatusForbidden:
		if msg == "" {
			msg = "You do not have permission to do that."
		}
		return &domain.Error{Code: domain.EFORBIDDEN, Op: op, Message: msg}
	case http.StatusNotFound:
		if msg == "" {
			msg = "The record no longer exists."
		}
		return &domain.Error{Code: domain.ENOTFOUND, Op: op, Message: msg}
	case http.StatusRequestEntityTooLarge:
		if msg == "" {
			msg = "The upload is too large."
		}
		return &domain.Error{Code: domain.ETOOLARGE, Op: op, Message: msg}
	case http.StatusTooManyRequests:
		return domain.RateLimit(op)
	}
	if msg == "" {
		msg = fmt.Sprintf("The shop API returned %d.", status)
	}
	return domain.Upstream(fmt.Errorf("api status %d", status), op, msg)
}

// extractMessage pulls a human readable message out of an error body.
func extractMessage(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	var env struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	return parseErrorValue(env.Error)
}

func parseErrorValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Message
	}
	return ""
}

// resourceLabel keeps the first path segment so metric labels stay bounded.
func resourceLabel(path string) string {
	path = strings.TrimLeft(path, "/")
	if i := strings.IndexAny(path, "/?"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "root"
	}
	return path
}

// =============================================================================
// Envelope decoding
// =============================================================================

// errEnvelope is wrapped by every EUPSTREAM error built from errorCode != 0.
var errEnvelope = errors.New("api envelope error")

func decodeOne[T any](op string, data []byte) (T, error) {
	var env domain.Response[T]
	if err := json.Unmarshal(data, &env); err != nil {
		var zero T
		return zero, domain.Internal(err, op, "failed to decode response")
	}
	if !env.OK() {
		var zero T
		return zero, envelopeError(op, env.ErrorCode, env.Message)
	}
	return env.Data, nil
}

func decodeList[T any](op string, data []byte) (domain.ListResponse[T], error) {
	var env struct {
		Data      []T    `json:"data"`
		Total     int    `json:"total"`
		ErrorCode int    `json:"errorCode"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return domain.ListResponse[T]{}, domain.Internal(err, op, "failed to decode response")
	}
	if env.ErrorCode != 0 {
		return domain.ListResponse[T]{}, envelopeError(op, env.ErrorCode, env.Message)
	}
	if env.Data == nil {
		env.Data = []T{}
	}
	return domain.ListResponse[T]{Data: env.Data, Total: env.Total}, nil
}

func envelopeError(op string, code int, message string) *domain.Error {
	if message == "" {
		message = fmt.Sprintf("The shop API rejected the request (code %d).", code)
	}
	return domain.Upstream(fmt.Errorf("%w: code %d", errEnvelope, code), op, message)
}

func buildQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}
