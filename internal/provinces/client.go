// Package provinces reads Vietnamese administrative units (provinces,
// districts, wards) from the public provinces API.
package provinces

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DukeRupert/shopdesk/internal/domain"
)

// DefaultBaseURL is the public API the dashboard uses by default.
const DefaultBaseURL = "https://provinces.open-api.vn/api"

// maxBodyBytes bounds a single response. The full province list is ~10 KB.
const maxBodyBytes = 4 << 20

// Client implements address.Source over HTTP. Responses are kept in an
// optional Cache so every form does not hit the API again.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *DiskCache
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache keeps raw responses in cache.
func WithCache(cache *DiskCache) Option {
	return func(c *Client) { c.cache = cache }
}

func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provinces lists every province without children.
func (c *Client) Provinces(ctx context.Context) ([]domain.Province, error) {
	var out []domain.Province
	if err := c.get(ctx, "p/", nil, "p_all", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Districts returns the districts of a province.
func (c *Client) Districts(ctx context.Context, provinceCode string) ([]domain.District, error) {
	var p domain.Province
	path := "p/" + url.PathEscape(provinceCode)
	if err := c.get(ctx, path, depth2, "p_"+cacheSafe(provinceCode), &p); err != nil {
		return nil, err
	}
	return p.Districts, nil
}

// Wards returns the wards of a district.
func (c *Client) Wards(ctx context.Context, districtCode string) ([]domain.Ward, error) {
	var d domain.District
	path := "d/" + url.PathEscape(districtCode)
	if err := c.get(ctx, path, depth2, "d_"+cacheSafe(districtCode), &d); err != nil {
		return nil, err
	}
	return d.Wards, nil
}

var depth2 = url.Values{"depth": {"2"}}

// get fetches path and decodes the JSON body into out, consulting the
// cache under cacheKey first.
func (c *Client) get(ctx context.Context, path string, query url.Values, cacheKey string, out any) error {
	if c.cache != nil {
		if body, ok := c.cache.Get(cacheKey); ok {
			if err := json.Unmarshal(body, out); err == nil {
				return nil
			}
			c.cache.Erase(cacheKey)
		}
	}

	u := c.baseURL + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("provinces: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provinces: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("provinces: read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provinces: GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("provinces: decode %s: %w", path, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(cacheKey, body); err != nil {
			c.logger.Warn("failed to cache options", "key", cacheKey, "error", err)
		}
	}
	return nil
}

// cacheSafe keeps codes usable as file names.
func cacheSafe(code string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			return r
		}
		return '-'
	}, code)
}
