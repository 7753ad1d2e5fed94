package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/shopdesk/internal/domain"
)

func TestParseListParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  domain.ListParams
	}{
		{"defaults", "", domain.ListParams{Page: 1, Limit: domain.DefaultListLimit}},
		{"explicit", "page=3&limit=25&search=%20ao%20&orderBy=name", domain.ListParams{Page: 3, Limit: 25, Search: "ao", OrderBy: "name"}},
		{"limit capped", "limit=5000", domain.ListParams{Page: 1, Limit: MaxListLimit}},
		{"garbage ignored", "page=-2&limit=abc", domain.ListParams{Page: 1, Limit: domain.DefaultListLimit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/products?"+tt.query, nil)
			assert.Equal(t, tt.want, parseListParams(r))
		})
	}
}

func TestNewPagination(t *testing.T) {
	p := newPagination(domain.ListParams{Page: 2, Limit: 10, Search: "ao"}, 25)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 2, p.CurrentPage)
	assert.True(t, p.HasPrevious)
	assert.True(t, p.HasNext)
	assert.Equal(t, 1, p.PrevPage)
	assert.Equal(t, 3, p.NextPage)
	assert.Equal(t, "search=ao", p.Query)

	// A page past the end is clamped to the last one.
	last := newPagination(domain.ListParams{Page: 9, Limit: 20}, 25)
	assert.Equal(t, 2, last.CurrentPage)
	assert.False(t, last.HasNext)
	assert.Equal(t, "limit=20", last.Query)

	empty := newPagination(domain.ListParams{Page: 1, Limit: 10}, 0)
	assert.Equal(t, 1, empty.TotalPages)
	assert.False(t, empty.HasPrevious)
	assert.False(t, empty.HasNext)
}

func TestIsSafeRedirectURL(t *testing.T) {
	safe := []string{"/products", "/orders/o1?saved=1", "/"}
	unsafe := []string{"", "products", "//evil.example", `/\evil.example`, "https://evil.example/", "javascript:alert(1)"}

	for _, u := range safe {
		assert.True(t, isSafeRedirectURL(u), u)
	}
	for _, u := range unsafe {
		assert.False(t, isSafeRedirectURL(u), u)
	}
}

func TestWithMarker(t *testing.T) {
	assert.Equal(t, "/products?deleted=1", withMarker("/products", "deleted"))
	assert.Equal(t, "/orders?status=PENDING&deleted=1", withMarker("/orders?status=PENDING", "deleted"))
}

func TestLoginURL(t *testing.T) {
	get := httptest.NewRequest("GET", "/customers/u1?tab=address", nil)
	assert.Equal(t, "/login?return_to="+url.QueryEscape("/customers/u1?tab=address"), loginURL(get))

	post := httptest.NewRequest("POST", "/customers/drafts/x", nil)
	assert.Equal(t, "/login", loginURL(post))

	hx := httptest.NewRequest("GET", "/orders", nil)
	hx.Header.Set("HX-Request", "true")
	assert.Equal(t, "/login", loginURL(hx))
}

func TestFlashFromQuery(t *testing.T) {
	assert.Nil(t, flashFromQuery(url.Values{}))
	assert.Equal(t, &Flash{Type: "success", Message: "Changes saved."}, flashFromQuery(url.Values{"saved": {"1"}}))
	assert.Equal(t, "Record deleted.", flashFromQuery(url.Values{"deleted": {"1"}}).Message)
	assert.Equal(t, "info", flashFromQuery(url.Values{"logout": {"1"}}).Type)
}

func TestNewPageIssuesCSRFCookie(t *testing.T) {
	r := httptest.NewRequest("GET", "/orders?saved=1", nil)
	w := httptest.NewRecorder()

	page, err := newPage(w, r, false)
	require.NoError(t, err)
	assert.Equal(t, "/orders", page.CurrentPath)
	assert.NotEmpty(t, page.CSRFToken)
	require.NotNil(t, page.Flash)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "csrf_token=")
}

func TestRedirect(t *testing.T) {
	r := httptest.NewRequest("POST", "/orders/o1", nil)
	w := httptest.NewRecorder()
	redirect(w, r, "/orders/o1?saved=1")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/orders/o1?saved=1", w.Header().Get("Location"))

	r.Header.Set("HX-Request", "true")
	w = httptest.NewRecorder()
	redirect(w, r, "/orders")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "/orders", w.Header().Get("HX-Redirect"))
}

// =============================================================================
// Renderer
// =============================================================================

func testTemplates() fstest.MapFS {
	return fstest.MapFS{
		"layouts/auth.html":     {Data: []byte(`{{define "auth"}}<main class="auth">{{template "content" .}}</main>{{end}}`)},
		"layouts/app.html":      {Data: []byte(`{{define "app"}}<nav>{{.CurrentPath}}</nav>{{template "content" .}}{{end}}`)},
		"components/badge.html": {Data: []byte(`{{define "badge"}}<span>{{.}}</span>{{end}}`)},
		"partials/row.html":     {Data: []byte(`{{define "row"}}<tr>{{template "badge" .Name}}</tr>{{end}}`)},
		"pages/auth/login.html": {Data: []byte(`{{define "content"}}login {{csrfField .CSRFToken}}{{end}}`)},
		"pages/orders.html":     {Data: []byte(`{{define "content"}}orders {{money .Total}}{{end}}`)},
	}
}

func TestRenderer(t *testing.T) {
	r, err := NewRenderer(RendererConfig{FS: testTemplates(), Logger: testLogger()})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"auth/login", "orders", "partial/row"}, r.ListTemplates())

	t.Run("app page", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.RenderHTTPStatus(w, http.StatusUnprocessableEntity, "orders", map[string]any{"CurrentPath": "/orders", "Total": 150000})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "<nav>/orders</nav>")
		assert.Contains(t, w.Body.String(), "150.000")
	})

	t.Run("auth page", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.RenderHTTP(w, "auth/login", map[string]any{"CSRFToken": "tok"})
		assert.Contains(t, w.Body.String(), `<main class="auth">`)
		assert.Contains(t, w.Body.String(), `name="csrf_token" value="tok"`)
	})

	t.Run("partial", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.RenderPartial(w, "row", map[string]any{"Name": "Áo thun"})
		assert.Equal(t, "<tr><span>Áo thun</span></tr>", w.Body.String())
	})

	t.Run("unknown", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.RenderHTTP(w, "missing", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRendererRequiresTemplates(t *testing.T) {
	_, err := NewRenderer(RendererConfig{Logger: testLogger()})
	assert.Error(t, err)
}

func TestPageRange(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, pageRange(2, 3))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, pageRange(1, 20))
	assert.Equal(t, []int{7, 8, 9, 10, 11, 12, 13}, pageRange(10, 20))
	assert.Equal(t, []int{14, 15, 16, 17, 18, 19, 20}, pageRange(20, 20))
}

// =============================================================================
// Health
// =============================================================================

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		db     Pinger
		status int
		body   string
	}{
		{"memory drafts", nil, http.StatusOK, `"drafts":"memory"`},
		{"postgres up", stubPinger{}, http.StatusOK, `"drafts":"postgres"`},
		{"postgres down", stubPinger{err: errors.New("refused")}, http.StatusServiceUnavailable, `"status":"unavailable"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Health(tt.db, testLogger())(w, httptest.NewRequest("GET", "/health", nil))
			assert.Equal(t, tt.status, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.body), w.Body.String())
		})
	}
}
