// Package handler contains the HTTP handlers of the shopdesk dashboard.
//
// Pages are html/template documents rendered by Renderer; the fragments
// htmx swaps in (file lists, address selects, the delete modal) are templ
// components from the view package.
package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/DukeRupert/shopdesk/internal/csrf"
	"github.com/DukeRupert/shopdesk/internal/domain"
)

// MaxListLimit caps the page size a list request may ask for.
const MaxListLimit = 100

// TemplateRenderer is the interface for rendering HTML templates.
// This interface allows for mocking in tests.
type TemplateRenderer interface {
	RenderHTTP(w http.ResponseWriter, name string, data interface{})
	RenderHTTPStatus(w http.ResponseWriter, status int, name string, data interface{})
	RenderPartial(w http.ResponseWriter, name string, data interface{})
}

// =============================================================================
// Template Data Types
// =============================================================================

// Flash represents a flash message to display to the user.
//
// The Type field determines styling in templates:
// - "success" -> green background
// - "error"   -> red background
// - "info"    -> blue background
type Flash struct {
	Type    string
	Message string
}

// Page contains the data shared by every dashboard page.
type Page struct {
	CurrentPath string // Current URL path for navigation highlighting
	CSRFToken   string // Echoed by forms and the hx-headers of the layout
	Flash       *Flash // Flash message to display
}

// PaginationData contains pagination information for list views.
type PaginationData struct {
	CurrentPage int    // Current page number (1-indexed)
	TotalPages  int    // Total number of pages
	PerPage     int    // Results per page
	Total       int    // Total number of results
	HasPrevious bool   // True if previous page exists
	HasNext     bool   // True if next page exists
	PrevPage    int    // Previous page number
	NextPage    int    // Next page number
	Query       string // Search and ordering carried into page links
}

// newPage builds the shared page data, issuing a CSRF cookie if the
// browser has none yet.
func newPage(w http.ResponseWriter, r *http.Request, isSecure bool) (Page, error) {
	token, err := csrf.EnsureToken(w, r, isSecure)
	if err != nil {
		return Page{}, domain.Internal(err, "page.csrf", "failed to issue form token")
	}
	return Page{
		CurrentPath: r.URL.Path,
		CSRFToken:   token,
		Flash:       flashFromQuery(r.URL.Query()),
	}, nil
}

// flashFromQuery turns the markers left by post-redirect-get into a flash.
func flashFromQuery(q url.Values) *Flash {
	switch {
	case q.Get("saved") == "1":
		return &Flash{Type: "success", Message: "Changes saved."}
	case q.Get("created") == "1":
		return &Flash{Type: "success", Message: "Record created."}
	case q.Get("deleted") == "1":
		return &Flash{Type: "success", Message: "Record deleted."}
	case q.Get("logout") == "1":
		return &Flash{Type: "info", Message: "You have been signed out."}
	}
	return nil
}

// =============================================================================
// List Parameters
// =============================================================================

// parseListParams reads page, limit, search and orderBy from the query.
// Out of range numbers fall back to the defaults.
func parseListParams(r *http.Request) domain.ListParams {
	q := r.URL.Query()

	params := domain.ListParams{
		Page:    1,
		Limit:   domain.DefaultListLimit,
		OrderBy: strings.TrimSpace(q.Get("orderBy")),
		Search:  strings.TrimSpace(q.Get("search")),
	}
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		params.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		params.Limit = min(l, MaxListLimit)
	}
	return params
}

// newPagination derives the pager for a list response.
func newPagination(params domain.ListParams, total int) PaginationData {
	totalPages := domain.TotalPages(total, params.Limit)
	page := min(params.Page, totalPages)

	carried := url.Values{}
	if params.Search != "" {
		carried.Set("search", params.Search)
	}
	if params.OrderBy != "" {
		carried.Set("orderBy", params.OrderBy)
	}
	if params.Limit != domain.DefaultListLimit {
		carried.Set("limit", strconv.Itoa(params.Limit))
	}

	return PaginationData{
		CurrentPage: page,
		TotalPages:  totalPages,
		PerPage:     params.Limit,
		Total:       total,
		HasPrevious: page > 1,
		HasNext:     page < totalPages,
		PrevPage:    page - 1,
		NextPage:    page + 1,
		Query:       carried.Encode(),
	}
}

// =============================================================================
// Redirect Helpers
// =============================================================================

// isSafeRedirectURL reports whether rawURL is a local path. Absolute and
// protocol-relative URLs are rejected to prevent open redirects.
func isSafeRedirectURL(rawURL string) bool {
	if !strings.HasPrefix(rawURL, "/") || strings.HasPrefix(rawURL, "//") {
		return false
	}
	// Browsers treat a backslash like a slash.
	if strings.HasPrefix(rawURL, `/\`) {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Scheme == "" && parsed.Host == ""
}

// redirect sends the browser to target. htmx requests get HX-Redirect so
// the whole page navigates instead of swapping the response in.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// loginURL returns the sign-in page, coming back to the current page
// afterwards when it is a plain GET.
func loginURL(r *http.Request) string {
	if r.Method != http.MethodGet || isHTMX(r) {
		return "/login"
	}
	return "/login?return_to=" + url.QueryEscape(r.URL.RequestURI())
}

// withMarker appends a post-redirect-get marker to a local path.
func withMarker(target, marker string) string {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + marker + "=1"
}
