package domain

import (
	"net/url"
	"strconv"
)

// Response is the envelope every REST API endpoint answers with.
// ErrorCode 0 means success.
type Response[T any] struct {
	Data      T      `json:"data"`
	ErrorCode int    `json:"errorCode"`
	Message   string `json:"message"`
}

// OK reports whether the upstream call succeeded.
func (r Response[T]) OK() bool {
	return r.ErrorCode == 0
}

// ListResponse is the payload of list endpoints.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// ListParams are the query parameters accepted by list endpoints.
type ListParams struct {
	Page    int
	Limit   int
	OrderBy string
	Search  string
	Filters map[string]string
}

// DefaultListLimit is used when ListParams.Limit is unset.
const DefaultListLimit = 10

// Values encodes the params as a query string.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	page := p.Page
	if page < 1 {
		page = 1
	}
	limit := p.Limit
	if limit < 1 {
		limit = DefaultListLimit
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	if p.OrderBy != "" {
		v.Set("orderBy", p.OrderBy)
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	for k, val := range p.Filters {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v
}

// TotalPages returns how many pages of size limit cover total items.
func TotalPages(total, limit int) int {
	if limit < 1 {
		limit = DefaultListLimit
	}
	if total <= 0 {
		return 1
	}
	return (total + limit - 1) / limit
}
