package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/DukeRupert/shopdesk/internal/domain"
)

// Resource is the CRUD surface shared by every record type.
type Resource[T any] struct {
	c    *Client
	path string
}

// Path returns the collection path, e.g. "products".
func (r Resource[T]) Path() string {
	return r.path
}

func (r Resource[T]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

// List returns one page of records.
func (r Resource[T]) List(ctx context.Context, params domain.ListParams) (domain.ListResponse[T], error) {
	op := r.path + ".list"
	data, err := r.c.do(ctx, request{
		Op:     op,
		Method: http.MethodGet,
		Path:   buildQuery(r.path, params.Values()),
	})
	if err != nil {
		return domain.ListResponse[T]{}, err
	}
	return decodeList[T](op, data)
}

// Get returns a single record.
func (r Resource[T]) Get(ctx context.Context, id string) (T, error) {
	op := r.path + ".get"
	if id == "" {
		var zero T
		return zero, domain.Invalid(op, "id is required")
	}
	data, err := r.c.do(ctx, request{Op: op, Method: http.MethodGet, Path: r.itemPath(id)})
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeOne[T](op, data)
}

// Update sends a partial payload and returns the stored record.
func (r Resource[T]) Update(ctx context.Context, id string, partial any) (T, error) {
	op := r.path + ".update"
	if id == "" {
		var zero T
		return zero, domain.Invalid(op, "id is required")
	}
	data, err := r.c.do(ctx, request{Op: op, Method: http.MethodPut, Path: r.itemPath(id), JSON: partial})
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeOne[T](op, data)
}

// Add creates a record from a JSON payload.
func (r Resource[T]) Add(ctx context.Context, payload any) (T, error) {
	op := r.path + ".add"
	data, err := r.c.do(ctx, request{Op: op, Method: http.MethodPost, Path: r.path, JSON: payload})
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeOne[T](op, data)
}

// Delete removes a record and returns the id the API reports as deleted.
func (r Resource[T]) Delete(ctx context.Context, id string) (string, error) {
	op := r.path + ".delete"
	if id == "" {
		return "", domain.Invalid(op, "id is required")
	}
	data, err := r.c.do(ctx, request{Op: op, Method: http.MethodDelete, Path: r.itemPath(id)})
	if err != nil {
		return "", err
	}
	raw, err := decodeOne[json.RawMessage](op, data)
	if err != nil {
		return "", err
	}
	// Some endpoints answer with the deleted record rather than its id.
	var deleted string
	if err := json.Unmarshal(raw, &deleted); err != nil || deleted == "" {
		deleted = id
	}
	return deleted, nil
}
