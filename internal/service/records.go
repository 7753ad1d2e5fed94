package service

import (
	"context"

	"github.com/DukeRupert/shopdesk/internal/domain"
)

// Records is the REST API surface a service needs for one record type.
// api.Resource satisfies it.
type Records[T any] interface {
	List(ctx context.Context, params domain.ListParams) (domain.ListResponse[T], error)
	Get(ctx context.Context, id string) (T, error)
	Update(ctx context.Context, id string, partial any) (T, error)
	Add(ctx context.Context, payload any) (T, error)
	Delete(ctx context.Context, id string) (string, error)
}

// mergeValidation folds a field error into err, which may be nil.
func mergeValidation(err error, op, field, message string) error {
	if err == nil {
		return domain.NewValidationError(op, field, message)
	}
	return domain.AddFieldError(err, field, message)
}
