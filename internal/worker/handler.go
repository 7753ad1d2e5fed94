package worker

import (
	"context"
	"errors"
	"time"
)

// JobHandler is one sweep the janitor runs on every tick.
type JobHandler interface {
	// Type names the job in logs and metrics. It must be unique.
	Type() string

	// Handle runs one sweep. now is the tick time; jobs derive their
	// cutoffs from it. Return a PermanentError to stop the job from being
	// scheduled again.
	Handle(ctx context.Context, now time.Time) error
}

// PermanentError wraps an error to indicate the job should not run again.
type PermanentError struct {
	Err error
}

// Error implements the error interface.
func (e *PermanentError) Error() string {
	return e.Err.Error()
}

// Unwrap allows errors.Is and errors.As to work with PermanentError.
func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError creates a new PermanentError that wraps the given error.
func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent checks if an error is a PermanentError.
// Returns true if the error (or any error it wraps) is a PermanentError.
func IsPermanent(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}
