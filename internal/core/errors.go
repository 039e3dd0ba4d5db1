package core

import (
	"errors"

	"github.com/cfi/selfservice/internal/model"
)

// Error kinds. Adapters wrap these; handlers map them to status codes.
var (
	ErrNotFound     = model.ErrNotFound
	ErrConflict     = model.ErrConflict
	ErrUnavailable  = model.ErrUnavailable
	ErrUnauthorized = model.ErrUnauthorized
	ErrForbidden    = model.ErrForbidden
	ErrValidation   = model.ErrValidation
)

// ServiceError carries a message that is safe to show to the user next to
// the underlying error kind.
type ServiceError struct {
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ServiceError) Unwrap() error { return e.Err }

func newServiceError(msg string, err error) error {
	return &ServiceError{Message: msg, Err: err}
}

// UserMessage returns the user-facing message attached to err, or fallback.
func UserMessage(err error, fallback string) string {
	var se *ServiceError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}
