package response

import (
	"errors"
	"net/http"

	"github.com/cfi/selfservice/internal/model"
)

// StatusFor maps an error kind onto the HTTP status of the page shown for it.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorTitle is the heading of the error page for status.
func ErrorTitle(status int) string {
	switch status {
	case http.StatusNotFound:
		return "Page Not Found"
	case http.StatusForbidden:
		return "Access Denied"
	case http.StatusServiceUnavailable:
		return "Service Unavailable"
	default:
		return http.StatusText(status)
	}
}

// ErrorMessage is the default text of the error page for status.
func ErrorMessage(status int) string {
	switch status {
	case http.StatusNotFound:
		return "The page you were looking for could not be found."
	case http.StatusForbidden:
		return "You do not have permission to view this page."
	case http.StatusServiceUnavailable:
		return "A service the portal depends on is unavailable. Please try again shortly."
	case http.StatusConflict:
		return "The record was changed by someone else. Please reload and try again."
	default:
		return "Something went wrong. Please try again."
	}
}
