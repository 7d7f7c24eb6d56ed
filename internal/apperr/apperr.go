// Package apperr defines the error taxonomy shared by the request handlers
// and the maintenance CLI. Business-rule failures are classified with one of
// the sentinel errors below so callers can map them to a response without
// string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors returned by service operations.
var (
	// ErrNotFound is returned when a student, book or transaction is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a return is attempted twice.
	ErrConflict = errors.New("conflict")

	// ErrLimitExceeded is returned when a borrower has reached the
	// active-loan cap for their role.
	ErrLimitExceeded = errors.New("borrow limit reached")

	// ErrUnavailable is returned when a book has no loanable copies left.
	ErrUnavailable = errors.New("not available")

	// ErrValidation is returned when a required input is missing or malformed.
	ErrValidation = errors.New("invalid input")

	// ErrForbidden is returned when a non-admin attempts an admin operation.
	ErrForbidden = errors.New("forbidden")
)

// NotFoundf wraps ErrNotFound with a caller-facing description.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// Validationf wraps ErrValidation with a caller-facing description.
func Validationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// HTTPStatus maps a classified error to a response status code. Unclassified
// errors are treated as internal.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrLimitExceeded), errors.Is(err, ErrUnavailable):
		return http.StatusBadRequest
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
