// Package errs defines the error taxonomy shared by every aggregate:
// handlers map these to HTTP statuses, services wrap them with %w.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// NotFoundError covers missing orders, pre-orders, products, customers and
// payment sessions. Surfaced as 404.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NotFound(resource string, id interface{}) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: fmt.Sprint(id)}
}

// InvalidStateError is an operation attempted from a disallowed status.
// Surfaced as 400 with the current status named in the message.
type InvalidStateError struct {
	Op     string
	Status string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s not allowed: current status is %s", e.Op, e.Status)
}

func InvalidState(op, status string) *InvalidStateError {
	return &InvalidStateError{Op: op, Status: status}
}

// InsufficientStockError names the offending product and the available vs
// requested quantities. Surfaced as 400.
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s. Available: %d, Requested: %d",
		e.ProductName, e.Available, e.Requested)
}

// ValidationError is a missing or malformed request field. Surfaced as 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Unauthorized / Forbidden cover ownership and role mismatches.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// HTTPStatus maps any error to the status code the JSON envelope should
// carry. Unknown errors are 500.
func HTTPStatus(err error) int {
	var (
		notFound     *NotFoundError
		invalidState *InvalidStateError
		stock        *InsufficientStockError
		validation   *ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalidState), errors.As(err, &stock), errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
