package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

type Category string

const (
	CategoryValidation      Category = "VALIDATION_ERROR"
	CategoryAuthentication  Category = "AUTHENTICATION_ERROR"
	CategoryAuthorization   Category = "AUTHORIZATION_ERROR"
	CategoryNotFound        Category = "NOT_FOUND_ERROR"
	CategoryRateLimit       Category = "RATE_LIMIT_ERROR"
	CategoryExternalService Category = "EXTERNAL_SERVICE_ERROR"
	CategoryNetwork         Category = "NETWORK_ERROR"
	CategoryTimeout         Category = "TIMEOUT_ERROR"
	CategoryInternal        Category = "INTERNAL_SERVER_ERROR"
)

// Classify maps an HTTP status code to its taxonomy category.
// Unrecognized status codes default to CategoryInternal.
func Classify(status int) Category {
	switch status {
	case http.StatusBadRequest:
		return CategoryValidation
	case http.StatusUnauthorized:
		return CategoryAuthentication
	case http.StatusForbidden:
		return CategoryAuthorization
	case http.StatusNotFound:
		return CategoryNotFound
	case http.StatusTooManyRequests:
		return CategoryRateLimit
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return CategoryExternalService
	case http.StatusGatewayTimeout:
		return CategoryTimeout
	default:
		return CategoryInternal
	}
}

// Retryable reports whether failures of this category are transient and
// worth another upstream attempt.
func Retryable(c Category) bool {
	switch c {
	case CategoryExternalService, CategoryNetwork, CategoryTimeout:
		return true
	default:
		return false
	}
}

// TripsBreaker reports whether failures of this category count toward a
// circuit breaker's failure threshold. Client-caused failures never do.
func TripsBreaker(c Category) bool {
	return Retryable(c)
}

// Error is an immutable error record carrying the taxonomy category,
// the HTTP status, and request correlation data.
type Error struct {
	Category  Category
	Status    int
	Message   string
	RequestID string
	Attempt   int
	Details   map[string]interface{}
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error with the category derived from the status code.
func New(status int, message string) *Error {
	return &Error{
		Category: Classify(status),
		Status:   status,
		Message:  message,
	}
}

// Wrap builds an Error around an underlying cause.
func Wrap(status int, message string, err error) *Error {
	e := New(status, message)
	e.Err = err
	return e
}

// FromError normalizes any error into an *Error. Already-classified
// errors pass through untouched. Network-level failures map to the
// NETWORK and TIMEOUT categories; anything unrecognized is INTERNAL.
func FromError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(http.StatusGatewayTimeout, "upstream request timed out", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Wrap(http.StatusGatewayTimeout, "upstream request timed out", err)
		}
		// Status maps to EXTERNAL_SERVICE, but a connection-level fault
		// is its own category.
		return &Error{
			Category: CategoryNetwork,
			Status:   http.StatusBadGateway,
			Message:  "network error contacting upstream",
			Err:      err,
		}
	}

	return Wrap(http.StatusInternalServerError, "internal server error", err)
}
