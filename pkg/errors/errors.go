package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors, one per error kind. Every AppError built by the
// constructors below unwraps to exactly one of them.
var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("resource not found")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrAggregation    = errors.New("aggregation failed")
	ErrStore          = errors.New("store error")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of the error carrying the given details payload.
func (e *AppError) WithDetails(details any) *AppError {
	cpy := *e
	cpy.Details = details
	return &cpy
}

// Validation creates a 400 error for malformed client input.
func Validation(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrValidation,
	}
}

// NotFound creates a 404 error.
func NotFound(message string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: message,
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// ServiceUnavailable creates a 502 error for an unreachable upstream dependency.
func ServiceUnavailable(message string, cause error) *AppError {
	return &AppError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     join(ErrServiceUnavail, cause),
	}
}

// Aggregation creates a 500 error for a failed grouped query. The cause is
// kept for logs only.
func Aggregation(cause error) *AppError {
	return &AppError{
		Code:    "AGGREGATION_FAILED",
		Message: "Aggregation failed",
		Status:  http.StatusInternalServerError,
		Err:     join(ErrAggregation, cause),
	}
}

// Store creates a 400 error for rejected identifiers or schema violations
// reported by the persistence layer.
func Store(message string, cause error) *AppError {
	return &AppError{
		Code:    "STORE_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     join(ErrStore, cause),
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrStore):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func join(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
