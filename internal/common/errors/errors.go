package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common sentinel errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")
)

// Validation failure reasons.
const (
	ReasonEmptyPayload         = "empty_payload"
	ReasonPayloadTooLarge      = "payload_too_large"
	ReasonUnsupportedExtension = "unsupported_extension"
	ReasonMissingProduct       = "missing_product"
)

// ValidationError rejects an upload before any work is done. It is the only
// failure an ingestion reports to its caller.
type ValidationError struct {
	Reason string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Reason, e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a ValidationError.
func NewValidationError(reason, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// AppError represents an application-specific error with an HTTP status code.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// MapError maps a common error to an AppError with an appropriate HTTP status code.
func MapError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		code := http.StatusBadRequest
		if validationErr.Reason == ReasonPayloadTooLarge {
			code = http.StatusRequestEntityTooLarge
		}
		return NewAppError(code, validationErr.Error(), err)
	}

	if errors.Is(err, ErrInvalidInput) {
		return NewAppError(http.StatusBadRequest, "Invalid request", err)
	}
	if errors.Is(err, ErrNotFound) {
		return NewAppError(http.StatusNotFound, "Resource not found", err)
	}
	if errors.Is(err, ErrInternal) {
		return NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	return NewAppError(http.StatusInternalServerError, "Internal server error", err)
}
