package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error. Business-rule failures
// (Denied, InvalidTransition, Conflict) are returned as values and are
// never thrown.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
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

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrDenied
	ErrInvalidTransition
	ErrConflict
	ErrStoreUnavailable
	ErrInternal
)

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// Denied is an authorization refusal. It is a first-class outcome, not
// an infrastructure failure, and is never retried.
func Denied(reason string) *AppError {
	return &AppError{
		Code:    ErrDenied,
		Message: fmt.Sprintf("access denied: %s", reason),
	}
}

// InvalidTransition reports a target status unreachable from the
// entity's current status.
func InvalidTransition(entity, from, to string) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: fmt.Sprintf("invalid %s transition from %q to %q", entity, from, to),
	}
}

// Conflict reports an optimistic update whose predicate matched zero
// rows. Callers must re-fetch current state before retrying.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: message,
	}
}

// StoreUnavailable reports a transient store failure. Conditional
// updates are idempotent, so the whole operation is safe to retry.
func StoreUnavailable(err error) *AppError {
	return &AppError{
		Code:    ErrStoreUnavailable,
		Message: "store unavailable",
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// CodeOf extracts the error code, defaulting to ErrInternal for
// untyped errors.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsCode reports whether err carries the given code
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
