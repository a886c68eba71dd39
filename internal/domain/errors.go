package domain

import (
	"errors"
	"fmt"
)

// ErrorCode tags every failure crossing an engine boundary.
type ErrorCode string

const (
	ErrValidation     ErrorCode = "VALIDATION_ERROR"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrNoFeasiblePath ErrorCode = "NO_FEASIBLE_PATH"
	ErrTimeout        ErrorCode = "COMPUTATION_TIMEOUT"
	ErrInternal       ErrorCode = "INTERNAL"
)

// Error is the tagged failure returned by all engine operations. Engines never
// panic across their boundary; the API layer maps codes to HTTP statuses.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is match on code so callers can compare against the
// code-only sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewValidationError(format string, args ...any) *Error {
	return &Error{Code: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Code: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewNoFeasiblePathError(msg string) *Error {
	return &Error{Code: ErrNoFeasiblePath, Message: msg}
}

func NewTimeoutError(msg string) *Error {
	return &Error{Code: ErrTimeout, Message: msg}
}

func NewInternalError(msg string, err error) *Error {
	return &Error{Code: ErrInternal, Message: msg, Err: err}
}

// CodeOf extracts the error code, defaulting to INTERNAL for untagged errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternal
}
