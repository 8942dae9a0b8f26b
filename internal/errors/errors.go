package errors

import (
	"errors"
	"fmt"
)

// Error is the structured error type used across logscout.
type Error struct {
	// Code is the error code (e.g., ERR_401_INVALID_ARGUMENT).
	Code string
	// Category classifies the error.
	Category Category
	// Severity indicates how serious the error is.
	Severity Severity
	// Message is the human-readable description.
	Message string
	// Cause is the wrapped underlying error, if any.
	Cause error
	// Retryable indicates whether the operation can be retried.
	Retryable bool
	// Context carries additional structured detail for logging.
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithContext attaches a key/value pair to the error for logging.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates a structured error with the given code and message.
func New(code, message string) *Error {
	return &Error{
		Code:      code,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Message:   message,
		Retryable: isRetryableCode(code),
	}
}

// Newf creates a structured error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a code and message.
// Returns nil if err is nil.
func Wrap(err error, code, message string) *Error {
	if err == nil {
		return nil
	}
	e := New(code, message)
	e.Cause = err
	return e
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code, format string, args ...any) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// InvalidArgument creates a validation error for a bad caller-supplied value.
func InvalidArgument(format string, args ...any) *Error {
	return Newf(ErrCodeInvalidArgument, format, args...)
}

// IsCode reports whether err (or anything it wraps) carries the given code.
func IsCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the error code of err, or ERR_501_INTERNAL for
// unstructured errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}
