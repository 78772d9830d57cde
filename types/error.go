package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across courtflow.
type ErrorCode string

// Workflow error codes
const (
	ErrTransientBackend      ErrorCode = "TRANSIENT_BACKEND_FAILURE"
	ErrBackendFailure        ErrorCode = "BACKEND_FAILURE"
	ErrTaskContractViolation ErrorCode = "TASK_CONTRACT_VIOLATION"
	ErrCompositionFailure    ErrorCode = "COMPOSITION_FAILURE"
	ErrPersistenceFailure    ErrorCode = "PERSISTENCE_FAILURE"
	ErrInvalidConfig         ErrorCode = "INVALID_CONFIG"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Component string    `json:"component,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Code)
	if e.Component != "" {
		prefix = fmt.Sprintf("[%s] %s:", e.Code, e.Component)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithComponent records which task or composer produced the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// NewTransientError marks err as a transient backend failure eligible for retry.
func NewTransientError(message string, cause error) *Error {
	return NewError(ErrTransientBackend, message).WithCause(cause).WithRetryable(true)
}

// NewContractViolation reports a task breaking its declared contract.
func NewContractViolation(component, format string, args ...any) *Error {
	return Errorf(ErrTaskContractViolation, format, args...).WithComponent(component)
}

// IsRetryable checks if an error is retryable.
// Only the outermost *Error in the chain decides: a BackendFailure wrapping
// an exhausted transient error is not retryable again.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the outermost error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether any *Error in err's tree carries code.
// Joined errors (errors.Join) are walked as well.
func HasCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok && e.Code == code {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if HasCode(inner, code) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return HasCode(u.Unwrap(), code)
	}
	return false
}
