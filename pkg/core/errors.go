package core

import (
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: ambiguous_match, timeout, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context (action, selector, elapsed, ...)
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches by code, so copies created by WithCause/WithMessage/WithDetails
// still compare equal to the predefined values under errors.Is.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// Resolution errors
	ErrAmbiguousMatch = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "ambiguous_match",
		Message:  "strict mode violation: selector resolved to multiple elements",
	}
	ErrDetached = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "element_detached",
		Message:  "element is not attached to the document",
	}
	ErrNotFound = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "element_not_found",
		Message:  "no element matches the selector",
	}

	// Timeout errors
	ErrTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "timeout",
		Message:  "operation timed out",
	}

	// Connection errors.
	// ErrConnectionClosed carries the literal message "Browser closed"; callers
	// pattern-match on it, so the text is part of the contract.
	ErrConnectionClosed = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     "connection_closed",
		Message:  "Browser closed",
	}
	ErrConnectionFailed = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     "connection_failed",
		Message:  "could not connect to browser endpoint",
	}

	// Navigation errors
	ErrNavigationInterrupted = &ExecutionError{
		Category: ErrCategoryNavigation,
		Code:     "navigation_interrupted",
		Message:  "double click was interrupted by a navigation triggered by the first click",
	}

	// Config errors
	ErrInvalidEndpoint = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_endpoint",
		Message:  "endpoint is not a ws:// or wss:// address",
	}
	ErrInvalidOption = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_option",
		Message:  "invalid option value",
	}
)
