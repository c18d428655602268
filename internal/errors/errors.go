// Package errors provides typed error definitions for worktreectl.
// Every failure that crosses a package boundary carries an ErrorCode so the
// command layer can classify it without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique identifier for different error types
type ErrorCode string

const (
	// Configuration errors
	ErrConfigInvalid ErrorCode = "CONFIG_INVALID"
	ErrConfigParse   ErrorCode = "CONFIG_PARSE"

	// Lifecycle errors
	ErrValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrConflict          ErrorCode = "CONFLICT"
	ErrResourceExhausted ErrorCode = "RESOURCE_EXHAUSTED"
	ErrExternalTool      ErrorCode = "EXTERNAL_TOOL"
	ErrPartialBatch      ErrorCode = "PARTIAL_BATCH"
	ErrNotFound          ErrorCode = "NOT_FOUND"
	ErrCancelled         ErrorCode = "CANCELLED"

	// Registry file errors
	ErrFileRead      ErrorCode = "FILE_READ"
	ErrFileWrite     ErrorCode = "FILE_WRITE"
	ErrJSONMarshal   ErrorCode = "JSON_MARSHAL"
	ErrJSONUnmarshal ErrorCode = "JSON_UNMARSHAL"

	// History database errors
	ErrDatabaseConnection ErrorCode = "DATABASE_CONNECTION"
	ErrDatabaseQuery      ErrorCode = "DATABASE_QUERY"
	ErrDatabaseMigration  ErrorCode = "DATABASE_MIGRATION"

	ErrInternal ErrorCode = "INTERNAL_ERROR"
)

// WorktreeError represents a structured error with additional context
type WorktreeError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *WorktreeError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Details)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error
func (e *WorktreeError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *WorktreeError) WithContext(key string, value interface{}) *WorktreeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause adds the underlying cause error
func (e *WorktreeError) WithCause(cause error) *WorktreeError {
	e.Cause = cause
	return e
}

// HTTPStatus returns the status code used by the status API for this error
func (e *WorktreeError) HTTPStatus() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrValidationFailed, ErrConfigInvalid:
		return http.StatusBadRequest
	case ErrConflict:
		return http.StatusConflict
	case ErrResourceExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new WorktreeError
func New(code ErrorCode, message string) *WorktreeError {
	return &WorktreeError{
		Code:    code,
		Message: message,
	}
}

// NewWithDetails creates a new WorktreeError with details
func NewWithDetails(code ErrorCode, message, details string) *WorktreeError {
	return &WorktreeError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Wrap creates a new WorktreeError that wraps an existing error
func Wrap(code ErrorCode, message string, cause error) *WorktreeError {
	return &WorktreeError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetails creates a new WorktreeError with details that wraps an existing error
func WrapWithDetails(code ErrorCode, message, details string, cause error) *WorktreeError {
	return &WorktreeError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// As finds the first WorktreeError in err's chain
func As(err error) (*WorktreeError, bool) {
	var we *WorktreeError
	if stderrors.As(err, &we) {
		return we, true
	}
	return nil, false
}

// GetCode extracts the error code from the first WorktreeError in the chain
func GetCode(err error) ErrorCode {
	if we, ok := As(err); ok {
		return we.Code
	}
	return ""
}

// HasCode checks if an error has a specific error code
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}
