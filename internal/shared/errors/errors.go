package errors

import (
	"errors"
	"fmt"
)

// Error types for different domains
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "VALIDATION_ERROR"
	ErrorTypeConfiguration  ErrorType = "CONFIGURATION_ERROR"
	ErrorTypeInfrastructure ErrorType = "INFRASTRUCTURE_ERROR"
)

// Error codes attached to copy failures
const (
	CodeSnapshotFailed = "SNAPSHOT_FAILED"
	CodeCommitFailed   = "COMMIT_FAILED"
)

// Sentinel errors
var (
	ErrInvalidCollectionPath = errors.New("invalid collection path")
	ErrSameCollection        = errors.New("source and destination are the same collection")
	ErrSnapshotFailed        = errors.New("failed to read source snapshot")
	ErrCommitFailed          = errors.New("failed to commit batch")
	ErrUnknownBackend        = errors.New("unknown backend")
)

// AppError represents a custom application error with context
type AppError struct {
	Type      ErrorType              `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Component string                 `json:"component,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithCause adds the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithComponent adds the component name
func (e *AppError) WithComponent(component string) *AppError {
	e.Component = component
	return e
}

// WithDetail adds a detail field
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrorTypeValidation, message)
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(message string) *AppError {
	return NewAppError(ErrorTypeConfiguration, message)
}

// NewInfrastructureError creates an infrastructure error
func NewInfrastructureError(message string) *AppError {
	return NewAppError(ErrorTypeInfrastructure, message)
}

// joinedCause lets an AppError match both a sentinel and the backend error.
type joinedCause struct {
	sentinel error
	cause    error
}

func (j *joinedCause) Error() string {
	if j.cause == nil {
		return j.sentinel.Error()
	}
	return j.cause.Error()
}

func (j *joinedCause) Unwrap() []error {
	if j.cause == nil {
		return []error{j.sentinel}
	}
	return []error{j.sentinel, j.cause}
}

// NewSnapshotError reports a failed read of the source collection.
func NewSnapshotError(collection string, cause error) *AppError {
	return NewInfrastructureError(fmt.Sprintf("failed to read snapshot of %q", collection)).
		WithCode(CodeSnapshotFailed).
		WithCause(&joinedCause{sentinel: ErrSnapshotFailed, cause: cause}).
		WithDetail("collection", collection)
}

// NewCommitError reports a rejected batch. committed is the number of documents
// written by earlier batches.
func NewCommitError(batch, committed, pending int, cause error) *AppError {
	return NewInfrastructureError(fmt.Sprintf("failed to commit batch %d", batch)).
		WithCode(CodeCommitFailed).
		WithCause(&joinedCause{sentinel: ErrCommitFailed, cause: cause}).
		WithDetail("batch", batch).
		WithDetail("committed", committed).
		WithDetail("pending", pending)
}

// AsAppError extracts an AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Type == ErrorTypeValidation
	}
	return errors.Is(err, ErrInvalidCollectionPath) || errors.Is(err, ErrSameCollection)
}

// IsSnapshotFailure reports whether err is a failed source read.
func IsSnapshotFailure(err error) bool {
	return errors.Is(err, ErrSnapshotFailed)
}

// IsCommitFailure reports whether err is a rejected batch commit.
func IsCommitFailure(err error) bool {
	return errors.Is(err, ErrCommitFailed)
}
