// Package errors provides domain-specific errors for the repopack application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common domain error conditions.
var (
	ErrJobNotFound        = errors.New("job not found")
	ErrJobFailed          = errors.New("job failed")
	ErrUnexpectedStatus   = errors.New("unexpected job status")
	ErrEncodingUnknown    = errors.New("unknown token encoding")
	ErrCounterReleased    = errors.New("token counter already released")
	ErrPoolShutDown       = errors.New("worker pool shut down")
	ErrNoFilesCollected   = errors.New("no files collected")
	ErrAPIKeyRequired     = errors.New("API key required for cloud endpoint")
	ErrUnknownOutputStyle = errors.New("unknown output style")
)

// ErrorCode categorizes errors for handling and reporting.
type ErrorCode string

const (
	CodeValidation ErrorCode = "VALIDATION"
	CodeNotFound   ErrorCode = "NOT_FOUND"
	CodeRemote     ErrorCode = "REMOTE"
	CodeExecution  ErrorCode = "EXECUTION"
	CodeProtocol   ErrorCode = "PROTOCOL"
	CodeConfig     ErrorCode = "CONFIG"
)

// RepopackError wraps errors with additional context for debugging and handling.
type RepopackError struct {
	Code       ErrorCode
	Message    string
	Cause      error
	StatusCode int // HTTP status for remote failures, zero otherwise
	Context    map[string]interface{}
}

// Error returns a formatted error string including the code, message, and cause if present.
func (e *RepopackError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for use with errors.Is and errors.As.
func (e *RepopackError) Unwrap() error {
	return e.Cause
}

// NewError creates a new RepopackError with the given code, message, and optional cause.
func NewError(code ErrorCode, message string, cause error) *RepopackError {
	return &RepopackError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewRemoteError creates a RepopackError carrying the HTTP status of a remote failure.
// The code is derived from the status: 404 maps to NOT_FOUND, other 4xx to
// VALIDATION, and everything else to REMOTE.
func NewRemoteError(statusCode int, message string, cause error) *RepopackError {
	code := CodeRemote
	switch {
	case statusCode == 404:
		code = CodeNotFound
	case statusCode >= 400 && statusCode < 500:
		code = CodeValidation
	}
	return &RepopackError{
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: statusCode,
		Context:    make(map[string]interface{}),
	}
}

// WithContext adds a key-value pair to the error's context and returns the error.
// This allows for method chaining when adding multiple context values.
func WithContext(err *RepopackError, key string, value interface{}) *RepopackError {
	if err.Context == nil {
		err.Context = make(map[string]interface{})
	}
	err.Context[key] = value
	return err
}

// Is reports whether err matches target using errors.Is semantics.
// This is a convenience wrapper around the standard library's errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target and sets target to that error value.
// This is a convenience wrapper around the standard library's errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
