// Package domain defines the core types and errors of the table access engine.
package domain

import "fmt"

// NotFoundError indicates a table or record was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// CatalogError indicates the metadata source was unreachable or returned
// something the reader could not decode.
type CatalogError struct {
	Message string
	Err     error
}

func (e *CatalogError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CatalogError) Unwrap() error { return e.Err }

// ValidationError indicates a malformed request (bad identifier, empty
// write set, bad payload).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AccessDeniedError indicates failed authentication or invalid credentials.
// Policy denial is deliberately NOT represented by this type: denied reads
// surface as empty result sets and denied writes as rejected writes.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ConflictError indicates a uniqueness conflict (e.g. duplicate email).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrCatalog wraps an underlying metadata failure.
func ErrCatalog(err error, format string, args ...interface{}) *CatalogError {
	return &CatalogError{Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}
