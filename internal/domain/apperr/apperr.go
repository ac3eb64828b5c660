// Package apperr defines the error kinds shared by the domain services. The
// HTTP layer maps each kind to a status code with errors.As.
package apperr

import "fmt"

// ValidationError reports malformed or out-of-range input. Message is safe to
// show to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing or foreign-owned entity.
type NotFoundError struct {
	Entity  string
	ID      string
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found", e.Entity)
}

// ConflictError reports a request that is well formed but clashes with the
// current state, like a taken email address or an illegal status change.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// PersistenceError wraps a storage failure. Nothing was committed when it is
// returned from a write, so the caller may retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
