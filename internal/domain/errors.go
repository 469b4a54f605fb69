package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling (OCP compliance).
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}
)

// Error implementations
func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrUnsafeWipe   = errors.New("unsafe wipe rejected")
	ErrBusy         = errors.New("busy")
)

// UnsafeWipeError is returned when a structural write would silently erase
// a large, previously populated rundown. The caller must retry with the
// force flag set (or delete row-by-row) to proceed.
type UnsafeWipeError struct {
	RundownID string
	OldRows   int
}

func (e *UnsafeWipeError) Error() string {
	return "write would delete all rows of a populated rundown; retry with force to confirm"
}

// StatusCode implements the HTTPError interface
func (e *UnsafeWipeError) StatusCode() int { return http.StatusConflict }

// Is allows errors.Is() to match against ErrUnsafeWipe
func (e *UnsafeWipeError) Is(target error) bool {
	return target == ErrUnsafeWipe
}

// BusyError is returned when the per-rundown structural mutation token is
// held by another writer. Callers retry with backoff.
type BusyError struct {
	RundownID string
}

func (e *BusyError) Error() string {
	return "rundown is busy with another structural change"
}

// StatusCode implements the HTTPError interface
func (e *BusyError) StatusCode() int { return http.StatusConflict }

// Is allows errors.Is() to match against ErrBusy
func (e *BusyError) Is(target error) bool {
	return target == ErrBusy
}
