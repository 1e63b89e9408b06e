// Package apperror defines the application's error taxonomy.
//
// Services and repositories return these domain errors; the HTTP layer
// translates them to status codes in exactly one place (handler.writeError).
// The sentinels are checked with errors.Is, so any layer may wrap them with
// fmt.Errorf("...: %w", err) without breaking the mapping.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUpstream        = errors.New("upstream failure")
)

// AppError pairs a sentinel with a human-readable message safe to show to
// API clients. Internal detail (SQL errors, provider responses) never goes
// in Message — wrap it in Err instead.
type AppError struct {
	Err     error  // sentinel (possibly wrapped further)
	Message string // human-readable error message
	Field   string // optional: field causing a validation error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound returns an AppError for a missing resource. Handlers map it to 404.
func NotFound(resource, key string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, key),
	}
}

// ValidationFailed returns an AppError for rejected input. Handlers map it to 400.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict returns an AppError for a duplicate natural key. The create-form
// endpoint surfaces it as 400 per its contract; everywhere else it maps to 409.
func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists: %s", resource, key),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// Handlers map it to 403.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated returns an AppError for requests with no valid session.
// Page handlers redirect to the login page; API handlers map it to 401.
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "authentication required",
	}
}

// Upstream returns an AppError for a failed call to an external system
// (identity provider, mail relay). Handlers map it to 502-equivalent
// behavior; the message stays generic so provider detail never leaks.
func Upstream(system string) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: fmt.Sprintf("%s is unavailable", system),
	}
}
