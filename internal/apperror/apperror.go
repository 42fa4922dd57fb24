// Package apperror defines the domain error taxonomy shared by the service and
// handler layers.
//
// Services return these errors; handlers translate them to HTTP status codes.
// Every *AppError unwraps to one of the sentinels below, so callers use
// errors.Is(err, apperror.ErrNotFound) rather than string matching.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("Validation Error")
	ErrConflict           = errors.New("conflict")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrEmailTaken         = errors.New("email taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a clash on a unique field, e.g. Conflict("users", "email").
func Conflict(resource, field string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict on %s", resource, field),
		Field:   field,
	}
}

// Unauthorized is returned when a request lacks a usable session token.
// HTTP handlers map this to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// EmailTaken is returned by registration when the email already belongs to a user.
func EmailTaken() *AppError {
	return &AppError{
		Err:     ErrEmailTaken,
		Message: "Email already in use",
		Field:   "email",
	}
}

// InvalidCredentials covers both "no such user" and "wrong password".
// The message is identical for both so callers cannot tell which check failed.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Invalid credentials",
	}
}
