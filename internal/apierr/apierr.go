// Package apierr defines the error taxonomy shared between the Group Actor and the Group Router. The actor raises
// typed failures; the router maps them to HTTP status codes without inspecting error strings.
package apierr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
)

// Kind classifies a failure into one of the taxonomy buckets from the error handling design.
type Kind int

const (
	KindValidation Kind = iota
	KindAuth
	KindAccess
	KindNotFound
	KindConflict
	KindInternal
)

// Code is a short machine-readable identifier included in error responses.
type Code string

const (
	CodeValidation   Code = "validation_error"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal_error"
)

// Error is the typed failure the actor and router exchange. It carries enough information for the router to choose an
// HTTP status and render a message without parsing strings.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for the error's kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindAuth:
		return fiber.StatusUnauthorized
	case KindAccess:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func newErr(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation wraps a malformed-input failure (bad name, manager-without-email, bad request shape).
func Validation(message string) *Error { return newErr(KindValidation, CodeValidation, message) }

// Validationf formats a validation message.
func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// Auth wraps a missing/invalid credential failure.
func Auth(message string) *Error { return newErr(KindAuth, CodeUnauthorized, message) }

// Access wraps a role-insufficient failure.
func Access(message string) *Error { return newErr(KindAccess, CodeForbidden, message) }

// NotFound wraps a missing group/participant failure.
func NotFound(message string) *Error { return newErr(KindNotFound, CodeNotFound, message) }

// Conflict wraps a state-conflict failure (duplicate name, spin already running, too few participants).
func Conflict(message string) *Error { return newErr(KindConflict, CodeConflict, message) }

// Internal wraps an impossible-state failure, optionally carrying the underlying cause for logs.
func Internal(message string, cause error) *Error {
	e := newErr(KindInternal, CodeInternal, message)
	e.cause = cause
	return e
}

// As extracts an *Error from err, falling back to a generic internal error when err is untyped.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("An internal error occurred", err)
}
