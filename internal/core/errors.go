package core

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error. Each kind maps to one transport status.
type Kind string

// Error kinds reported to callers.
const (
	KindNotAuthenticated Kind = "not_authenticated"
	KindForbidden        Kind = "forbidden"
	KindValidation       Kind = "validation"
	KindRateLimited      Kind = "rate_limited"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindStorage          Kind = "storage"
)

// Sentinels for errors.Is checks against a kind.
var (
	ErrNotAuthenticated = &Error{Kind: KindNotAuthenticated, Message: "authentication required"}
	ErrForbidden        = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrValidation       = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrRateLimited      = &Error{Kind: KindRateLimited, Message: "rate limit exceeded"}
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict         = &Error{Kind: KindConflict, Message: "conflict"}
	ErrStorage          = &Error{Kind: KindStorage, Message: "storage error"}
)

// Error wraps a kind and human-readable message, optionally with a cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err, or KindStorage for anything unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Forbidden builds a forbidden error.
func Forbidden(format string, args ...any) *Error {
	return newError(KindForbidden, format, args...)
}

// Validation builds a validation error.
func Validation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

// NotFound builds a not-found error.
func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

// Conflict builds a conflict error.
func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

// RateLimited builds a rate-limited error.
func RateLimited(format string, args ...any) *Error {
	return newError(KindRateLimited, format, args...)
}

// Storage wraps an unexpected persistence failure.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Message: op, Err: err}
}
