// Package apperrors defines the error taxonomy shared by the stores, the
// services, and the HTTP layer. Every failure a caller can observe maps to
// exactly one Kind, and every Kind maps to one HTTP status and a stable
// machine-readable code.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies an error for status mapping and client dispatch.
type Kind int

const (
	// KindUnknown is any error not produced through this package. It is
	// surfaced as a 500 with no internal detail.
	KindUnknown Kind = iota
	// KindValidation is malformed caller input. Never mutates state.
	KindValidation
	// KindConflict is a uniqueness violation (e.g. duplicate email).
	KindConflict
	// KindUnauthenticated means the caller supplied no usable identity.
	KindUnauthenticated
	// KindForbidden means the resolved caller is not allowed the operation.
	KindForbidden
	// KindNotFound is resource absence.
	KindNotFound
	// KindNoneAvailable means no free task exists. This is an expected
	// outcome of claiming, not a system failure.
	KindNoneAvailable
	// KindStorage is a backend I/O failure; the enclosing transaction is
	// rolled back before it is surfaced.
	KindStorage
)

// Error carries a Kind, a caller-safe message, and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around a cause. The cause is kept
// for logs and errors.Is/As; only Msg is shown to callers.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether the error chain carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Status maps an error to the HTTP status the API contract promises.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindConflict:
		return fiber.StatusConflict
	case KindUnauthenticated:
		return fiber.StatusUnauthorized
	case KindForbidden:
		return fiber.StatusForbidden
	case KindNotFound, KindNoneAvailable:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// Code returns the stable machine-readable code for an error.
func Code(err error) string {
	switch KindOf(err) {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindNoneAvailable:
		return "none_available"
	case KindStorage:
		return "storage"
	default:
		return "internal"
	}
}

// Message returns the caller-safe message for an error. Unknown errors get a
// generic message so internals never leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal server error"
}
