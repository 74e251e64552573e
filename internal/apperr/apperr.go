// Package apperr defines the error kinds surfaced by the service layer.
//
// Every error returned by a service operation is marked with exactly one kind,
// so callers can branch with errors.Is (standard library or cockroachdb) after
// any amount of wrapping:
//
//	if errors.Is(err, apperr.ErrConflict) { ... }
//
// Non-internal errors carry a user-visible reason naming the violated rule.
package apperr

import (
	"github.com/cockroachdb/errors"
)

// Kind sentinels. Use with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInternal          = errors.New("internal error")
)

// Kind is the wire name of an error kind.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindForbidden         Kind = "FORBIDDEN"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindInternal          Kind = "INTERNAL_ERROR"
)

const internalReason = "an unexpected error occurred"

func NotFound(format string, args ...any) error {
	return withKind(ErrNotFound, errors.Newf(format, args...))
}

func Conflict(format string, args ...any) error {
	return withKind(ErrConflict, errors.Newf(format, args...))
}

func Forbidden(format string, args ...any) error {
	return withKind(ErrForbidden, errors.Newf(format, args...))
}

func InvalidTransition(format string, args ...any) error {
	return withKind(ErrInvalidTransition, errors.Newf(format, args...))
}

// Internal wraps an infrastructure failure. The cause is kept for logging
// but never shown to callers.
func Internal(cause error, msg string) error {
	if cause == nil {
		cause = errors.New(msg)
	} else {
		cause = errors.Wrap(cause, msg)
	}
	return &kindError{kind: ErrInternal, cause: cause}
}

func withKind(kind, err error) error {
	return errors.WithHint(&kindError{kind: kind, cause: err}, err.Error())
}

// kindError attaches a kind sentinel to a cause. The Is method makes the kind
// visible to the standard library's errors.Is as well as cockroachdb's.
type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string { return e.cause.Error() }

func (e *kindError) Unwrap() error { return e.cause }

func (e *kindError) Is(target error) bool { return target == e.kind }

// KindOf classifies err. Unmarked errors are treated as internal.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	default:
		return KindInternal
	}
}

// Reason returns the message that may be shown to the caller.
func Reason(err error) string {
	if KindOf(err) == KindInternal {
		return internalReason
	}
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		return hints[0]
	}
	return err.Error()
}
