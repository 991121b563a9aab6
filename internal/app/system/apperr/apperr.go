// Package apperr defines the typed errors returned by stores, the location
// resolver and the dependency guard. Handlers map them to HTTP statuses by
// Kind; nothing in the application branches on error message text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	// KindLocationUpsert means a country/state/city could neither be found
	// nor created, even after retrying a lost insert race.
	KindLocationUpsert
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindLocationUpsert:
		return "location_upsert_failed"
	default:
		return "internal"
	}
}

// Status returns the HTTP status for k.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is an application error with a kind and a user-safe message.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "countries.Insert"
	Msg  string // safe to show to API clients
	Err  error  // underlying cause, if any
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.msg(), e.Err)
	case e.Op != "":
		return e.Op + ": " + e.msg()
	case e.Err != nil:
		return e.msg() + ": " + e.Err.Error()
	}
	return e.msg()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) msg() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.String()
}

// Message returns the client-facing message.
func (e *Error) Message() string {
	if e.Kind == KindInternal || e.Kind == KindLocationUpsert {
		return "internal server error"
	}
	return e.msg()
}

// E builds an Error.
func E(kind Kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: cause}
}

func Validation(msg string) *Error   { return &Error{Kind: KindValidation, Msg: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Msg: msg} }
func Forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Msg: msg} }
func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Msg: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Msg: msg} }

// Internal wraps an unexpected failure.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusOf maps err to an HTTP status code.
func StatusOf(err error) int {
	return KindOf(err).Status()
}

// MessageOf returns a client-safe message for err.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message()
	}
	return "internal server error"
}
