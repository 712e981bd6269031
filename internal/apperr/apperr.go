// Package apperr defines the closed set of error kinds the backend returns
// and the HTTP/JSON envelope they map to.
package apperr

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is a closed set of error categories. Every fallible operation in the
// backend returns an error that can be classified into exactly one Kind.
type Kind string

const (
	KindNotFound        Kind = "NotFound"
	KindBadRequest      Kind = "BadRequest"
	KindValidationError Kind = "ValidationError"
	KindConflict        Kind = "Conflict"
	KindDatabaseError   Kind = "DatabaseError"
	KindUnauthorized    Kind = "Unauthorized"
	KindForbidden       Kind = "Forbidden"
	KindRateLimited     Kind = "RateLimited"
	KindInternalError   Kind = "InternalError"
)

// httpStatus maps each Kind to its fixed HTTP status code.
var httpStatus = map[Kind]int{
	KindNotFound:        404,
	KindBadRequest:       400,
	KindValidationError:  422,
	KindConflict:         409,
	KindDatabaseError:    500,
	KindUnauthorized:     401,
	KindForbidden:        403,
	KindRateLimited:      429,
	KindInternalError:    500,
}

// Status returns the HTTP status code for k, or 500 for an unrecognized kind.
func (k Kind) Status() int {
	if s, ok := httpStatus[k]; ok {
		return s
	}
	return 500
}

// Error is the concrete error type the backend uses everywhere. It carries a
// Kind, a human-readable message, and optional per-field validation
// messages.
type Error struct {
	Kind        Kind              `json:"kind"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	cause       error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Status returns the HTTP status code this error maps to.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// New creates an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an InternalError (or the given kind) that preserves cause for
// errors.Is/errors.As chains without leaking the underlying error message to
// clients.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// NotFound is a convenience constructor. A cross-tenant lookup and a
// genuinely missing row must be indistinguishable to the caller, so every
// "wrong tenant" branch should also call NotFound rather than Forbidden.
func NotFound(entity string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s not found", entity))
}

// Validation builds a ValidationError carrying field-level messages.
func Validation(fieldErrors map[string]string) *Error {
	return &Error{
		Kind:        KindValidationError,
		Message:     "validation failed",
		FieldErrors: fieldErrors,
	}
}

// Conflict is a convenience constructor for CAS failures and unique
// constraint violations.
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// As extracts an *Error from err, synthesizing an InternalError wrapper for
// anything that isn't already one of ours.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if ok := asError(err, &e); ok {
		return e
	}
	return Wrap(KindInternalError, "an internal error occurred", err)
}

func asError(err error, target **Error) bool {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// envelope is the wire shape of an Error, matching apperr.Error's JSON tags.
type envelope struct {
	Kind        Kind              `json:"kind"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// MarshalJSON emits the stable {kind, message, field_errors} envelope.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelope{Kind: e.Kind, Message: e.Message, FieldErrors: e.FieldErrors})
}

// Parse recovers an *Error from a string that may have the JSON envelope
// embedded with an arbitrary prefix/suffix around it (transports sometimes
// wrap error strings, e.g. `rpc error: code = Unknown desc = {"kind":...}`).
// Returns nil if no embedded envelope can be found.
func Parse(s string) *Error {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return nil
	}
	var env envelope
	if err := json.Unmarshal([]byte(s[start:end+1]), &env); err != nil {
		return nil
	}
	if env.Kind == "" || env.Message == "" {
		return nil
	}
	return &Error{Kind: env.Kind, Message: env.Message, FieldErrors: env.FieldErrors}
}

// FriendlyMessage extracts a UI-safe message from any error string, falling
// back to the raw string if no envelope is embedded.
func FriendlyMessage(raw string) string {
	if e := Parse(raw); e != nil {
		return e.Message
	}
	return raw
}
