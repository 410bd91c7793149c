// Package apperr defines the error kinds shared by every talehub service.
// Services return *Error values; only the HTTP layer turns them into responses.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure. The string value doubles as the wire error code.
type Kind string

const (
	KindValidation  Kind = "validation_error"
	KindAuthInvalid Kind = "auth_invalid"
	KindAuthExpired Kind = "auth_expired"
	KindAuthRevoked Kind = "auth_revoked"
	KindForbidden   Kind = "forbidden"
	KindNotEditable Kind = "not_editable"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindRateLimited Kind = "rate_limited"
	KindInternal    Kind = "internal"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrAuthInvalid = &Error{Kind: KindAuthInvalid}
	ErrAuthExpired = &Error{Kind: KindAuthExpired}
	ErrAuthRevoked = &Error{Kind: KindAuthRevoked}
	ErrForbidden   = &Error{Kind: KindForbidden}
	ErrNotEditable = &Error{Kind: KindNotEditable}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrConflict    = &Error{Kind: KindConflict}
	ErrRateLimited = &Error{Kind: KindRateLimited}
	ErrInternal    = &Error{Kind: KindInternal}
)

type Error struct {
	Kind    Kind
	Message string
	Field   string // offending input field, validation errors only
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so callers can match on the sentinels above.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation builds a validation error pointing at a single input field.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

func NotFound(message string) *Error  { return New(KindNotFound, message) }
func Conflict(message string) *Error  { return New(KindConflict, message) }
func Forbidden(message string) *Error { return New(KindForbidden, message) }

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a kind to its response status. Forbidden and NotEditable
// share 403 so clients tell them apart by code, not status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthInvalid, KindAuthExpired, KindAuthRevoked:
		return http.StatusUnauthorized
	case KindForbidden, KindNotEditable:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
