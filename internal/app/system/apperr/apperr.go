// internal/app/system/apperr/apperr.go

// Package apperr defines the error taxonomy shared by the access, audit, and
// registry components. Every error that crosses a component boundary carries
// a Kind so handlers can map it to an HTTP status without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindForbidden
	KindInvalidArgument
	KindNotFound
	KindUpstreamFailure
	KindStorageFailure
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindUpstreamFailure:
		return "upstream_failure"
	case KindStorageFailure:
		return "storage_failure"
	default:
		return "unknown"
	}
}

// Sentinels usable with errors.Is: errors.Is(err, apperr.Forbidden).
var (
	Unauthorized    = &Error{Kind: KindUnauthorized}
	Forbidden       = &Error{Kind: KindForbidden}
	InvalidArgument = &Error{Kind: KindInvalidArgument}
	NotFound        = &Error{Kind: KindNotFound}
	UpstreamFailure = &Error{Kind: KindUpstreamFailure}
	StorageFailure  = &Error{Kind: KindStorageFailure}
)

// Error is a classified error. Op names the operation that failed
// (e.g. "registrysync.TriggerSync"); Msg is safe to show to callers.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind, so the package sentinels work
// with errors.Is regardless of Op/Msg/Err.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// E builds a classified error.
func E(kind Kind, op, msg string, err error) error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// Errorf builds a classified error with a formatted message and no cause.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Storage wraps a persistence error. Nil in, nil out.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindStorageFailure, Op: op, Msg: "storage error", Err: err}
}

// Upstream wraps an external registry error. Nil in, nil out.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindUpstreamFailure, Op: op, Msg: "upstream error", Err: err}
}

// KindOf returns the Kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message a handler may expose.
// Storage and unknown errors are collapsed to a generic message.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	switch e.Kind {
	case KindStorageFailure, KindUnknown:
		return "internal error"
	}
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.String()
}
