package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindConfig     Kind = "config"
	KindThrottle   Kind = "throttle"
	KindAuth       Kind = "auth"
	KindSession    Kind = "session"
	KindPermission Kind = "permission"
	KindNotFound   Kind = "not_found"
	KindStorage    Kind = "storage"
	KindTransport  Kind = "transport"
	KindBootstrap  Kind = "bootstrap"
	KindUnknown    Kind = "unknown"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// IsKind checks whether any error in the chain matches the provided kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	for err != nil {
		if errors.As(err, &target) {
			return target.Kind == kind
		}
		err = errors.Unwrap(err)
	}
	return false
}

// UserMessage returns the short user-facing message for client errors and a
// generic one for everything else, so internals never leak to the caller.
func UserMessage(err error) string {
	var typed *Error
	if errors.As(err, &typed) && HTTPStatus(err) < http.StatusInternalServerError {
		return typed.Message
	}
	return "internal error"
}

// HTTPStatus maps an error chain to the response status the transport layer
// should emit. Authentication failures stay deliberately generic (401) and
// infrastructure failures surface as 500 without leaking internals.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var typed *Error
	if !errors.As(err, &typed) {
		return http.StatusInternalServerError
	}
	switch typed.Kind {
	case KindAuth, KindSession:
		return http.StatusUnauthorized
	case KindPermission:
		return http.StatusForbidden
	case KindThrottle:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	case KindConfig:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
