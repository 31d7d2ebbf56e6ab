package wire

import (
	"errors"
	"fmt"
)

// Kind classifies a boundary error. The kind is visible to guest code as the
// thrown error's name so scripts can tell a policy rejection from a network
// fault.
type Kind string

const (
	KindMalformedRequest Kind = "MalformedRequest"
	KindInvalidHeader    Kind = "InvalidHeader"
	KindOriginNotAllowed Kind = "OriginNotAllowed"
	KindNetworkError     Kind = "NetworkError"
	KindArityError       Kind = "ArityError"
)

// Error is a typed failure of the HTTP capability.
type Error struct {
	Kind Kind
	// Field names the offending request field or header, when there is one.
	Field   string
	Message string

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause. It is only set on the side that
// produced the error; causes are flattened into Message on the wire.
func (e *Error) Unwrap() error {
	return e.cause
}

// Malformed reports a request field that is missing or has the wrong type.
func Malformed(field, format string, args ...any) *Error {
	return &Error{
		Kind:    KindMalformedRequest,
		Field:   field,
		Message: fmt.Sprintf("field %q: %s", field, fmt.Sprintf(format, args...)),
	}
}

// InvalidHeader reports a header name or value that is not valid on the wire.
func InvalidHeader(name, reason string) *Error {
	return &Error{
		Kind:    KindInvalidHeader,
		Field:   name,
		Message: fmt.Sprintf("header %q: %s", name, reason),
	}
}

// OriginNotAllowed reports a destination outside the allow-list.
func OriginNotAllowed(origin string) *Error {
	return &Error{
		Kind:    KindOriginNotAllowed,
		Message: fmt.Sprintf("origin %q is not in the allow-list", origin),
	}
}

// NetworkFailure wraps a transport-level failure of an outbound call.
func NetworkFailure(cause error) *Error {
	return &Error{
		Kind:    KindNetworkError,
		Message: cause.Error(),
		cause:   cause,
	}
}

// Arity reports a call with the wrong number of arguments.
func Arity(want, got int) *Error {
	return &Error{
		Kind:    KindArityError,
		Message: fmt.Sprintf("expected %d argument(s), got %d", want, got),
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
