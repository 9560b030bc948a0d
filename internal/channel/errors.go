package channel

import (
	"errors"
	"fmt"
)

// ErrorCode categorises channel failures.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota
	ErrorInvalidConfig
	ErrorConnection
	ErrorDisconnected
	ErrorNotConnected
	ErrorSerialization
)

func (e ErrorCode) String() string {
	switch e {
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorConnection:
		return "connection_error"
	case ErrorDisconnected:
		return "disconnected"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorSerialization:
		return "serialization_error"
	default:
		return "unknown"
	}
}

// Error is a channel failure with a code.
type Error struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newError(code ErrorCode, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Wrapped: err}
}

// Sentinels for errors.Is.
var (
	ErrNotConnected = &Error{Code: ErrorNotConnected, Message: "not connected"}
	ErrDisconnected = &Error{Code: ErrorDisconnected, Message: "disconnected"}
)

// IsConnectionError reports whether err stems from the transport rather than
// from the caller.
func IsConnectionError(err error) bool {
	var ce *Error
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == ErrorConnection || ce.Code == ErrorDisconnected
}
