// Package autherr defines the typed domain errors for the chat authentication
// service. Every error carries a stable machine-readable code and a
// human-readable message; the HTTP layer performs the only code→status
// translation.
package autherr

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error code returned to clients.
type Code string

const (
	CodeInvalidPhone       Code = "invalid_phone"
	CodeInvalidCode        Code = "invalid_code"
	CodeRateLimited        Code = "rate_limited"
	CodeNotFound           Code = "not_found"
	CodeExpired            Code = "expired"
	CodeAccessDenied       Code = "access_denied"
	CodeSessionInvalid     Code = "session_invalid"
	CodeDeliveryFailed     Code = "delivery_failed"
	CodeConfigNotFound     Code = "config_not_found"
	CodeStorageUnavailable Code = "storage_unavailable"
	CodeInternal           Code = "internal"
)

// Error is a domain error with a stable code. The message may vary (and be
// localized) for the same code; clients must branch on Code, not Message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports code equality so callers can compare against a bare New(code, "")
// sentinel with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New returns a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap returns a domain error with the given code and message, keeping cause
// in the chain for logging. The cause is never exposed to clients.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf returns the code of err if a domain error is in its chain, or
// CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns the client-facing message of err. Non-domain errors map
// to a generic message so internals are never leaked.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
