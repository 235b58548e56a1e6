// Package errors provides the typed error model shared by every component
// of the control plane.
//
// Domain failures are represented as *Error values carrying a machine
// readable Code plus a human readable message. Transport layers translate
// the code (HTTP status for the REST surface); internal causes stay wrapped
// and are never serialized to clients.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain failure.
type Code int

const (
	// CodeUnknown is an unclassified internal failure.
	CodeUnknown Code = iota

	// CodeUnauthorized indicates a missing or invalid credential.
	CodeUnauthorized

	// CodeForbidden indicates an authenticated caller lacking permission
	// for the specific action or instance.
	CodeForbidden

	// CodeNotFound indicates an absent instance, user, file or directory.
	CodeNotFound

	// CodeBadRequest indicates a violated precondition or malformed input,
	// e.g. deleting a running instance or an undecodable manifest.
	CodeBadRequest

	// CodeMalformedPath indicates a path that escapes its instance root or
	// cannot be interpreted at all.
	CodeMalformedPath

	// CodeProtectedResource indicates a write or delete aimed at a path
	// that may never be modified through the file gateway.
	CodeProtectedResource

	// CodeIOFailure indicates an underlying filesystem or process error.
	CodeIOFailure

	// CodeTooManyRequests indicates a caller exceeding a rate limit.
	CodeTooManyRequests
)

func (c Code) String() string {
	switch c {
	case CodeUnauthorized:
		return "Unauthorized"
	case CodeForbidden:
		return "Forbidden"
	case CodeNotFound:
		return "NotFound"
	case CodeBadRequest:
		return "BadRequest"
	case CodeMalformedPath:
		return "MalformedPath"
	case CodeProtectedResource:
		return "ProtectedResource"
	case CodeIOFailure:
		return "IOFailure"
	case CodeTooManyRequests:
		return "TooManyRequests"
	default:
		return "Unknown"
	}
}

// HTTPStatus maps a code to the status the REST surface responds with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeProtectedResource:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBadRequest, CodeMalformedPath:
		return http.StatusBadRequest
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeIOFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified domain failure.
//
// Message is safe to show to clients. Err, when set, is the wrapped cause
// and is only ever logged.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a fixed message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying cause. The message is what clients see;
// the cause stays attached for logs and errors.Is/As chains.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Wrapf classifies an underlying cause with a formatted message.
func Wrapf(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the classification of err, walking wrapped chains.
// Unclassified errors report CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// MessageOf returns the client-safe message of err, or a generic fallback
// for unclassified errors so internal detail never leaks.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// IsCode reports whether err is classified as code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
