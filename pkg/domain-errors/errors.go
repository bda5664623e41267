// Package derrors defines the coded domain errors exchanged between services
// and transports. Stores and infrastructure return sentinel errors
// (pkg/sentinel); services translate them into coded errors here so handlers
// can map outcomes to HTTP statuses without inspecting infrastructure types.
package derrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	CodeValidation      Code = "validation"
	CodeDuplicate       Code = "duplicate"
	CodeNotFound        Code = "not_found"
	CodeAllocation      Code = "allocation"
	CodeRender          Code = "render"
	CodePersistence     Code = "persistence"
	CodeChannelNotReady Code = "channel_not_ready"
	CodeDelivery        Code = "delivery"
	CodeInternal        Code = "internal"
)

// Error carries a code plus a human-readable message. The wrapped cause, if
// any, is kept for logging but never serialized to clients.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a coded error.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether err (or anything it wraps) is a domain error with the
// given code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the client-safe message from err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to the HTTP status handlers should respond with.
// Delivery-channel codes intentionally map to 200: a failed delivery after a
// successful enrollment is a warning payload, never a failed request.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeDuplicate:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeChannelNotReady, CodeDelivery:
		return http.StatusOK
	case CodeAllocation, CodeRender, CodePersistence, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
