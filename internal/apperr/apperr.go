// Package apperr defines the tracker's error taxonomy. Only the network
// boundary (aggregate fetch, cancel) produces errors; normalization and
// filtering are total.
package apperr

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeFetchAggregate  Code = "FETCH_AGGREGATE_FAILED"
	CodeCancelFailed    Code = "CANCEL_FAILED"
	CodeCancelInFlight  Code = "CANCEL_IN_FLIGHT"
	CodeNotEligible     Code = "NOT_ELIGIBLE"
	CodeInternal        Code = "INTERNAL"
)

// Error carries a code, a message safe to show a resident, and the cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the code from any error chain, CodeInternal otherwise.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns the resident-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Something went wrong"
}

// HTTPStatus maps a code onto the handler's response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeCancelInFlight, CodeNotEligible:
		return http.StatusConflict
	case CodeFetchAggregate, CodeCancelFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
