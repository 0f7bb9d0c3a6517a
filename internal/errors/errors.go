// Package errors defines the coded error kinds surfaced by the generation
// pipeline and the layers around it.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error kind
type Code string

// Error codes
const (
	CodeConfiguration   Code = "CONFIGURATION"
	CodeGeneration      Code = "GENERATION"
	CodeUnknownSection  Code = "UNKNOWN_SECTION"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodePermission      Code = "PERMISSION_DENIED"
	CodeInternal        Code = "INTERNAL"
)

// Configuration error reasons, stored under Meta["reason"]
const (
	ReasonMissing   = "missing"
	ReasonMalformed = "malformed"
)

// String returns the string representation of the code
func (c Code) String() string {
	return string(c)
}

// HTTPStatus returns the corresponding HTTP status code
func (c Code) HTTPStatus() int {
	switch c {
	case CodeConfiguration:
		return http.StatusServiceUnavailable
	case CodeGeneration:
		return http.StatusBadGateway
	case CodeUnknownSection, CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermission:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error represents a structured error with code, message, and metadata
type Error struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code
func (e *Error) Is(target error) bool {
	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// WithMeta adds metadata to the error
func (e *Error) WithMeta(key string, value interface{}) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]interface{})
	}
	e.Meta[key] = value
	return e
}

// New creates a new error with the given code and message
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new error with a formatted message
func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error, preserving its code if it's an Error
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return &Error{
			Code:    existing.Code,
			Message: message,
			Cause:   err,
			Meta:    existing.Meta,
		}
	}

	return &Error{Code: CodeInternal, Message: message, Cause: err}
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific code
func WrapWithCode(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// Configuration reports a missing or malformed credential or setting.
func Configuration(reason, message string) *Error {
	return New(CodeConfiguration, message).WithMeta("reason", reason)
}

// Generation wraps a failure of the model backend.
func Generation(cause error, message string) *Error {
	return WrapWithCode(orSelf(cause, message), CodeGeneration, message)
}

// UnknownSection reports a section name the registry does not define.
func UnknownSection(contentType, section string) *Error {
	return Newf(CodeUnknownSection, "no such section %q for %s", section, contentType).
		WithMeta("content_type", contentType).
		WithMeta("section", section)
}

// InvalidArgument creates an invalid argument error
func InvalidArgument(message string) *Error {
	return New(CodeInvalidArgument, message)
}

// InvalidArgumentf creates an invalid argument error with formatted message
func InvalidArgumentf(format string, args ...interface{}) *Error {
	return Newf(CodeInvalidArgument, format, args...)
}

// NotFoundf creates a not found error with formatted message
func NotFoundf(format string, args ...interface{}) *Error {
	return Newf(CodeNotFound, format, args...)
}

// Unauthenticated creates an unauthenticated error
func Unauthenticated(message string) *Error {
	return New(CodeUnauthenticated, message)
}

// PermissionDenied creates a permission denied error
func PermissionDenied(message string) *Error {
	return New(CodePermission, message)
}

// Internal creates an internal error
func Internal(message string) *Error {
	return New(CodeInternal, message)
}

func orSelf(err error, message string) error {
	if err != nil {
		return err
	}
	return errors.New(message)
}

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// ReasonOf returns Meta["reason"] for coded errors.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Meta != nil {
		if r, ok := e.Meta["reason"].(string); ok {
			return r
		}
	}
	return ""
}

// IsCode checks whether any error in the chain carries code
func IsCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsConfiguration checks for a configuration error
func IsConfiguration(err error) bool { return IsCode(err, CodeConfiguration) }

// IsGeneration checks for a generation error
func IsGeneration(err error) bool { return IsCode(err, CodeGeneration) }

// IsUnknownSection checks for a schema registry error
func IsUnknownSection(err error) bool { return IsCode(err, CodeUnknownSection) }

// IsInvalidArgument checks for an invalid argument error
func IsInvalidArgument(err error) bool { return IsCode(err, CodeInvalidArgument) }

// IsNotFound checks for a not found error
func IsNotFound(err error) bool { return IsCode(err, CodeNotFound) }
