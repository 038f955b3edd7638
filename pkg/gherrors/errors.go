// Package gherrors provides structured error types for the ghindex service.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and HTTP surface
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Every failure recognized by the request pipeline carries one of the codes
// below. At the HTTP boundary a code maps to exactly one status via
// [HTTPStatus]; nothing is retried and there is no partial success.
//
// # Usage
//
//	err := gherrors.New(gherrors.CodeNotFound, "unknown repository %q", name)
//	if gherrors.Is(err, gherrors.CodeNotFound) {
//	    // Handle missing repository
//	}
//
//	// Wrap existing errors
//	err := gherrors.Wrap(gherrors.CodeBadRequest, origErr, "unable to get list of repositories from GitHub API")
package gherrors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the request pipeline.
const (
	// CodeUnauthorized means the inbound request carried no usable
	// credential. Responses with this code must include a Basic challenge.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeForbidden means the upstream API rejected the credential or
	// returned no identity for it.
	CodeForbidden Code = "FORBIDDEN"

	// CodeNotFound covers unknown repositories, unknown release tags,
	// missing expected assets, and non-OK upstream download responses.
	CodeNotFound Code = "NOT_FOUND"

	// CodeBadRequest wraps unclassified upstream listing or search
	// failures with a human-readable cause.
	CodeBadRequest Code = "BAD_REQUEST"

	// CodeConflict means two distinct upstream repositories map to the
	// same short name.
	CodeConflict Code = "CONFLICT"

	// CodeNotImplemented marks deliberately unsupported paths, such as the
	// public-archive shortcut for private repositories.
	CodeNotImplemented Code = "NOT_IMPLEMENTED"

	// Infrastructure errors.
	CodeNetwork  Code = "NETWORK_ERROR"
	CodeInternal Code = "INTERNAL_ERROR"
)

// HTTPStatus maps an error code to the HTTP status returned at the
// pipeline boundary. Unknown codes map to 500.
func HTTPStatus(code Code) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeNotImplemented:
		return http.StatusNotImplemented
	case CodeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	var c *ConflictError
	if errors.As(err, &c) {
		return code == CodeConflict
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns CodeInternal if the error carries no code.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c *ConflictError
	if errors.As(err, &c) {
		return CodeConflict
	}
	return CodeInternal
}

// UserMessage returns a user-friendly message for the error.
// For coded errors, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// ConflictError reports short names claimed by more than one distinct
// upstream repository. It carries the full conflict set so callers can
// surface every colliding full name instead of silently picking one.
type ConflictError struct {
	// Conflicts maps each contested short name to the full names of all
	// repositories claiming it.
	Conflicts map[string][]string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	names := make([]string, 0, len(e.Conflicts))
	for name := range e.Conflicts {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		full := append([]string(nil), e.Conflicts[name]...)
		sort.Strings(full)
		parts = append(parts, fmt.Sprintf("%s (%s)", name, strings.Join(full, ", ")))
	}
	return "conflicting repository names: " + strings.Join(parts, "; ")
}

// Code returns the error code for this error type.
func (e *ConflictError) Code() Code {
	return CodeConflict
}
