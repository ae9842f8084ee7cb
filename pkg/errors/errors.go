// Package errors provides structured error types for the polargraph application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//
// # Error Codes
//
// Every failure in polargraph is terminal. Codes fall into three families
// that mirror where in the run a failure can happen:
//
//   - Input errors (file missing, unreadable or undecodable) abort before
//     any row is processed.
//   - Parameter errors (non-positive line spacing, negative amplitude, …)
//     are detected before the image is even opened.
//   - Output errors (destination not writable) surface after the drawing
//     has been fully computed.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidParameter, "line spacing must be greater than 0")
//	if errors.IsParameterError(err) {
//	    // Reject the request
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeDecode, origErr, "decode %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"
	ErrCodeDecode       Code = "DECODE_FAILED"

	// Parameter errors
	ErrCodeInvalidParameter Code = "INVALID_PARAMETER"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"
	ErrCodeInvalidPreset    Code = "INVALID_PRESET"

	// Output errors
	ErrCodeOutput Code = "OUTPUT_FAILED"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

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
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsInputError reports whether err is an input failure: a missing,
// unreadable or undecodable image.
func IsInputError(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeFileNotFound, ErrCodeDecode:
		return true
	}
	return false
}

// IsParameterError reports whether err was caused by invalid conversion
// parameters.
func IsParameterError(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidParameter, ErrCodeInvalidFormat, ErrCodeInvalidPreset:
		return true
	}
	return false
}

// IsOutputError reports whether err happened while writing results.
func IsOutputError(err error) bool {
	return GetCode(err) == ErrCodeOutput
}
