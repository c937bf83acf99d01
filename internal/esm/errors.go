package esm

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes errors returned by a Machine.
type ErrorCode string

const (
	// CodeParameter indicates a caller-supplied argument is invalid
	// (nil handler, out-of-range id, malformed timeout).
	CodeParameter ErrorCode = "PARAMETER"

	// CodeResourceExhausted indicates a fixed-capacity pool is full.
	CodeResourceExhausted ErrorCode = "RESOURCE_EXHAUSTED"

	// CodeInvalidState indicates the operation is not legal in the current
	// lifecycle state, or the addressed slot is already occupied.
	CodeInvalidState ErrorCode = "INVALID_STATE"

	// CodePlatformFailure indicates an underlying platform hook failed.
	CodePlatformFailure ErrorCode = "PLATFORM_FAILURE"
)

// Sentinel errors for use with errors.Is. Any *Error with the same Code
// matches the corresponding sentinel.
var (
	ErrParameter         = &Error{Code: CodeParameter}
	ErrResourceExhausted = &Error{Code: CodeResourceExhausted}
	ErrInvalidState      = &Error{Code: CodeInvalidState}
	ErrPlatformFailure   = &Error{Code: CodePlatformFailure}
)

// Error is the error type returned by every Machine entry point.
type Error struct {
	// Op names the entry point that failed, e.g. "set_timer".
	Op string

	// Code identifies the error category.
	Code ErrorCode

	// Message is an optional human-readable detail.
	Message string

	// Err is the underlying cause (platform failures only).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Op != "" {
		msg = fmt.Sprintf("esm: %s: %s", e.Op, msg)
	} else {
		msg = "esm: " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(op string, code ErrorCode, format string, args ...any) *Error {
	return &Error{Op: op, Code: code, Message: fmt.Sprintf(format, args...)}
}

func parameterError(op, format string, args ...any) *Error {
	return newError(op, CodeParameter, format, args...)
}

func stateError(op, format string, args ...any) *Error {
	return newError(op, CodeInvalidState, format, args...)
}

// platformError wraps a platform hook failure. Errors that already carry a
// Code (e.g. a platform reporting its own status error) keep it.
func platformError(op string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return &Error{Op: op, Code: e.Code, Err: err}
	}
	return &Error{Op: op, Code: CodePlatformFailure, Err: err}
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsParameterError returns true if err is a parameter error.
func IsParameterError(err error) bool {
	return errors.Is(err, ErrParameter)
}

// IsResourceExhaustedError returns true if err is a resource-exhausted error.
func IsResourceExhaustedError(err error) bool {
	return errors.Is(err, ErrResourceExhausted)
}

// IsInvalidStateError returns true if err is an invalid-state error.
func IsInvalidStateError(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsPlatformError returns true if err is a platform failure.
func IsPlatformError(err error) bool {
	return errors.Is(err, ErrPlatformFailure)
}
