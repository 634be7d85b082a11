package errors

import (
	"errors"
	"fmt"
)

// Code categorizes bus and descriptor errors
type Code string

const (
	// CodeUnknown indicates an unknown error
	CodeUnknown Code = "unknown"

	// CodeInvalidArgument indicates the caller passed something unusable (nil callback, bad signature)
	CodeInvalidArgument Code = "invalid_argument"

	// CodeAlreadySubscribed indicates an equal callback is already registered under the key
	CodeAlreadySubscribed Code = "already_subscribed"

	// CodeNotFound indicates no equal callback was registered under the key
	CodeNotFound Code = "not_found"

	// CodePayloadKindMismatch indicates a payload could not be converted to the callback's declared type
	CodePayloadKindMismatch Code = "payload_kind_mismatch"

	// CodeNotAllowed indicates a capability descriptor refused to emit or receive
	CodeNotAllowed Code = "not_allowed"

	// CodeUnsupportedKeyVariant indicates the key variant is not handled by the operation
	CodeUnsupportedKeyVariant Code = "unsupported_key_variant"

	// CodeHandlerPanic indicates a subscriber function panicked during dispatch
	CodeHandlerPanic Code = "handler_panic"

	// CodeInternal indicates internal system error
	CodeInternal Code = "internal"
)

// Error is a coded error with optional cause and metadata
type Error struct {
	Code    Code
	Message string
	Cause   error
	Meta    map[string]any
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithMeta adds metadata to the error (builder pattern)
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

// New creates a new error with the given code and message
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new error with formatted message
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with additional context, keeping the code of a coded cause
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}

	var busErr *Error
	if errors.As(err, &busErr) {
		return &Error{
			Code:    busErr.Code,
			Message: message,
			Cause:   err,
			Meta:    copyMeta(busErr.Meta),
		}
	}

	return &Error{
		Code:    CodeUnknown,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific code
func WrapWithCode(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}

	wrapped := Wrap(err, message)
	wrapped.Code = code
	return wrapped
}

// InvalidArgument creates an invalid argument error
func InvalidArgument(message string) *Error {
	return New(CodeInvalidArgument, message)
}

// InvalidArgumentf creates a formatted invalid argument error
func InvalidArgumentf(format string, args ...any) *Error {
	return Newf(CodeInvalidArgument, format, args...)
}

// AlreadySubscribedf creates a formatted already subscribed error
func AlreadySubscribedf(format string, args ...any) *Error {
	return Newf(CodeAlreadySubscribed, format, args...)
}

// NotFoundf creates a formatted not found error
func NotFoundf(format string, args ...any) *Error {
	return Newf(CodeNotFound, format, args...)
}

// PayloadKindMismatchf creates a formatted payload kind mismatch error
func PayloadKindMismatchf(format string, args ...any) *Error {
	return Newf(CodePayloadKindMismatch, format, args...)
}

// NotAllowedf creates a formatted not allowed error
func NotAllowedf(format string, args ...any) *Error {
	return Newf(CodeNotAllowed, format, args...)
}

// UnsupportedKeyVariantf creates a formatted unsupported key variant error
func UnsupportedKeyVariantf(format string, args ...any) *Error {
	return Newf(CodeUnsupportedKeyVariant, format, args...)
}

// HandlerPanicf creates a formatted handler panic error
func HandlerPanicf(format string, args ...any) *Error {
	return Newf(CodeHandlerPanic, format, args...)
}

// Internalf creates a formatted internal error
func Internalf(format string, args ...any) *Error {
	return Newf(CodeInternal, format, args...)
}

// Error checking functions

// Is reports whether any coded error in err's chain carries the code.
// Joined errors are searched too.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}

	var busErr *Error
	if errors.As(err, &busErr) && busErr.Code == code {
		return true
	}

	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			if Is(e, code) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return Is(x.Unwrap(), code)
	}
	return false
}

// IsInvalidArgument checks if the error is an invalid argument error
func IsInvalidArgument(err error) bool {
	return Is(err, CodeInvalidArgument)
}

// IsAlreadySubscribed checks if the error is an already subscribed error
func IsAlreadySubscribed(err error) bool {
	return Is(err, CodeAlreadySubscribed)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return Is(err, CodeNotFound)
}

// IsPayloadKindMismatch checks if the error is a payload kind mismatch
func IsPayloadKindMismatch(err error) bool {
	return Is(err, CodePayloadKindMismatch)
}

// IsNotAllowed checks if the error is a not allowed error
func IsNotAllowed(err error) bool {
	return Is(err, CodeNotAllowed)
}

// IsUnsupportedKeyVariant checks if the error is an unsupported key variant error
func IsUnsupportedKeyVariant(err error) bool {
	return Is(err, CodeUnsupportedKeyVariant)
}

// IsHandlerPanic checks if the error is a handler panic
func IsHandlerPanic(err error) bool {
	return Is(err, CodeHandlerPanic)
}

// IsInformational reports whether err only carries informational codes
// (already subscribed, not found). Nil is informational.
func IsInformational(err error) bool {
	if err == nil {
		return true
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !IsInformational(e) {
				return false
			}
		}
		return true
	}
	code := GetCode(err)
	return code == CodeAlreadySubscribed || code == CodeNotFound
}

// GetCode returns the error code
func GetCode(err error) Code {
	var busErr *Error
	if errors.As(err, &busErr) {
		return busErr.Code
	}
	return CodeUnknown
}

// GetMeta returns the error metadata
func GetMeta(err error) map[string]any {
	var busErr *Error
	if errors.As(err, &busErr) {
		return busErr.Meta
	}
	return nil
}

// copyMeta creates a copy of the metadata map
func copyMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}

	copied := make(map[string]any, len(meta))
	for k, v := range meta {
		copied[k] = v
	}
	return copied
}
