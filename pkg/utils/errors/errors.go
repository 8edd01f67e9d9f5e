package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of an error
type ErrorType uint

const (
	// ErrorTypeUnknown represents an unknown error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeInvalidArgument represents a malformed request
	ErrorTypeInvalidArgument
	// ErrorTypeMissingInput represents required market data that was not supplied
	ErrorTypeMissingInput
	// ErrorTypeInvalidParameter represents a product term or market input outside its valid range
	ErrorTypeInvalidParameter
	// ErrorTypeNumericDegenerate represents a computation that produced a non-finite value
	ErrorTypeNumericDegenerate
	// ErrorTypeUnavailable represents a downstream collaborator that cannot be reached
	ErrorTypeUnavailable
	// ErrorTypeInternal represents an internal error
	ErrorTypeInternal
)

// String returns the name of the error type
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeInvalidArgument:
		return "invalid_argument"
	case ErrorTypeMissingInput:
		return "missing_input"
	case ErrorTypeInvalidParameter:
		return "invalid_parameter"
	case ErrorTypeNumericDegenerate:
		return "numeric_degenerate"
	case ErrorTypeUnavailable:
		return "unavailable"
	case ErrorTypeInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new error with the given message
func New(message string) error {
	return &AppError{
		Type:    ErrorTypeUnknown,
		Message: message,
	}
}

// Newf creates a new error with the given format and arguments
func Newf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeUnknown,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a message, keeping the type of the wrapped error
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:    TypeOf(err),
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithType returns a copy of err carrying the given type
func WithType(err error, errType ErrorType) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if As(err, &appErr) {
		return &AppError{
			Type:    errType,
			Message: appErr.Message,
			Err:     appErr.Err,
		}
	}
	return &AppError{
		Type:    errType,
		Message: err.Error(),
	}
}

// TypeOf returns the type of the first AppError in err's chain
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err carries the given type
func IsType(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

// Is reports whether err or any of the errors in its chain is target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// InvalidArgument creates a new InvalidArgument error
func InvalidArgument(message string) error {
	return &AppError{
		Type:    ErrorTypeInvalidArgument,
		Message: message,
	}
}

// MissingInput creates a new MissingInput error
func MissingInput(field string) error {
	return &AppError{
		Type:    ErrorTypeMissingInput,
		Message: field + " required",
	}
}

// InvalidParameter creates a new InvalidParameter error
func InvalidParameter(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeInvalidParameter,
		Message: fmt.Sprintf(format, args...),
	}
}

// NumericDegenerate creates a new NumericDegenerate error
func NumericDegenerate(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeNumericDegenerate,
		Message: fmt.Sprintf(format, args...),
	}
}

// Unavailable creates a new Unavailable error
func Unavailable(message string) error {
	return &AppError{
		Type:    ErrorTypeUnavailable,
		Message: message,
	}
}

// Internal creates a new Internal error
func Internal(message string) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
	}
}

// Common error values
var (
	ErrInvalidInput = &AppError{Type: ErrorTypeInvalidArgument, Message: "invalid input"}
	ErrUnavailable  = &AppError{Type: ErrorTypeUnavailable, Message: "service unavailable"}
	ErrCircuitOpen  = &AppError{Type: ErrorTypeUnavailable, Message: "circuit breaker is open"}
)
