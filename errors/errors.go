package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the kind of failure.
type ErrorType string

const (
	// Pipeline errors
	ErrorTypeDecode            ErrorType = "decode"
	ErrorTypeUnsupportedFormat ErrorType = "unsupported_format"
	ErrorTypeInvalidScale      ErrorType = "invalid_scale"
	ErrorTypeEncode            ErrorType = "encode"
	ErrorTypeBatch             ErrorType = "batch"

	// Boundary errors
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeTooLarge   ErrorType = "too_large"

	// System errors
	ErrorTypeInternal ErrorType = "internal"
	ErrorTypeUnknown  ErrorType = "unknown"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType      `json:"type"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	InnerError error          `json:"-"`
	HTTPStatus int            `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}
	if e.InnerError != nil {
		return fmt.Sprintf("%s: %v", msg, e.InnerError)
	}
	return msg
}

// Unwrap returns the inner error
func (e *AppError) Unwrap() error {
	return e.InnerError
}

// Is reports whether target is an *AppError of the same type, so callers can
// match with errors.Is(err, errors.New(ErrorTypeDecode, "")).
func (e *AppError) Is(target error) bool {
	if targetApp, ok := target.(*AppError); ok {
		return e.Type == targetApp.Type
	}
	return false
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithHTTPStatus sets the HTTP status code
func (e *AppError) WithHTTPStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

// WithInnerError sets the inner error
func (e *AppError) WithInnerError(err error) *AppError {
	e.InnerError = err
	return e
}

// New creates a new AppError
func New(errType ErrorType, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       string(errType),
		Message:    message,
		HTTPStatus: defaultStatus(errType),
	}
}

// Wrap wraps err with a type and message.
func Wrap(err error, errType ErrorType, message string) *AppError {
	return New(errType, message).WithInnerError(err)
}

// FromError converts a standard error to AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return &AppError{
		Type:       ErrorTypeUnknown,
		Code:       string(ErrorTypeUnknown),
		Message:    err.Error(),
		InnerError: err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	return errors.Is(err, &AppError{Type: errType})
}

func NewDecode(err error) *AppError {
	return Wrap(err, ErrorTypeDecode, "cannot decode image")
}

func NewUnsupportedFormat(format string) *AppError {
	return New(ErrorTypeUnsupportedFormat, fmt.Sprintf("unsupported format: %q", format)).
		WithDetail("format", format)
}

func NewInvalidScale(scale int) *AppError {
	return New(ErrorTypeInvalidScale, fmt.Sprintf("scale %d%% is outside [1,100]", scale)).
		WithDetail("scale", scale)
}

func NewEncode(format string, err error) *AppError {
	return Wrap(err, ErrorTypeEncode, fmt.Sprintf("cannot encode %s", format)).
		WithDetail("format", format)
}

func NewValidation(message string) *AppError {
	return New(ErrorTypeValidation, message)
}

func NewRateLimit(message string) *AppError {
	return New(ErrorTypeRateLimit, message)
}

func NewInternal(message string) *AppError {
	return New(ErrorTypeInternal, message)
}

func defaultStatus(errType ErrorType) int {
	switch errType {
	case ErrorTypeValidation, ErrorTypeUnsupportedFormat, ErrorTypeInvalidScale:
		return http.StatusBadRequest
	case ErrorTypeDecode, ErrorTypeBatch:
		return http.StatusUnprocessableEntity
	case ErrorTypeTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
