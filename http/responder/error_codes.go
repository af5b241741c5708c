package responder

import (
	apperrors "github.com/leeforge/imgpress/errors"
)

// 4xxx - 客户端错误, 5xxx - 服务端错误
const (
	ErrCodeBadRequest        = 4000
	ErrCodeBindFailed        = 4001
	ErrCodeValidationFailed  = 4002
	ErrCodeNotFound          = 4003
	ErrCodeRouteNotFound     = 4004
	ErrCodePayloadTooLarge   = 4005
	ErrCodeTooManyRequests   = 4009
	ErrCodeUnsupportedFormat = 4010
	ErrCodeInvalidScale      = 4011
	ErrCodeDecodeFailed      = 4012
	ErrCodeBatchFailed       = 4013

	ErrCodeInternalServer = 5000
	ErrCodeEncodeFailed   = 5001
	ErrCodeTimeout        = 5006
)

var errorMessages = map[int]string{
	ErrCodeBadRequest:        "Bad Request",
	ErrCodeBindFailed:        "Invalid Request Body",
	ErrCodeValidationFailed:  "Validation Failed",
	ErrCodeNotFound:          "Resource Not Found",
	ErrCodeRouteNotFound:     "Route Not Found",
	ErrCodePayloadTooLarge:   "Payload Too Large",
	ErrCodeTooManyRequests:   "Too Many Requests",
	ErrCodeUnsupportedFormat: "Unsupported Format",
	ErrCodeInvalidScale:      "Invalid Scale",
	ErrCodeDecodeFailed:      "Image Decode Failed",
	ErrCodeBatchFailed:       "Batch Failed",
	ErrCodeInternalServer:    "Internal Server Error",
	ErrCodeEncodeFailed:      "Image Encode Failed",
	ErrCodeTimeout:           "Request Timeout",
}

// codeByType maps an AppError kind to its response code.
var codeByType = map[apperrors.ErrorType]int{
	apperrors.ErrorTypeValidation:        ErrCodeValidationFailed,
	apperrors.ErrorTypeUnsupportedFormat: ErrCodeUnsupportedFormat,
	apperrors.ErrorTypeInvalidScale:      ErrCodeInvalidScale,
	apperrors.ErrorTypeDecode:            ErrCodeDecodeFailed,
	apperrors.ErrorTypeBatch:             ErrCodeBatchFailed,
	apperrors.ErrorTypeTooLarge:          ErrCodePayloadTooLarge,
	apperrors.ErrorTypeRateLimit:         ErrCodeTooManyRequests,
	apperrors.ErrorTypeEncode:            ErrCodeEncodeFailed,
	apperrors.ErrorTypeInternal:          ErrCodeInternalServer,
}

// GetErrorMessage returns the default message for an error code
func GetErrorMessage(code int) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "Unknown Error"
}

// CodeFor returns the response code for an AppError kind.
func CodeFor(t apperrors.ErrorType) int {
	if code, ok := codeByType[t]; ok {
		return code
	}
	return ErrCodeInternalServer
}

// NewError creates a new Error with code and message
func NewError(code int, message string) Error {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithDetails creates a new Error with code, message and details
func NewErrorWithDetails(code int, message string, details any) Error {
	err := NewError(code, message)
	err.Details = details
	return err
}

// Predefined errors for common scenarios
var (
	ErrBadRequest      = NewError(ErrCodeBadRequest, "")
	ErrRouteNotFound   = NewError(ErrCodeRouteNotFound, "")
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "")
	ErrInternalServer  = NewError(ErrCodeInternalServer, "")
)
