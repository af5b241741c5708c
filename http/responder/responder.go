package responder

import (
	"context"
	"errors"
	"net/http"

	apperrors "github.com/leeforge/imgpress/errors"
	"github.com/leeforge/imgpress/json"
)

const contentTypeJSON = "application/json; charset=utf-8"

// writeJSON is the internal helper for all global functions
func writeJSON(w http.ResponseWriter, status int, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		fallback := []byte(`{"error":{"code":5000,"message":"encode failed"}}`)
		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(fallback)
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

// Write sends a success response with data
func Write(w http.ResponseWriter, r *http.Request, status int, data any, opts ...Option) {
	meta := NewMeta(opts...)
	writeJSON(w, status, &Response{
		Data: data,
		Meta: *meta,
	})
}

// WriteError sends an error response
func WriteError(w http.ResponseWriter, r *http.Request, status int, err Error, opts ...Option) {
	meta := NewMeta(opts...)
	writeJSON(w, status, &Response{
		Error: &err,
		Meta:  *meta,
	})
}

// appErrorer is implemented by aggregate errors that summarize themselves as
// a single AppError, such as a failed batch.
type appErrorer interface {
	AppError() *apperrors.AppError
}

// Err maps err to its HTTP status and error envelope. Errors that are not
// AppErrors become a 500 without leaking their message; an expired deadline
// becomes a 504.
func Err(w http.ResponseWriter, r *http.Request, err error, opts ...Option) {
	if errors.Is(err, context.DeadlineExceeded) {
		WriteError(w, r, http.StatusGatewayTimeout, NewError(ErrCodeTimeout, ""), opts...)
		return
	}

	var appErr *apperrors.AppError
	var agg appErrorer
	if errors.As(err, &agg) {
		appErr = agg.AppError()
	} else if !errors.As(err, &appErr) {
		InternalServerError(w, r, "", opts...)
		return
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	message := appErr.Message
	if status >= http.StatusInternalServerError && appErr.Type != apperrors.ErrorTypeEncode {
		message = ""
	}

	payload := NewError(CodeFor(appErr.Type), message)
	payload.Type = string(appErr.Type)
	if len(appErr.Details) > 0 {
		payload.Details = appErr.Details
	}
	WriteError(w, r, status, payload, opts...)
}

// OK responds with 200 OK and data
func OK(w http.ResponseWriter, r *http.Request, data any, opts ...Option) {
	Write(w, r, http.StatusOK, data, opts...)
}

// BadRequest responds with 400 Bad Request
func BadRequest(w http.ResponseWriter, r *http.Request, message string, opts ...Option) {
	err := ErrBadRequest
	if message != "" {
		err.Message = message
	}
	WriteError(w, r, http.StatusBadRequest, err, opts...)
}

// NotFound responds with 404 and the route-not-found code.
func NotFound(w http.ResponseWriter, r *http.Request, opts ...Option) {
	WriteError(w, r, http.StatusNotFound, ErrRouteNotFound, opts...)
}

// ValidationError responds with 400 Bad Request and validation details
// Accepts any type of details ([]FieldError, map[string]string, or custom struct)
func ValidationError(w http.ResponseWriter, r *http.Request, details any, opts ...Option) {
	err := NewErrorWithDetails(ErrCodeValidationFailed, "", details)
	err.Type = string(apperrors.ErrorTypeValidation)
	WriteError(w, r, http.StatusBadRequest, err, opts...)
}

// InternalServerError responds with 500 Internal Server Error
func InternalServerError(w http.ResponseWriter, r *http.Request, message string, opts ...Option) {
	err := ErrInternalServer
	if message != "" {
		err.Message = message
	}
	err.Type = string(apperrors.ErrorTypeInternal)
	WriteError(w, r, http.StatusInternalServerError, err, opts...)
}

// TooManyRequests responds with 429 Too Many Requests
func TooManyRequests(w http.ResponseWriter, r *http.Request, message string, opts ...Option) {
	err := ErrTooManyRequests
	if message != "" {
		err.Message = message
	}
	err.Type = string(apperrors.ErrorTypeRateLimit)
	WriteError(w, r, http.StatusTooManyRequests, err, opts...)
}
