package binding

import (
	"fmt"
	"net/http"

	validatorV10 "github.com/go-playground/validator/v10"
	apperrors "github.com/leeforge/imgpress/errors"
)

type BindInterface interface {
	Name() string
	Bind(*http.Request, any) error
}

type BindError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e BindError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field '%s' %s", e.Type, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

type ValidationErrors []BindError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", ve[0].Error())
}

// AppError converts bind failures into a validation AppError with one detail
// per field.
func (ve ValidationErrors) AppError() *apperrors.AppError {
	appErr := apperrors.NewValidation("request validation failed").WithInnerError(ve)
	for _, e := range ve {
		appErr.WithDetail(e.Field, e.Message)
	}
	return appErr
}

// AppError converts a single bind failure into a validation AppError.
func (e BindError) AppError() *apperrors.AppError {
	appErr := apperrors.NewValidation(e.Message).WithInnerError(e)
	if e.Field != "" {
		appErr.WithDetail(e.Field, e.Message)
	}
	return appErr
}

// Query binds URL query parameters using `query` tags.
func Query(r *http.Request, v any) error {
	return bindValues(NewQueryParser(), r.URL.Query(), v)
}

// bindValues parses values into v, applies `default` tags and validates.
func bindValues(parser *ValuesParser, values map[string][]string, v any) error {
	if err := parser.Parse(values, v); err != nil {
		return err
	}
	return validateStruct(v)
}

func validateStruct(v any) error {
	err := validator.Struct(v)
	if err == nil {
		return nil
	}
	if validationErrors, ok := err.(validatorV10.ValidationErrors); ok {
		var bindErrors ValidationErrors
		for _, ve := range validationErrors {
			bindErrors = append(bindErrors, BindError{
				Type:    "validation_error",
				Field:   ve.Field(),
				Message: getValidationMessage(ve),
			})
		}
		return bindErrors
	}
	return &BindError{
		Type:    "validation_error",
		Message: err.Error(),
	}
}
