// Package validation checks API payloads with go-playground/validator and
// converts failures into validation AppErrors.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"complaint-service/internal/common/errors"
)

// TimestampLayout is the accepted format of date query parameters
const TimestampLayout = "2006-01-02T15:04:05"

// CentralizedValidator wraps a configured validator.Validate
type CentralizedValidator struct {
	validator *validator.Validate
}

// ValidationResult contains validation results with structured errors
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// ValidationError represents a single validation error with context
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

func NewCentralizedValidator() *CentralizedValidator {
	v := validator.New()

	registerComplaintValidators(v)

	// report JSON names so messages match what the client sent
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &CentralizedValidator{
		validator: v,
	}
}

// ValidateStruct validates a struct using struct tags
func (cv *CentralizedValidator) ValidateStruct(s interface{}) error {
	if err := cv.validator.Struct(s); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// ValidateVar validates a single variable with validation rules
func (cv *CentralizedValidator) ValidateVar(field interface{}, tag string) error {
	if err := cv.validator.Var(field, tag); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// ValidateStructResult validates a struct and returns detailed results
func (cv *CentralizedValidator) ValidateStructResult(s interface{}) *ValidationResult {
	err := cv.validator.Struct(s)
	if err == nil {
		return &ValidationResult{Valid: true, Errors: []ValidationError{}}
	}

	return &ValidationResult{
		Valid:  false,
		Errors: cv.extractValidationErrors(err),
	}
}

func (cv *CentralizedValidator) formatValidationErrors(err error) error {
	validationErrors := cv.extractValidationErrors(err)
	if len(validationErrors) == 1 {
		return errors.ValidationError(validationErrors[0].Message).WithContext("field", validationErrors[0].Field)
	}

	messages := make([]string, len(validationErrors))
	for i, e := range validationErrors {
		messages[i] = e.Message
	}

	return errors.ValidationError(fmt.Sprintf("validation failed: %s", strings.Join(messages, "; ")))
}

func (cv *CentralizedValidator) extractValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   fieldError.Field(),
				Tag:     fieldError.Tag(),
				Value:   fmt.Sprintf("%v", fieldError.Value()),
				Message: cv.formatFieldError(fieldError),
				Param:   fieldError.Param(),
			})
		}
	} else {
		validationErrors = append(validationErrors, ValidationError{
			Field:   "unknown",
			Tag:     "error",
			Message: err.Error(),
		})
	}

	return validationErrors
}

func (cv *CentralizedValidator) formatFieldError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", err.Field())
	case "min":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("field '%s' must be at least %s characters", err.Field(), err.Param())
		}
		return fmt.Sprintf("field '%s' must be at least %s", err.Field(), err.Param())
	case "max":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("field '%s' must be at most %s characters", err.Field(), err.Param())
		}
		return fmt.Sprintf("field '%s' must be at most %s", err.Field(), err.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", err.Field(), err.Param())
	case "not_blank":
		return fmt.Sprintf("field '%s' must not be blank", err.Field())
	case "query_timestamp":
		return fmt.Sprintf("field '%s' must have the format YYYY-MM-DDTHH:MM:SS", err.Field())
	case "required_without":
		return fmt.Sprintf("field '%s' is required when '%s' is absent", err.Field(), err.Param())
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", err.Field(), err.Tag())
	}
}

func registerComplaintValidators(v *validator.Validate) {
	v.RegisterValidation("not_blank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	v.RegisterValidation("query_timestamp", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(TimestampLayout, fl.Field().String())
		return err == nil
	})
}

var globalValidator = NewCentralizedValidator()

// ValidateStruct validates a struct using the global validator instance
func ValidateStruct(s interface{}) error {
	return globalValidator.ValidateStruct(s)
}

// ValidateVar validates a variable using the global validator instance
func ValidateVar(field interface{}, tag string) error {
	return globalValidator.ValidateVar(field, tag)
}

func ValidateStructResult(s interface{}) *ValidationResult {
	return globalValidator.ValidateStructResult(s)
}
