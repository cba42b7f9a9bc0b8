// Package validation holds the validator shared by every usecase.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "treko/pkg/errors"
)

// New returns a validator; nested structs are validated when required.
func New() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// Struct validates in and converts failures into a *errors.ValidationError.
func Struct(v *validator.Validate, in any) error {
	if err := v.Struct(in); err != nil {
		return FormatError(err)
	}
	return nil
}

// FormatError converts validator.ValidationErrors into a human-readable error message.
func FormatError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s]", e.Field(), e.Param()))
		case "uuid":
			messages = append(messages, fmt.Sprintf("%s must be a valid UUID", e.Field()))
		case "gte", "lte", "gt":
			messages = append(messages, fmt.Sprintf("%s is out of range", e.Field()))
		case "timezone":
			messages = append(messages, fmt.Sprintf("%s must be a valid IANA timezone", e.Field()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return apperrors.NewValidationError("", strings.Join(messages, ", "))
}
