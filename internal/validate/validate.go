// Package validate wraps a single go-playground/validator instance and
// translates its ValidationErrors into apperr's field-error envelope, so
// handlers validate request structs with tags instead of hand-rolled
// field-by-field checks.
package validate

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/districtcms/backend/internal/apperr"
)

var instance = validator.New()

// Struct validates s against its `validate` tags and returns an
// apperr.Validation carrying one message per failed field, or nil.
func Struct(s interface{}) error {
	err := instance.Struct(s)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Wrap(apperr.KindValidationError, "validation failed", err)
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = message(fe)
	}
	return apperr.Validation(fields)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "ltfield":
		return fmt.Sprintf("%s must be less than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
