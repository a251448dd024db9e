package leads

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/leadflow/leadflow/pkg/model"
)

// MsgRequiredFields is returned when a create payload lacks a required field.
const MsgRequiredFields = "First name, last name, and email are required"

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func translateValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

// ValidateInput checks field-level constraints of a normalized payload.
func ValidateInput(in *model.LeadInput) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return model.NewValidationError(err.Error())
	}

	fields := make([]model.FieldError, 0, len(ve))
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msg := translateValidationError(fe)
		fields = append(fields, model.FieldError{Field: fe.Field(), Message: msg})
		msgs = append(msgs, fe.Field()+" "+msg)
	}
	return model.NewValidationError(strings.Join(msgs, "; "), fields...)
}
