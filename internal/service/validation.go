package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

var phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return value == "" || phonePattern.MatchString(value)
	})
	return v
}

// validateStruct runs tag validation and reports failures as field errors.
func validateStruct(input any) apperrors.FieldErrors {
	fields := apperrors.FieldErrors{}
	err := validate.Struct(input)
	if err == nil {
		return fields
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields.Add("", err.Error())
		return fields
	}
	for _, fe := range verrs {
		fields.Add(fe.Field(), fieldMessage(fe))
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "phone":
		return "Phone number must be entered in the format: '+999999999'. Up to 15 digits allowed."
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "oneof":
		return "Select a valid choice."
	case "eqfield":
		return "Passwords do not match."
	default:
		return "Enter a valid value."
	}
}

// ValidEmail reports whether email is a syntactically valid address.
func ValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}
