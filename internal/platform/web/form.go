package web

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"journal_backend/internal/shared/validation"
)

func init() {
	// Report binding failures under the form field name instead of the Go field name.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(formFieldName)
	}
}

func formFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// BindingErrors converts a gin binding error into field errors suitable for
// re-rendering a form.
func BindingErrors(err error) validation.Errors {
	var errs validation.Errors
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		errs.Add("", "The submitted form could not be read.", validation.ErrInvalidFormat)
		return errs
	}
	for _, fe := range ves {
		errs.Add(fe.Field(), bindingMessage(fe), validation.ErrInvalidFormat)
	}
	return errs
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "email":
		return "This email is not valid."
	case "oneof":
		return "Select a valid choice."
	default:
		return "This value is not valid."
	}
}
