// Package forms declares the site's HTML forms as tagged structs and turns
// posted values into validated data or per-field error messages.
package forms

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

// Errors maps an input name to the message rendered next to the field.
type Errors map[string]string

// Valid reports whether the form passed validation.
func (e Errors) Valid() bool { return len(e) == 0 }

var (
	decoder  = newDecoder()
	validate = newValidator()
)

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	// CSRF token and submit button names ride along in every POST body.
	d.IgnoreUnknownKeys(true)
	return d
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report errors under the input name, not the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("schema"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Decode fills dst from posted form values.
func Decode(dst any, values url.Values) error {
	if err := decoder.Decode(dst, values); err != nil {
		return fmt.Errorf("decode form: %w", err)
	}
	return nil
}

// Validate runs the struct's validate tags and maps failures to the
// messages users see under each field.
func Validate(form any) (Errors, error) {
	err := validate.Struct(form)
	if err == nil {
		return Errors{}, nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, fmt.Errorf("validate form: %w", err)
	}

	out := make(Errors, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = messageFor(fe)
	}
	return out, nil
}

// messageFor translates a validator tag into the message wording users of
// the classic form frameworks expect.
func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
	default:
		return "Invalid value."
	}
}
