// Package validators plugs go-playground/validator into echo.
package validators

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator implements echo.Validator.
type Validator struct {
	validate *validator.Validate
}

// NewValidator reports fields by their form name.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate checks i against its `validate` tags.
func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// Messages turns a validation error into one readable line per failed field.
func Messages(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			out = append(out, field+" is required")
		case "url":
			out = append(out, field+" must be a valid URL")
		case "oneof":
			out = append(out, field+" must be one of: "+fe.Param())
		case "max":
			out = append(out, field+" must be at most "+fe.Param()+" characters")
		case "min":
			out = append(out, field+" must be at least "+fe.Param()+" characters")
		default:
			out = append(out, field+" is invalid")
		}
	}
	return out
}

var _ echo.Validator = (*Validator)(nil)
