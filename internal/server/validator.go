package server

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"aiagents/internal/core"
)

// requestValidator checks decoded request bodies against their validate tags.
// Field names in errors follow the json tags.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	// Registration only fails on empty tags or nil funcs.
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return core.Role(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &requestValidator{validate: v}
}

// Validate runs the struct-level rules on i.
func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
