// Package validator wraps go-playground/validator with project defaults.
package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate checks struct tags and returns a single aggregated error.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	var msgs []string
	for _, e := range validationErrors {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed validation '%s'", e.Field(), e.Tag()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}

// ValidateStructured returns field -> message, for API error bodies.
func (v *Validator) ValidateStructured(i interface{}) map[string]string {
	errs := make(map[string]string)
	err := v.validate.Struct(i)
	if err == nil {
		return errs
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["_"] = err.Error()
		return errs
	}
	for _, e := range validationErrors {
		msg := fmt.Sprintf("failed validation on '%s'", e.Tag())
		switch e.Tag() {
		case "required":
			msg = "This field is required"
		case "email":
			msg = "Invalid email address"
		case "min":
			msg = fmt.Sprintf("Must be at least %s characters", e.Param())
		case "max":
			msg = fmt.Sprintf("Must be at most %s characters", e.Param())
		case "uuid":
			msg = "Invalid identifier"
		case "oneof":
			msg = fmt.Sprintf("Must be one of: %s", e.Param())
		}
		errs[e.Field()] = msg
	}
	return errs
}
