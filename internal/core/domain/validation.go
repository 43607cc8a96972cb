package domain

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct runs struct-tag validation and reports the first offending
// field as missing (required tags) or invalid (every other tag).
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Tag() == "required" {
			return NewMissingInformationError(fe.Field())
		}
		return NewInvalidInformationError(fe.Field(), "failed "+fe.Tag())
	}
	return err
}
