// Package validate wires go-playground/validator into domain validation errors.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

// New returns a validator that reports fields by their JSON names.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Struct validates s and converts the first failure into a *domain.ValidationError.
func Struct(v *validator.Validate, s any) error {
	return toDomain(v.Struct(s), "")
}

// Var validates a single value under the given field name.
func Var(v *validator.Validate, field string, value any, tag string) error {
	return toDomain(v.Var(value, tag), field)
}

func toDomain(err error, field string) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	fe := verrs[0]
	if field == "" {
		field = fe.Field()
	}
	return domain.NewValidationError(field, reason(fe))
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gt", "gte":
		return "must be >= " + fe.Param()
	case "url":
		return "must be a URL"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
