package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/money"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("price", ValidatePrice)
	})
	return validate
}

// ValidatePrice accepts a positive major-unit amount string with at most two decimals.
func ValidatePrice(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	minor, ok := money.ParseMajor(value)
	return ok && minor > 0
}

// Struct validates request tags and converts failures into a validation error naming each field.
func Struct(c context.Context, s interface{}) error {
	err := get().StructCtx(c, s)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return inErrors.Wrap(inErrors.KindValidation, err, "invalid request")
	}
	messages := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		if fieldErr.Param() != "" {
			messages = append(messages, fmt.Sprintf("%s must satisfy %s=%s", fieldErr.Field(), fieldErr.Tag(), fieldErr.Param()))
			continue
		}
		messages = append(messages, fmt.Sprintf("%s must satisfy %s", fieldErr.Field(), fieldErr.Tag()))
	}
	return inErrors.Validation("%s", strings.Join(messages, ", "))
}
