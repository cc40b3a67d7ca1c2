package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/quotedeck/quote-service/internal/domain"
)

// tagNameParts splits a json tag into its name and option halves.
const tagNameParts = 2

var (
	// ErrValidation marks any failure raised by struct or custom validation.
	ErrValidation = errors.New("validation failed")

	// ErrBinding marks a request body or query string that would not bind.
	ErrBinding = errors.New("binding failed")
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator, creating it on first use with
// the service's custom tags registered. Field errors report json tag
// names so responses match the wire shape clients sent.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", tagNameParts)[0]
			if name == "-" {
				return ""
			}

			return name
		})

		_ = validate.RegisterValidation("daykey", validateDayKey)
		_ = validate.RegisterValidation("notempty", validateNotEmpty)
	})

	return validate
}

// Validate runs struct tag validation, wrapping any failure in
// ErrValidation.
func Validate(v any) error {
	if err := Validator().Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

// BindAndValidate decodes the JSON request body into v and validates it.
func BindAndValidate(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBinding, err)
	}

	return Validate(v)
}

// BindQueryAndValidate decodes the query string into v and validates it.
func BindQueryAndValidate(c *gin.Context, v any) error {
	if err := c.ShouldBindQuery(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBinding, err)
	}

	return Validate(v)
}

// ValidationErrors flattens a validation failure into field name to
// message pairs ready for a response envelope. Non-validation errors
// produce an empty map.
func ValidationErrors(err error) map[string]string {
	fields := make(map[string]string)

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			fields[fe.Field()] = validationMessage(fe)
		}
	}

	return fields
}

// IsValidationError reports whether err carries field-level validation
// failures.
func IsValidationError(err error) bool {
	var fieldErrs validator.ValidationErrors
	return errors.As(err, &fieldErrs)
}

// validationMessage renders one field error as client-facing text.
func validationMessage(fe validator.FieldError) string {
	param := fe.Param()

	switch fe.Tag() {
	case "min", "max":
		return minMaxMessage(fe.Tag(), param, fe.Type().Kind())
	case "required":
		return "this field is required"
	case "daykey":
		return "must be a date formatted YYYY-MM-DD"
	case "url":
		return "must be a valid URL"
	case "notempty":
		return "must not be empty"
	case "gte":
		return "must be greater than or equal to " + param
	case "lte":
		return "must be less than or equal to " + param
	case "gt":
		return "must be greater than " + param
	case "lt":
		return "must be less than " + param
	case "oneof":
		return "must be one of: " + param
	default:
		return "failed validation: " + fe.Tag()
	}
}

// minMaxMessage phrases min/max failures, counting characters for
// strings and plain magnitude for numbers.
func minMaxMessage(tag, param string, kind reflect.Kind) string {
	suffix := ""
	if kind == reflect.String {
		suffix = " characters"
	}

	if tag == "min" {
		return "must be at least " + param + suffix
	}

	return "must be at most " + param + suffix
}

// validateDayKey accepts YYYY-MM-DD day keys. The empty string passes
// so optional fields can combine it with required.
func validateDayKey(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}

	_, err := domain.ParseDayKey(value)

	return err == nil
}

// validateNotEmpty rejects strings that are blank once trimmed.
func validateNotEmpty(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Validatable lets request types add rule checks beyond struct tags.
type Validatable interface {
	Validate() error
}

// ValidateAll runs tag validation first, then the type's own Validate
// when it implements Validatable.
func ValidateAll(v any) error {
	if err := Validate(v); err != nil {
		return err
	}

	if validatable, ok := v.(Validatable); ok {
		if err := validatable.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}

	return nil
}
