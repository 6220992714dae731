package util

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// GetValidator returns the shared validator with the ticket field tags
// ("ticket_category", "ticket_state") registered.
func GetValidator() *validator.Validate {
	once.Do(initValidator)
	return validate
}

func initValidator() {
	validate = validator.New()
	_ = validate.RegisterValidation("ticket_category", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseTicketCategory(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("ticket_state", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseTicketState(fl.Field().String())
		return err == nil
	})
}

// ValidateStruct runs struct tags and converts failures into a
// VALIDATION_FAILED DomainError keyed by field name.
func ValidateStruct(v any) error {
	err := GetValidator().Struct(v)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return NewValidationError("invalid payload", nil)
	}
	details := make(map[string]any, len(validationErrors))
	for _, e := range validationErrors {
		details[strings.ToLower(e.Field())] = prettyError(e)
	}
	return NewValidationError("invalid payload", details)
}

func prettyError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", strings.ToLower(e.Field()))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", strings.ToLower(e.Field()), e.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", strings.ToLower(e.Field()))
	case "ticket_category":
		names := make([]string, 0, len(domain.Categories))
		for _, c := range domain.Categories {
			names = append(names, string(c))
		}
		return fmt.Sprintf("category must be one of: %s", strings.Join(names, ", "))
	case "ticket_state":
		return "state must be open or closed"
	default:
		return fmt.Sprintf("%s is invalid", strings.ToLower(e.Field()))
	}
}
