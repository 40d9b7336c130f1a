package chat

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/eldtechnologies/batepapo/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

type participantInput struct {
	Name string `json:"name" validate:"required,min=3"`
}

// MessageInput is the user-editable part of a message.
type MessageInput struct {
	To   string             `json:"to" validate:"required"`
	Text string             `json:"text" validate:"required"`
	Type models.MessageType `json:"type" validate:"required,oneof=message private_message"`
}

// sanitized returns a copy with markup stripped from the free-text fields.
func (in MessageInput) sanitized() MessageInput {
	in.To = Sanitize(in.To)
	in.Text = Sanitize(in.Text)
	return in
}

// check runs the struct rules and converts failures into a *ValidationError.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	return &ValidationError{Details: lo.Map(verrs, func(fe validator.FieldError, _ int) string {
		return describe(fe)
	})}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", fe.Field())
	case "min":
		return fmt.Sprintf("%q length must be at least %s characters long", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", fe.Field(), strings.Join(strings.Fields(fe.Param()), ", "))
	default:
		return fmt.Sprintf("%q failed on %s", fe.Field(), fe.Tag())
	}
}
