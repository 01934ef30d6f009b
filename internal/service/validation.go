package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validationError turns validator output into a KindValidation error that
// names the offending fields.
func validationError(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Validation(CodeInvalidInput, err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return Validation(CodeInvalidInput, "invalid "+strings.Join(fields, ", ")).WithDetail("fields", fields)
}

// guestContact is what a guest must supply to book without an account.
type guestContact struct {
	Name  string `validate:"required,max=255"`
	Email string `validate:"required,email,max=255"`
	Phone string `validate:"required,min=7,max=32"`
}
