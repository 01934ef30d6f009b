package handler

import (
    "errors"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"
    "github.com/iliyamo/cinema-booking-engine/internal/service"
    "github.com/labstack/echo/v4"
)

// Validator plugs go-playground/validator into echo's c.Validate.
type Validator struct {
    v *validator.Validate
}

// NewValidator returns the validator to install as echo.Echo.Validator.
// Field errors are reported under their JSON names.
func NewValidator() *Validator {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
    return cv.v.Struct(i)
}

// bind decodes the request body into req and validates it.  Both failures
// come back as validation errors naming the offending fields.
func bind(c echo.Context, req any) error {
    if err := c.Bind(req); err != nil {
        return service.Validation(service.CodeInvalidInput, "invalid body")
    }
    if c.Echo().Validator == nil {
        return nil
    }
    if err := c.Validate(req); err != nil {
        var verrs validator.ValidationErrors
        if !errors.As(err, &verrs) {
            return service.Validation(service.CodeInvalidInput, "invalid body")
        }
        fields := make([]string, 0, len(verrs))
        for _, fe := range verrs {
            fields = append(fields, fe.Field())
        }
        return service.Validation(service.CodeInvalidInput, "invalid "+strings.Join(fields, ", ")).
            WithDetail("fields", fields)
    }
    return nil
}
