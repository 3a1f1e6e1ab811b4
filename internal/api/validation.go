package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// checker is implemented by request bodies with rules struct tags cannot
// express.
type checker interface {
	check() error
}

// bindAndValidate decodes the request body into dst and checks its
// validate tags.
func bindAndValidate(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if err := validate.Struct(dst); err != nil {
		apiErr := NewBadRequestError("invalid request body", nil)
		apiErr.Code = "VALIDATION_ERROR"
		apiErr.Details = formatValidationError(err)
		return apiErr
	}
	if ch, ok := dst.(checker); ok {
		if err := ch.check(); err != nil {
			apiErr := NewBadRequestError("invalid request body", nil)
			apiErr.Code = "VALIDATION_ERROR"
			apiErr.Details = err.Error()
			return apiErr
		}
	}
	return nil
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return strings.Join(msgs, "; ")
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
