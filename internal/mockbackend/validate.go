package mockbackend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// fieldErrors is the backend's validation error body: field name to messages
type fieldErrors map[string][]string

func (f fieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for field, msgs := range f {
		parts = append(parts, field+": "+strings.Join(msgs, ", "))
	}
	return strings.Join(parts, " | ")
}

func (f fieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator(validate *validator.Validate) *requestValidator {
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{validate: validate}
}

// Validate implements echo.Validator and reports failures as fieldErrors
func (v *requestValidator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := fieldErrors{}
	for _, fe := range verrs {
		fields.add(fe.Field(), fieldMessage(fe))
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "gt", "gte":
		return "Ensure this value is greater than or equal to 1."
	default:
		return "Invalid value."
	}
}

// bindJSON decodes the request body into v and validates it
func bindJSON(c echo.Context, v interface{}) error {
	if err := json.NewDecoder(c.Request().Body).Decode(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON parse error - "+err.Error())
	}
	return c.Validate(v)
}

// errorHandler renders errors the way the backend does: validation failures as
// a field map, everything else as {"detail": "..."}
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var fields fieldErrors
	if errors.As(err, &fields) {
		_ = c.JSON(http.StatusBadRequest, fields)
		return
	}

	status := http.StatusInternalServerError
	detail := http.StatusText(status)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		detail = fmt.Sprint(he.Message)
	}
	_ = c.JSON(status, map[string]string{"detail": detail})
}
