package handler

import (
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aircast/aircast/internal/api/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// parseCoordinates reads and validates the lat/lon query parameters.
// A non-empty error slice means the request must be rejected with 400.
func parseCoordinates(r *http.Request) (lat, lon float64, fieldErrors []models.FieldError) {
	q := r.URL.Query()

	var query models.CoordinateQuery
	query.Lat, fieldErrors = parseFloatParam(q, "lat", fieldErrors)
	query.Lon, fieldErrors = parseFloatParam(q, "lon", fieldErrors)
	if len(fieldErrors) > 0 {
		return 0, 0, fieldErrors
	}

	if err := validate.Struct(query); err != nil {
		return 0, 0, toFieldErrors(err)
	}
	return *query.Lat, *query.Lon, nil
}

// parseFloatParam returns nil for an absent parameter so the required rule
// can report it.
func parseFloatParam(q url.Values, name string, errs []models.FieldError) (*float64, []models.FieldError) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, errs
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, append(errs, models.FieldError{
			Field:   name,
			Message: "must be a number",
			Code:    "INVALID_NUMBER",
		})
	}
	return &v, errs
}

func toFieldErrors(err error) []models.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []models.FieldError{{Message: err.Error(), Code: "INVALID"}}
	}

	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
			Code:    fieldCode(fe.Tag()),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

func fieldCode(tag string) string {
	switch tag {
	case "required":
		return "REQUIRED"
	case "gte", "lte":
		return "OUT_OF_RANGE"
	case "max":
		return "TOO_LONG"
	default:
		return "INVALID"
	}
}

func fieldNames(errs []models.FieldError) string {
	names := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Field != "" {
			names = append(names, e.Field)
		}
	}
	return strings.Join(names, ", ")
}
