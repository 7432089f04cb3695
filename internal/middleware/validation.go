package middleware

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"etlinspector/internal/detector"
	apierrors "etlinspector/internal/errors"
	"etlinspector/internal/exporter"
)

// Validator validates request structs using struct tags.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the custom tags:
//
//	check        a registered detector check name
//	exportformat one of the export formats
//	filename     a bare file name without path separators
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("check", isCheckName)
	_ = v.RegisterValidation("exportformat", isExportFormat)
	_ = v.RegisterValidation("filename", isValidFilename)

	// Use form or JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return &Validator{validate: v}
}

// Struct validates s and converts failures to a VALIDATION_FAILED API error.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

// RequireContentType rejects bodies whose media type is not listed.
func RequireContentType(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || !slices.Contains(contentTypes, mediaType) {
				apierrors.NewProblemDetails(
					http.StatusUnsupportedMediaType,
					apierrors.TypeUnsupportedMedia,
					"Unsupported Media Type",
					fmt.Sprintf("Content-Type must be one of: %s", strings.Join(contentTypes, ", ")),
					r.URL.Path,
				).WithExtension("trace_id", GetRequestID(r.Context())).Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "check":
		return fmt.Sprintf("%s must name a known check (%s)", field, strings.Join(detector.CheckNames, ", "))
	case "exportformat":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(exporter.FormatNames(), ", "))
	case "filename":
		return fmt.Sprintf("%s must be a valid filename", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func isCheckName(fl validator.FieldLevel) bool {
	return slices.Contains(detector.CheckNames, fl.Field().String())
}

func isExportFormat(fl validator.FieldLevel) bool {
	_, err := exporter.ParseFormat(fl.Field().String())
	return err == nil
}

// isValidFilename validates filename format
func isValidFilename(fl validator.FieldLevel) bool {
	filename := fl.Field().String()
	if filename == "" || len(filename) > 255 {
		return false
	}
	return !strings.Contains(filename, "..") && !strings.ContainsAny(filename, `/\`)
}
