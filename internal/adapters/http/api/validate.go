package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/skating/internal/domain/model"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// requestValidator wraps the validator instance.
type requestValidator struct {
	validate *validator.Validate
}

var requests = newRequestValidator()

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("roundkind", func(fl validator.FieldLevel) bool {
		return model.RoundKind(fl.Field().String()).Valid()
	})

	return &requestValidator{validate: v}
}

// Struct validates a request using its tags.
func (v *requestValidator) Struct(s any) error {
	return v.validate.Struct(s)
}

// validationFields formats validation errors into a field to message map
// without leaking Go struct names.
func validationFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": "invalid request"}
	}

	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		field := e.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		switch e.Tag() {
		case "required":
			fields[field] = "is required"
		case "min":
			fields[field] = fmt.Sprintf("needs at least %s entries", e.Param())
		case "max":
			fields[field] = fmt.Sprintf("must be at most %s", e.Param())
		case "gte":
			fields[field] = fmt.Sprintf("must be at least %s", e.Param())
		case "roundkind":
			fields[field] = "must be one of heats, semifinal, final, parameters"
		case "datetime":
			fields[field] = "must be an RFC3339 timestamp"
		case "unique":
			fields[field] = "must not repeat"
		default:
			fields[field] = "is invalid"
		}
	}
	return fields
}

// decode reads a JSON body into dst and validates it. An empty body is
// accepted when optional is set and leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !(optional && errors.Is(err, io.EOF)) {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return false
	}
	if err := requests.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "validation_failed",
			Message: ErrBadRequest.Error(),
			Fields:  validationFields(err),
		})
		return false
	}
	return true
}

// parseTS parses an optional RFC3339 timestamp already checked by the validator.
func parseTS(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ts, _ := time.Parse(time.RFC3339, s)
	return ts
}
