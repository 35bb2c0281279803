package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/vearutop/spendcache/internal/ledger"
)

const maxBodyBytes = 1 << 20

// Error codes of failed responses.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Response is a JSON envelope of every API response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo describes failure.
type ErrorInfo struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Amounts are validated as numbers, e.g. `validate:"gt=0"`.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()

			return f
		}

		return nil
	}, decimal.Decimal{})

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

func (h *handler) respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	h.write(w, r, status, Response{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func (h *handler) respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.write(w, r, status, Response{
		Error: &ErrorInfo{Code: code, Message: message},
	})
}

func (h *handler) write(w http.ResponseWriter, r *http.Request, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Warn(r.Context(), "failed to write response", "error", err)
	}
}

// fail maps error to response status.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr validator.ValidationErrors

	switch {
	case errors.As(err, &verr):
		details := make(map[string]string, len(verr))
		for _, fe := range verr {
			details[fe.Field()] = describe(fe)
		}

		h.write(w, r, http.StatusBadRequest, Response{Error: &ErrorInfo{
			Code:    CodeValidationError,
			Message: "request validation failed",
			Details: details,
		}})
	case errors.Is(err, ledger.ErrNotFound):
		h.respondError(w, r, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidUser), errors.Is(err, ledger.ErrInvalidPeriod), errors.Is(err, errBadRequest):
		h.respondError(w, r, http.StatusBadRequest, CodeBadRequest, err.Error())
	default:
		h.log.Error(r.Context(), "request failed", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, CodeInternalError, "internal error")
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "datetime":
		return "must match format " + fe.Param()
	default:
		return "is invalid"
	}
}

var errBadRequest = errors.New("bad request")

// decode reads JSON body into v and validates it.
func decode(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err) //nolint:errorlint // Decoding details only.
	}

	return validate.Struct(v)
}
