/*
errors.go - Response helpers and error-to-status mapping

PURPOSE:
  Every handler answers through writeJSON or respondError so clients see one
  error shape: {"error": "...", "details": "..."}.

STATUS MAPPING:
  hr.ErrNotFound             404
  hr.ErrPermissionDenied     403
  hr.ErrValidationFailed     400  (also malformed JSON and validator failures)
  hr.ErrOverlap              409
  hr.ErrDuplicatePeriod      409
  hr.ErrInsufficientBalance  422
  anything else              500  (details withheld)

SEE ALSO:
  - hr/errors.go: error kinds
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aldenpython/payrollsystem/hr"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps a domain error to its HTTP status and short message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, hr.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, hr.ErrPermissionDenied):
		return http.StatusForbidden, "permission denied"
	case errors.Is(err, hr.ErrValidationFailed):
		return http.StatusBadRequest, "validation failed"
	case errors.Is(err, hr.ErrOverlap):
		return http.StatusConflict, "overlapping leave"
	case errors.Is(err, hr.ErrDuplicatePeriod):
		return http.StatusConflict, "duplicate payroll period"
	case errors.Is(err, hr.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, "insufficient leave balance"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, status, message, nil)
		return
	}
	writeError(w, status, message, err)
}

// validationError converts validator output into an hr.ValidationError so it
// maps to 400 like every other input problem.
func validationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &hr.ValidationError{Reason: err.Error()}
	}
	e := errs[0]
	field := e.Field()
	switch e.Tag() {
	case "required":
		return &hr.ValidationError{Field: field, Reason: "is required"}
	case "datetime":
		return &hr.ValidationError{Field: field, Reason: fmt.Sprintf("must use layout %s", e.Param())}
	case "max":
		return &hr.ValidationError{Field: field, Reason: "must be at most " + e.Param() + " characters"}
	case "min":
		return &hr.ValidationError{Field: field, Reason: "must be at least " + e.Param()}
	default:
		return &hr.ValidationError{Field: field, Reason: "is invalid"}
	}
}

// jsonTagName makes validator report fields by their JSON names.
func jsonTagName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}
