package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/acadly/tuition/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "") }
func notFound(w http.ResponseWriter)               { writeErr(w, http.StatusNotFound, "not_found", "not_found") }
func conflict(w http.ResponseWriter, msg string)   { writeErr(w, http.StatusConflict, msg, "conflict") }
func unprocessable(w http.ResponseWriter, msg, code string) {
	writeErr(w, http.StatusUnprocessableEntity, msg, code)
}

// writeDomainError maps service errors onto HTTP statuses and stable codes.
func writeDomainError(w http.ResponseWriter, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, errs.ErrNotFound):
		notFound(w)
	case errors.Is(err, errs.ErrConflict):
		conflict(w, msg)
	case errors.Is(err, errs.ErrInvalidAmount):
		unprocessable(w, msg, "invalid_amount")
	case errors.Is(err, errs.ErrPlanRequired):
		unprocessable(w, msg, "plan_required")
	case errors.Is(err, errs.ErrInvalidState):
		conflict(w, msg)
	case errors.Is(err, errs.ErrTerminalStatus):
		conflict(w, msg)
	case errors.Is(err, errs.ErrInvalid):
		badRequest(w, msg)
	default:
		unprocessable(w, msg, "validation_error")
	}
}

// writeFieldErrors renders validator failures as a 400 naming the first
// offending field.
func writeFieldErrors(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		badRequest(w, "invalid field: "+verrs[0].Field())
		return
	}
	badRequest(w, err.Error())
}
