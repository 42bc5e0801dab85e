package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/acadly/tuition/internal/service/student"
)

// postFee handles POST /v1/students/{id}/fees.
func (s *Server) postFee(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid student id")
		return
	}
	req, ok := r.Context().Value(ctxKeyPostFee).(postFeeRequest)
	if !ok {
		badRequest(w, "missing validated fee")
		return
	}
	st, err := s.studentSvc.AddCustomFee(r.Context(), id, student.CustomFeeInput{
		Name:        req.Name,
		AmountMinor: req.AmountMinor,
		Status:      req.Status,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toStudentResponse(st))
}

// patchFee handles PATCH /v1/students/{id}/fees/{feeID}, flipping the fee
// between due and paid.
func (s *Server) patchFee(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid student id")
		return
	}
	feeID, err := uuid.Parse(chi.URLParam(r, "feeID"))
	if err != nil {
		badRequest(w, "invalid fee id")
		return
	}
	var req patchFeeRequest
	if !decodeValid(w, r, &req) {
		return
	}
	st, err := s.studentSvc.UpdateCustomFeeStatus(r.Context(), id, feeID, req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	toJSON(w, http.StatusOK, toStudentResponse(st))
}
