package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/acadly/tuition/internal/service/student"
)

// postPayment handles POST /v1/students/{id}/payments.
func (s *Server) postPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid student id")
		return
	}
	in, ok := r.Context().Value(ctxKeyPostPayment).(student.PaymentInput)
	if !ok {
		badRequest(w, "missing validated payment")
		return
	}
	st, err := s.studentSvc.ApplyPayment(r.Context(), id, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	paymentsRecorded.WithLabelValues(string(in.Kind)).Inc()
	toJSON(w, http.StatusCreated, toStudentResponse(st))
}

// deletePayment handles DELETE /v1/students/{id}/payments/{paymentID}. It
// removes exactly one record and re-derives the payment-driven status.
func (s *Server) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid student id")
		return
	}
	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		badRequest(w, "invalid payment id")
		return
	}
	st, err := s.studentSvc.RevertPayment(r.Context(), id, paymentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	toJSON(w, http.StatusOK, toStudentResponse(st))
}

// clearPayments handles POST /v1/admin/payments/clear, the bulk reset.
func (s *Server) clearPayments(w http.ResponseWriter, r *http.Request) {
	n, err := s.studentSvc.ClearAllPayments(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.log.Info("payments cleared", "students_reset", n)
	toJSON(w, http.StatusOK, clearPaymentsResponse{StudentsReset: n})
}
