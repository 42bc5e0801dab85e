package httpapi

import (
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/acadly/tuition/internal/service/student"
)

// postStudent handles POST /v1/students.
func (s *Server) postStudent(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyPostStudent).(student.CreateInput)
	if !ok {
		badRequest(w, "missing validated student")
		return
	}
	created, err := s.studentSvc.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toStudentResponse(created))
}

// listStudents handles GET /v1/students.
func (s *Server) listStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.studentSvc.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]studentResponse, 0, len(students))
	for _, st := range students {
		out = append(out, toStudentResponse(st))
	}
	toJSON(w, http.StatusOK, out)
}

// getStudent handles GET /v1/students/{id}.
func (s *Server) getStudent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid student id")
		return
	}
	st, err := s.studentSvc.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	toJSON(w, http.StatusOK, toStudentResponse(st))
}

// getSummary handles GET /v1/students/{id}/summary. An optional RFC3339
// as_of pins the dues view to a past or future instant.
func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid student id")
		return
	}
	var asOf time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(w, "invalid as_of")
			return
		}
		asOf = t.UTC()
	}
	sum, err := s.studentSvc.Summary(r.Context(), id, asOf)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	toJSON(w, http.StatusOK, toSummaryResponse(id, sum))
}

// postStatus handles POST /v1/students/{id}/status for the explicit admin
// transitions (left, completed_paid, completed_unpaid).
func (s *Server) postStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid student id")
		return
	}
	var req postStatusRequest
	if !decodeValid(w, r, &req) {
		return
	}
	st, err := s.studentSvc.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	toJSON(w, http.StatusOK, toStudentResponse(st))
}
