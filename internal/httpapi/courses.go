package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/acadly/tuition/internal/academy"
)

// postCourse handles POST /v1/courses. The body was validated and converted
// by the middleware.
func (s *Server) postCourse(w http.ResponseWriter, r *http.Request) {
	c, ok := r.Context().Value(ctxKeyPostCourse).(academy.Course)
	if !ok {
		badRequest(w, "missing validated course")
		return
	}
	created, err := s.courseSvc.Create(r.Context(), c)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toCourseResponse(created))
}

// listCourses handles GET /v1/courses.
func (s *Server) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.courseSvc.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]courseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, toCourseResponse(c))
	}
	toJSON(w, http.StatusOK, out)
}

// getCourse handles GET /v1/courses/{id}.
func (s *Server) getCourse(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid course id")
		return
	}
	c, err := s.courseSvc.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	toJSON(w, http.StatusOK, toCourseResponse(c))
}

// patchCourse handles PATCH /v1/courses/{id}. Only mutable fields can be
// patched; identity fields are rejected at the service layer.
func (s *Server) patchCourse(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid course id")
		return
	}
	var req patchCourseRequest
	if !decodeValid(w, r, &req) {
		return
	}
	c, err := s.courseSvc.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.EnrollmentFeeMinor != nil {
		c.EnrollmentFeeMinor = *req.EnrollmentFeeMinor
	}
	if req.MonthlyFeeMinor != nil {
		c.MonthlyFeeMinor = *req.MonthlyFeeMinor
	}
	if req.PaymentPlans != nil {
		c.PaymentPlans = nil
		for _, p := range req.PaymentPlans {
			c.PaymentPlans = append(c.PaymentPlans, academy.PaymentPlan{
				Name: p.Name, TotalMinor: p.TotalMinor, InstallmentsMinor: p.InstallmentsMinor,
			})
		}
	}
	if req.ExamFees != nil {
		c.ExamFees = nil
		for _, ef := range req.ExamFees {
			c.ExamFees = append(c.ExamFees, academy.ExamFee{Name: ef.Name, AmountMinor: ef.AmountMinor})
		}
	}
	if req.Active != nil {
		c.Active = *req.Active
	}
	updated, err := s.courseSvc.Update(r.Context(), c)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	toJSON(w, http.StatusOK, toCourseResponse(updated))
}
