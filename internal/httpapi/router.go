// Package httpapi wires the HTTP surface of the tuition service.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/acadly/tuition/internal/service/course"
	"github.com/acadly/tuition/internal/service/student"
)

// Server wires handlers and middleware using Chi.
// It composes read (repo) and write (writer) dependencies through services.
type Server struct {
	courseSvc  course.Service
	studentSvc student.Service
	ready      ReadyChecker
	log        *slog.Logger
	rt         *chi.Mux
}

// Deps carries the storage dependencies for New. ReadyCheck may be nil when
// the backing store has no notion of readiness (in-memory).
type Deps struct {
	CourseRepo    course.Repo
	CourseWriter  course.Writer
	StudentRepo   student.Repo
	StudentWriter student.Writer
	ReadyCheck    ReadyChecker
	NumberPrefix  string
}

// New constructs the HTTP server with routes and middleware.
// The logger is used by basic request/response logging and panic recovery.
func New(d Deps, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{
		courseSvc:  course.New(d.CourseRepo, d.CourseWriter),
		studentSvc: student.New(d.StudentRepo, d.StudentWriter, d.NumberPrefix),
		ready:      d.ReadyCheck,
		rt:         r,
		log:        logger,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	// Courses (v1)
	s.rt.With(s.validatePostCourse()).Post("/v1/courses", s.postCourse)
	s.rt.Get("/v1/courses", s.listCourses)
	s.rt.Get("/v1/courses/{id}", s.getCourse)
	s.rt.Patch("/v1/courses/{id}", s.patchCourse)
	// Students (v1)
	s.rt.With(s.validatePostStudent()).Post("/v1/students", s.postStudent)
	s.rt.Get("/v1/students", s.listStudents)
	s.rt.Get("/v1/students/{id}", s.getStudent)
	s.rt.Get("/v1/students/{id}/summary", s.getSummary)
	s.rt.Post("/v1/students/{id}/status", s.postStatus)
	// Payments (v1)
	s.rt.With(s.validatePostPayment()).Post("/v1/students/{id}/payments", s.postPayment)
	s.rt.Delete("/v1/students/{id}/payments/{paymentID}", s.deletePayment)
	// Custom fees (v1)
	s.rt.With(s.validatePostFee()).Post("/v1/students/{id}/fees", s.postFee)
	s.rt.Patch("/v1/students/{id}/fees/{feeID}", s.patchFee)
	// Admin (v1)
	s.rt.Post("/v1/admin/payments/clear", s.clearPayments)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}
