package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/acadly/tuition/internal/meta"
)

type ctxKey string

const ctxKeyPostCourse ctxKey = "validatedPostCourse"
const ctxKeyPostStudent ctxKey = "validatedPostStudent"
const ctxKeyPostPayment ctxKey = "validatedPostPayment"
const ctxKeyPostFee ctxKey = "validatedPostFee"

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeValid decodes a strict JSON body into dst and runs struct validation.
// Returns false after writing the error response.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeFieldErrors(w, err)
		return false
	}
	return true
}

// validatePostCourse parses POST /courses, runs field validation plus the
// service's pricing-model checks, and stores the domain value in context.
func (s *Server) validatePostCourse() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postCourseRequest
			if !decodeValid(w, r, &req) {
				return
			}
			c := toCourseDomain(req)
			if err := s.courseSvc.ValidateCreate(c); err != nil {
				unprocessable(w, err.Error(), "validation_error")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostCourse, c)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostStudent parses POST /students and stores the intake input.
func (s *Server) validatePostStudent() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postStudentRequest
			if !decodeValid(w, r, &req) {
				return
			}
			if req.Metadata != nil {
				if err := meta.New(req.Metadata).Validate(); err != nil {
					unprocessable(w, err.Error(), "invalid_metadata")
					return
				}
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostStudent, toCreateInput(req))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostPayment parses POST /students/{id}/payments.
func (s *Server) validatePostPayment() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postPaymentRequest
			if !decodeValid(w, r, &req) {
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostPayment, toPaymentInput(req))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostFee parses POST /students/{id}/fees.
func (s *Server) validatePostFee() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postFeeRequest
			if !decodeValid(w, r, &req) {
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostFee, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
