package httpapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/acadly/tuition/internal/academy"
	"github.com/acadly/tuition/internal/billing"
	"github.com/acadly/tuition/internal/service/student"
)

// formatMinor renders minor units as a currency string for display next to
// the raw value. Unknown or missing currency yields an empty string.
func formatMinor(curr string, minor int64) string {
	if curr == "" {
		return ""
	}
	a, err := money.NewAmountFromMinorUnits(curr, minor)
	if err != nil {
		return ""
	}
	return a.String()
}

// Courses

type planPayload struct {
	Name              string  `json:"name" validate:"required"`
	TotalMinor        int64   `json:"total_minor" validate:"gte=0"`
	InstallmentsMinor []int64 `json:"installments_minor" validate:"required,min=1,dive,gt=0"`
}

type examFeePayload struct {
	Name        string `json:"name" validate:"required"`
	AmountMinor int64  `json:"amount_minor" validate:"gte=0"`
}

type postCourseRequest struct {
	Name               string               `json:"name" validate:"required"`
	Code               string               `json:"code" validate:"required"`
	Currency           string               `json:"currency" validate:"required,len=3"`
	EnrollmentFeeMinor int64                `json:"enrollment_fee_minor" validate:"gte=0"`
	PaymentType        academy.PaymentType  `json:"payment_type" validate:"required,oneof=monthly installment"`
	MonthlyFeeMinor    int64                `json:"monthly_fee_minor" validate:"gte=0"`
	PaymentPlans       []planPayload        `json:"payment_plans,omitempty" validate:"dive"`
	ExamFees           []examFeePayload     `json:"exam_fees,omitempty" validate:"dive"`
}

type patchCourseRequest struct {
	Name               *string          `json:"name,omitempty"`
	EnrollmentFeeMinor *int64           `json:"enrollment_fee_minor,omitempty" validate:"omitempty,gte=0"`
	MonthlyFeeMinor    *int64           `json:"monthly_fee_minor,omitempty" validate:"omitempty,gte=0"`
	PaymentPlans       []planPayload    `json:"payment_plans,omitempty" validate:"dive"`
	ExamFees           []examFeePayload `json:"exam_fees,omitempty" validate:"dive"`
	Active             *bool            `json:"active,omitempty"`
}

type courseResponse struct {
	ID                 uuid.UUID           `json:"id"`
	Name               string              `json:"name"`
	Code               string              `json:"code"`
	Currency           string              `json:"currency"`
	EnrollmentFeeMinor int64               `json:"enrollment_fee_minor"`
	EnrollmentFee      string              `json:"enrollment_fee,omitempty"`
	PaymentType        academy.PaymentType `json:"payment_type"`
	MonthlyFeeMinor    int64               `json:"monthly_fee_minor,omitempty"`
	MonthlyFee         string              `json:"monthly_fee,omitempty"`
	PaymentPlans       []planPayload       `json:"payment_plans,omitempty"`
	ExamFees           []examFeePayload    `json:"exam_fees,omitempty"`
	Active             bool                `json:"active"`
}

func toCourseDomain(req postCourseRequest) academy.Course {
	c := academy.Course{
		Name:               req.Name,
		Code:               req.Code,
		Currency:           req.Currency,
		EnrollmentFeeMinor: req.EnrollmentFeeMinor,
		PaymentType:        req.PaymentType,
		MonthlyFeeMinor:    req.MonthlyFeeMinor,
	}
	for _, p := range req.PaymentPlans {
		c.PaymentPlans = append(c.PaymentPlans, academy.PaymentPlan{
			Name: p.Name, TotalMinor: p.TotalMinor, InstallmentsMinor: p.InstallmentsMinor,
		})
	}
	for _, ef := range req.ExamFees {
		c.ExamFees = append(c.ExamFees, academy.ExamFee{Name: ef.Name, AmountMinor: ef.AmountMinor})
	}
	return c
}

func toCourseResponse(c academy.Course) courseResponse {
	resp := courseResponse{
		ID:                 c.ID,
		Name:               c.Name,
		Code:               c.Code,
		Currency:           c.Currency,
		EnrollmentFeeMinor: c.EnrollmentFeeMinor,
		EnrollmentFee:      formatMinor(c.Currency, c.EnrollmentFeeMinor),
		PaymentType:        c.PaymentType,
		MonthlyFeeMinor:    c.MonthlyFeeMinor,
		Active:             c.Active,
	}
	if c.PaymentType == academy.PaymentTypeMonthly {
		resp.MonthlyFee = formatMinor(c.Currency, c.MonthlyFeeMinor)
	}
	for _, p := range c.PaymentPlans {
		resp.PaymentPlans = append(resp.PaymentPlans, planPayload{
			Name: p.Name, TotalMinor: p.TotalMinor, InstallmentsMinor: p.InstallmentsMinor,
		})
	}
	for _, ef := range c.ExamFees {
		resp.ExamFees = append(resp.ExamFees, examFeePayload{Name: ef.Name, AmountMinor: ef.AmountMinor})
	}
	return resp
}

// Students

type postStudentRequest struct {
	Name                string               `json:"name" validate:"required"`
	Guardian            string               `json:"guardian,omitempty"`
	Phone               string               `json:"phone,omitempty"`
	Email               string               `json:"email,omitempty" validate:"omitempty,email"`
	PhotoURL            string               `json:"photo_url,omitempty" validate:"omitempty,url"`
	EnrollmentDate      time.Time            `json:"enrollment_date,omitempty"`
	CourseID            uuid.UUID            `json:"course_id" validate:"required"`
	CourseDurationValue int                  `json:"course_duration_value" validate:"required,gt=0"`
	CourseDurationUnit  academy.DurationUnit `json:"course_duration_unit" validate:"required,oneof=months years"`
	SelectedPlan        string               `json:"selected_plan,omitempty"`

	OverrideEnrollmentFeeMinor *int64 `json:"override_enrollment_fee_minor,omitempty" validate:"omitempty,gte=0"`
	OverrideMonthlyFeeMinor    *int64 `json:"override_monthly_fee_minor,omitempty" validate:"omitempty,gte=0"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

func toCreateInput(req postStudentRequest) student.CreateInput {
	return student.CreateInput{
		Name:                       req.Name,
		Guardian:                   req.Guardian,
		Phone:                      req.Phone,
		Email:                      req.Email,
		PhotoURL:                   req.PhotoURL,
		EnrollmentDate:             req.EnrollmentDate,
		CourseID:                   req.CourseID,
		CourseDurationValue:        req.CourseDurationValue,
		CourseDurationUnit:         req.CourseDurationUnit,
		SelectedPlan:               req.SelectedPlan,
		OverrideEnrollmentFeeMinor: req.OverrideEnrollmentFeeMinor,
		OverrideMonthlyFeeMinor:    req.OverrideMonthlyFeeMinor,
		Metadata:                   req.Metadata,
	}
}

type paymentResponse struct {
	ID          uuid.UUID           `json:"id"`
	Date        time.Time           `json:"date"`
	AmountMinor int64               `json:"amount_minor"`
	Kind        academy.PaymentKind `json:"kind"`
	ReferenceID string              `json:"reference_id,omitempty"`
	Remarks     string              `json:"remarks,omitempty"`
}

type customFeeResponse struct {
	ID          uuid.UUID               `json:"id"`
	Name        string                  `json:"name"`
	AmountMinor int64                   `json:"amount_minor"`
	Status      academy.CustomFeeStatus `json:"status"`
	DateCreated time.Time               `json:"date_created"`
	DatePaid    *time.Time              `json:"date_paid,omitempty"`
}

type studentResponse struct {
	ID                  uuid.UUID             `json:"id"`
	EnrollmentNo        string                `json:"enrollment_no"`
	Name                string                `json:"name"`
	Guardian            string                `json:"guardian,omitempty"`
	Phone               string                `json:"phone,omitempty"`
	Email               string                `json:"email,omitempty"`
	PhotoURL            string                `json:"photo_url,omitempty"`
	EnrollmentDate      time.Time             `json:"enrollment_date"`
	CourseID            uuid.UUID             `json:"course_id"`
	CourseDurationValue int                   `json:"course_duration_value"`
	CourseDurationUnit  academy.DurationUnit  `json:"course_duration_unit"`
	Status              academy.StudentStatus `json:"status"`
	SelectedPlan        string                `json:"selected_plan,omitempty"`

	OverrideEnrollmentFeeMinor *int64 `json:"override_enrollment_fee_minor,omitempty"`
	OverrideMonthlyFeeMinor    *int64 `json:"override_monthly_fee_minor,omitempty"`

	PaymentHistory []paymentResponse   `json:"payment_history"`
	CustomFees     []customFeeResponse `json:"custom_fees,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

func toStudentResponse(st academy.Student) studentResponse {
	resp := studentResponse{
		ID:                         st.ID,
		EnrollmentNo:               st.EnrollmentNo,
		Name:                       st.Name,
		Guardian:                   st.Guardian,
		Phone:                      st.Phone,
		Email:                      st.Email,
		PhotoURL:                   st.PhotoURL,
		EnrollmentDate:             st.EnrollmentDate,
		CourseID:                   st.CourseID,
		CourseDurationValue:        st.CourseDurationValue,
		CourseDurationUnit:         st.CourseDurationUnit,
		Status:                     st.Status,
		SelectedPlan:               st.SelectedPlan,
		OverrideEnrollmentFeeMinor: st.OverrideEnrollmentFeeMinor,
		OverrideMonthlyFeeMinor:    st.OverrideMonthlyFeeMinor,
		PaymentHistory:             make([]paymentResponse, 0, len(st.PaymentHistory)),
		Metadata:                   st.Metadata,
	}
	for _, p := range st.PaymentHistory {
		resp.PaymentHistory = append(resp.PaymentHistory, paymentResponse{
			ID: p.ID, Date: p.Date, AmountMinor: p.AmountMinor, Kind: p.Kind,
			ReferenceID: p.ReferenceID, Remarks: p.Remarks,
		})
	}
	for _, cf := range st.CustomFees {
		resp.CustomFees = append(resp.CustomFees, customFeeResponse{
			ID: cf.ID, Name: cf.Name, AmountMinor: cf.AmountMinor, Status: cf.Status,
			DateCreated: cf.DateCreated, DatePaid: cf.DatePaid,
		})
	}
	return resp
}

// Payments

type postPaymentRequest struct {
	Date        time.Time           `json:"date,omitempty"`
	AmountMinor int64               `json:"amount_minor" validate:"required,gt=0"`
	Kind        academy.PaymentKind `json:"kind" validate:"required,oneof=enrollment monthly installment exam custom partial"`
	ReferenceID string              `json:"reference_id,omitempty"`
	Remarks     string              `json:"remarks,omitempty"`
	// AllowSettled confirms taking a payment toward an already settled item.
	AllowSettled bool `json:"allow_settled,omitempty"`
}

func toPaymentInput(req postPaymentRequest) student.PaymentInput {
	return student.PaymentInput{
		Date:         req.Date,
		AmountMinor:  req.AmountMinor,
		Kind:         req.Kind,
		ReferenceID:  req.ReferenceID,
		Remarks:      req.Remarks,
		AllowSettled: req.AllowSettled,
	}
}

// Custom fees

type postFeeRequest struct {
	Name        string                  `json:"name" validate:"required"`
	AmountMinor int64                   `json:"amount_minor" validate:"gte=0"`
	Status      academy.CustomFeeStatus `json:"status" validate:"required,oneof=due paid"`
}

type patchFeeRequest struct {
	Status academy.CustomFeeStatus `json:"status" validate:"required,oneof=due paid"`
}

// Status

type postStatusRequest struct {
	Status academy.StudentStatus `json:"status" validate:"required,oneof=left completed_paid completed_unpaid"`
}

// Summary

type summaryItemResponse struct {
	Kind        billing.ItemKind `json:"kind"`
	Label       string           `json:"label"`
	ReferenceID string           `json:"reference_id,omitempty"`
	BilledMinor int64            `json:"billed_minor"`
	PaidMinor   int64            `json:"paid_minor"`
	DueMinor    int64            `json:"due_minor"`
	Due         string           `json:"due,omitempty"`
}

type summaryResponse struct {
	StudentID        uuid.UUID             `json:"student_id"`
	Currency         string                `json:"currency,omitempty"`
	TotalBilledMinor int64                 `json:"total_billed_minor"`
	TotalPaidMinor   int64                 `json:"total_paid_minor"`
	TotalDueMinor    int64                 `json:"total_due_minor"`
	TotalDue         string                `json:"total_due,omitempty"`
	Items            []summaryItemResponse `json:"items"`
	CourseEnd        time.Time             `json:"course_end"`
	MonthsRemaining  int                   `json:"months_remaining"`
	Finished         bool                  `json:"finished"`
}

func toSummaryResponse(id uuid.UUID, sum billing.Summary) summaryResponse {
	resp := summaryResponse{
		StudentID:        id,
		Currency:         sum.Currency,
		TotalBilledMinor: sum.TotalBilledMinor,
		TotalPaidMinor:   sum.TotalPaidMinor,
		TotalDueMinor:    sum.TotalDueMinor,
		TotalDue:         formatMinor(sum.Currency, sum.TotalDueMinor),
		Items:            make([]summaryItemResponse, 0, len(sum.Items)),
		CourseEnd:        sum.Remaining.CourseEnd,
		MonthsRemaining:  sum.Remaining.Months,
		Finished:         sum.Remaining.Finished,
	}
	for _, it := range sum.Items {
		resp.Items = append(resp.Items, summaryItemResponse{
			Kind:        it.Kind,
			Label:       it.Label,
			ReferenceID: it.ReferenceID,
			BilledMinor: it.BilledMinor,
			PaidMinor:   it.PaidMinor,
			DueMinor:    it.DueMinor,
			Due:         formatMinor(sum.Currency, it.DueMinor),
		})
	}
	return resp
}

// Admin

type clearPaymentsResponse struct {
	StudentsReset int `json:"students_reset"`
}
