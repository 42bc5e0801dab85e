package academy

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/acadly/tuition/internal/meta"
)

// PaymentType describes how a course bills its students.
type PaymentType string

const (
	// PaymentTypeMonthly bills a recurring fee per calendar month of enrollment.
	PaymentTypeMonthly PaymentType = "monthly"
	// PaymentTypeInstallment bills against a named plan's ordered installment amounts.
	PaymentTypeInstallment PaymentType = "installment"
)

// DurationUnit is the unit a student's course duration is expressed in.
type DurationUnit string

const (
	DurationMonths DurationUnit = "months"
	DurationYears  DurationUnit = "years"
)

// StudentStatus enumerates the student lifecycle stages.
type StudentStatus string

const (
	// StatusEnrollmentPending is the initial stage until the enrollment fee is covered.
	StatusEnrollmentPending StudentStatus = "enrollment_pending"
	// StatusActive means cumulative enrollment payments reached the effective fee.
	StatusActive StudentStatus = "active"
	// StatusCompletedPaid and StatusCompletedUnpaid are set manually by an admin;
	// completion is never derived from payments or elapsed duration.
	StatusCompletedPaid   StudentStatus = "completed_paid"
	StatusCompletedUnpaid StudentStatus = "completed_unpaid"
	// StatusLeft is reachable from any non-terminal stage via explicit admin action.
	StatusLeft StudentStatus = "left"
)

// Terminal reports whether the status is an end stage of the lifecycle.
func (s StudentStatus) Terminal() bool {
	switch s {
	case StatusCompletedPaid, StatusCompletedUnpaid, StatusLeft:
		return true
	}
	return false
}

// PaymentKind classifies what a payment record was taken against.
type PaymentKind string

const (
	PaymentKindEnrollment  PaymentKind = "enrollment"
	PaymentKindMonthly     PaymentKind = "monthly"
	PaymentKindInstallment PaymentKind = "installment"
	PaymentKindExam        PaymentKind = "exam"
	PaymentKindCustom      PaymentKind = "custom"
	// PaymentKindPartial is an untargeted amount pooled with installment
	// payments when dues are computed. It carries no reference id.
	PaymentKindPartial PaymentKind = "partial"
)

// ValidPaymentKind reports whether k is one of the known payment kinds.
func ValidPaymentKind(k PaymentKind) bool {
	switch k {
	case PaymentKindEnrollment, PaymentKindMonthly, PaymentKindInstallment,
		PaymentKindExam, PaymentKindCustom, PaymentKindPartial:
		return true
	}
	return false
}

// PaymentPlan is a named, ordered sequence of installment amounts on a course.
// TotalMinor is informational; dues tracking walks InstallmentsMinor in order.
type PaymentPlan struct {
	Name              string
	TotalMinor        int64
	InstallmentsMinor []int64
}

// ExamFee is a flat named fee on a course, due once per student.
type ExamFee struct {
	Name        string
	AmountMinor int64
}

// Course describes a catalog entry and its pricing model.
type Course struct {
	ID       uuid.UUID
	Name     string
	// Code is a short lowercase identifier unique across the catalog.
	Code     string
	Currency string
	// EnrollmentFeeMinor is the one-time fee owed at intake, in minor units.
	EnrollmentFeeMinor int64
	PaymentType        PaymentType
	// MonthlyFeeMinor is used iff PaymentType is monthly.
	MonthlyFeeMinor int64
	// PaymentPlans is used iff PaymentType is installment. Order is the
	// catalog's declared order and is preserved.
	PaymentPlans []PaymentPlan
	ExamFees     []ExamFee
	Active       bool
}

// Plan resolves a named payment plan on the course.
func (c Course) Plan(name string) (PaymentPlan, bool) {
	for _, p := range c.PaymentPlans {
		if p.Name == name {
			return p, true
		}
	}
	return PaymentPlan{}, false
}

// PaymentRecord is one payment taken from a student. Records are append-only:
// never edited in place, removed only by an explicit revert.
type PaymentRecord struct {
	ID          uuid.UUID
	Date        time.Time
	AmountMinor int64
	Kind        PaymentKind
	// ReferenceID ties the payment to a billable item: a month label for
	// monthly, "inst_<n>" for installment, the exam fee name for exam, the
	// custom fee id for custom. Empty for partial.
	ReferenceID string
	Remarks     string
}

// InstallmentRef is the canonical reference id for the 1-based installment n.
func InstallmentRef(n int) string { return "inst_" + strconv.Itoa(n) }

// CustomFeeStatus is the settled/unsettled flag on an ad-hoc fee.
type CustomFeeStatus string

const (
	CustomFeeDue  CustomFeeStatus = "due"
	CustomFeePaid CustomFeeStatus = "paid"
)

// CustomFee is an ad-hoc charge attached to a single student.
type CustomFee struct {
	ID          uuid.UUID
	Name        string
	AmountMinor int64
	Status      CustomFeeStatus
	DateCreated time.Time
	// DatePaid is set iff Status is paid.
	DatePaid *time.Time
}

// Student is the aggregate root of the billing ledger: it exclusively owns
// its payment history and custom fees. The course is referenced by id only.
type Student struct {
	ID           uuid.UUID
	EnrollmentNo string
	Name         string
	Guardian     string
	Phone        string
	Email        string
	// PhotoURL is an opaque blob-store URL; the billing core never inspects it.
	PhotoURL string

	EnrollmentDate      time.Time
	CourseID            uuid.UUID
	CourseDurationValue int
	CourseDurationUnit  DurationUnit
	Status              StudentStatus

	// SelectedPlan names a payment plan on the course; required iff the
	// course bills by installment.
	SelectedPlan string

	// Per-student fee overrides. When present they supersede the course
	// default for this student only.
	OverrideEnrollmentFeeMinor *int64
	OverrideMonthlyFeeMinor    *int64

	// PaymentHistory is ordered by insertion. Append and remove only.
	PaymentHistory []PaymentRecord
	CustomFees     []CustomFee

	Metadata meta.Metadata
}

// DurationMonths normalizes the course duration to whole months.
func (s Student) DurationMonths() int {
	if s.CourseDurationUnit == DurationYears {
		return s.CourseDurationValue * 12
	}
	return s.CourseDurationValue
}

// EffectiveEnrollmentFeeMinor returns the student's override if present,
// else the course default.
func (s Student) EffectiveEnrollmentFeeMinor(c Course) int64 {
	if s.OverrideEnrollmentFeeMinor != nil {
		return *s.OverrideEnrollmentFeeMinor
	}
	return c.EnrollmentFeeMinor
}

// EffectiveMonthlyFeeMinor returns the student's override if present,
// else the course default.
func (s Student) EffectiveMonthlyFeeMinor(c Course) int64 {
	if s.OverrideMonthlyFeeMinor != nil {
		return *s.OverrideMonthlyFeeMinor
	}
	return c.MonthlyFeeMinor
}

// PaidMinor sums payments of the given kind. An empty refID matches any
// reference; otherwise only payments tied to refID are counted.
func (s Student) PaidMinor(kind PaymentKind, refID string) int64 {
	var total int64
	for _, p := range s.PaymentHistory {
		if p.Kind != kind {
			continue
		}
		if refID != "" && p.ReferenceID != refID {
			continue
		}
		total += p.AmountMinor
	}
	return total
}

// Payment finds a record by id in the history.
func (s Student) Payment(id uuid.UUID) (PaymentRecord, bool) {
	for _, p := range s.PaymentHistory {
		if p.ID == id {
			return p, true
		}
	}
	return PaymentRecord{}, false
}

// Fee finds a custom fee by id.
func (s *Student) Fee(id uuid.UUID) (*CustomFee, bool) {
	for i := range s.CustomFees {
		if s.CustomFees[i].ID == id {
			return &s.CustomFees[i], true
		}
	}
	return nil, false
}
