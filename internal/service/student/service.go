// Package student implements the student lifecycle: intake with enrollment
// numbering, the payment allocator with its status transitions, custom fee
// maintenance, and the bulk administrative reset. Every mutation runs
// through the repository's atomic read-modify-write primitive.
package student

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/acadly/tuition/internal/academy"
	"github.com/acadly/tuition/internal/billing"
	"github.com/acadly/tuition/internal/enroll"
	"github.com/acadly/tuition/internal/errs"
	"github.com/acadly/tuition/internal/meta"
)

// Repo defines read operations needed by the service.
type Repo interface {
	ListStudents(ctx context.Context) ([]academy.Student, error)
	GetStudent(ctx context.Context, id uuid.UUID) (academy.Student, error)
	GetCourse(ctx context.Context, id uuid.UUID) (academy.Course, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateStudent(ctx context.Context, st academy.Student) (academy.Student, error)
	// UpdateStudent loads the current snapshot, applies fn, and persists the
	// result as one atomic unit. A concurrent writer must not interleave
	// between the read and the write. fn returning an error aborts without
	// any partial write.
	UpdateStudent(ctx context.Context, id uuid.UUID, fn func(*academy.Student) error) (academy.Student, error)
	// ClearPayments empties every payment history, resets every custom fee
	// to due, and sets every student to enrollment_pending. Returns the
	// number of students touched.
	ClearPayments(ctx context.Context) (int, error)
}

// PaymentInput carries a payment submission. The caller-supplied date is
// authoritative and stored as given, so revert stays symmetric with what
// was recorded.
type PaymentInput struct {
	Date        time.Time
	AmountMinor int64
	Kind        academy.PaymentKind
	ReferenceID string
	Remarks     string
	// AllowSettled is the caller's explicit confirmation to take a payment
	// toward an item the dues view already shows as settled, or past due.
	AllowSettled bool
}

// CustomFeeInput creates an ad-hoc fee, optionally pre-marked paid.
type CustomFeeInput struct {
	Name        string
	AmountMinor int64
	Status      academy.CustomFeeStatus
}

// CreateInput is the student intake request.
type CreateInput struct {
	Name                string
	Guardian            string
	Phone               string
	Email               string
	PhotoURL            string
	EnrollmentDate      time.Time
	CourseID            uuid.UUID
	CourseDurationValue int
	CourseDurationUnit  academy.DurationUnit
	SelectedPlan        string

	OverrideEnrollmentFeeMinor *int64
	OverrideMonthlyFeeMinor    *int64

	Metadata map[string]string
}

// Service exposes the student lifecycle and ledger operations.
type Service interface {
	Create(ctx context.Context, in CreateInput) (academy.Student, error)
	List(ctx context.Context) ([]academy.Student, error)
	Get(ctx context.Context, id uuid.UUID) (academy.Student, error)
	// Summary computes the dues view as of the supplied instant; a zero
	// asOf means now.
	Summary(ctx context.Context, id uuid.UUID, asOf time.Time) (billing.Summary, error)

	ApplyPayment(ctx context.Context, studentID uuid.UUID, in PaymentInput) (academy.Student, error)
	RevertPayment(ctx context.Context, studentID, paymentID uuid.UUID) (academy.Student, error)

	AddCustomFee(ctx context.Context, studentID uuid.UUID, in CustomFeeInput) (academy.Student, error)
	UpdateCustomFeeStatus(ctx context.Context, studentID, feeID uuid.UUID, status academy.CustomFeeStatus) (academy.Student, error)

	// SetStatus applies the explicit admin transitions: left from any
	// non-terminal stage, completed_paid/completed_unpaid as a manual
	// decision. Payment-driven stages cannot be set by hand.
	SetStatus(ctx context.Context, studentID uuid.UUID, to academy.StudentStatus) (academy.Student, error)

	// ClearAllPayments is the bulk administrative reset. It bypasses the
	// usual "never demote beyond active" guard.
	ClearAllPayments(ctx context.Context) (int, error)
}

type service struct {
	repo         Repo
	writer       Writer
	numberPrefix string
}

func New(repo Repo, writer Writer, numberPrefix string) Service {
	return &service{repo: repo, writer: writer, numberPrefix: numberPrefix}
}

func (s *service) Create(ctx context.Context, in CreateInput) (academy.Student, error) {
	if in.Name == "" {
		return academy.Student{}, errors.New("name is required")
	}
	if in.CourseDurationValue <= 0 {
		return academy.Student{}, errors.New("course duration must be > 0")
	}
	switch in.CourseDurationUnit {
	case academy.DurationMonths, academy.DurationYears:
	default:
		return academy.Student{}, errors.New("invalid duration unit")
	}
	if in.OverrideEnrollmentFeeMinor != nil && *in.OverrideEnrollmentFeeMinor < 0 {
		return academy.Student{}, errs.ErrInvalidAmount
	}
	if in.OverrideMonthlyFeeMinor != nil && *in.OverrideMonthlyFeeMinor < 0 {
		return academy.Student{}, errs.ErrInvalidAmount
	}
	course, err := s.repo.GetCourse(ctx, in.CourseID)
	if err != nil {
		return academy.Student{}, err
	}
	if course.PaymentType == academy.PaymentTypeInstallment {
		if in.SelectedPlan == "" {
			return academy.Student{}, errs.ErrPlanRequired
		}
		if _, ok := course.Plan(in.SelectedPlan); !ok {
			return academy.Student{}, errs.ErrPlanRequired
		}
	}
	when := in.EnrollmentDate
	if when.IsZero() {
		when = time.Now().UTC()
	}
	existing, err := s.repo.ListStudents(ctx)
	if err != nil {
		return academy.Student{}, err
	}
	md := meta.New(in.Metadata)
	if err := md.Validate(); err != nil {
		return academy.Student{}, err
	}
	st := academy.Student{
		ID:                         uuid.New(),
		EnrollmentNo:               enroll.Next(existing, when.Year(), s.numberPrefix),
		Name:                       in.Name,
		Guardian:                   in.Guardian,
		Phone:                      in.Phone,
		Email:                      in.Email,
		PhotoURL:                   in.PhotoURL,
		EnrollmentDate:             when,
		CourseID:                   course.ID,
		CourseDurationValue:        in.CourseDurationValue,
		CourseDurationUnit:         in.CourseDurationUnit,
		Status:                     academy.StatusEnrollmentPending,
		SelectedPlan:               in.SelectedPlan,
		OverrideEnrollmentFeeMinor: in.OverrideEnrollmentFeeMinor,
		OverrideMonthlyFeeMinor:    in.OverrideMonthlyFeeMinor,
		Metadata:                   md,
	}
	return s.writer.CreateStudent(ctx, st)
}

func (s *service) List(ctx context.Context) ([]academy.Student, error) {
	return s.repo.ListStudents(ctx)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (academy.Student, error) {
	if id == uuid.Nil {
		return academy.Student{}, errs.ErrInvalid
	}
	return s.repo.GetStudent(ctx, id)
}

func (s *service) Summary(ctx context.Context, id uuid.UUID, asOf time.Time) (billing.Summary, error) {
	st, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		return billing.Summary{}, err
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	return billing.Compute(st, s.lookupCourse(ctx, st.CourseID), asOf), nil
}

// lookupCourse resolves the student's course, tolerating a retired
// reference: the dues view degrades instead of failing.
func (s *service) lookupCourse(ctx context.Context, id uuid.UUID) *academy.Course {
	course, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return nil
	}
	return &course
}

func (s *service) ApplyPayment(ctx context.Context, studentID uuid.UUID, in PaymentInput) (academy.Student, error) {
	if studentID == uuid.Nil {
		return academy.Student{}, errs.ErrInvalid
	}
	if in.AmountMinor <= 0 {
		return academy.Student{}, errs.ErrInvalidAmount
	}
	if !academy.ValidPaymentKind(in.Kind) {
		return academy.Student{}, errs.ErrInvalid
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}
	course := s.courseForStudent(ctx, studentID)
	return s.writer.UpdateStudent(ctx, studentID, func(st *academy.Student) error {
		if err := s.checkSettled(st, course, in); err != nil {
			return err
		}
		rec := academy.PaymentRecord{
			ID:          uuid.New(),
			Date:        in.Date,
			AmountMinor: in.AmountMinor,
			Kind:        in.Kind,
			ReferenceID: in.ReferenceID,
			Remarks:     in.Remarks,
		}
		if in.Kind == academy.PaymentKindCustom {
			fee, ok := st.Fee(parseFeeID(in.ReferenceID))
			if !ok {
				return errs.ErrNotFound
			}
			// A settled fee, or a payment above the fee's amount, needs
			// the caller's explicit confirmation like any other item.
			if !in.AllowSettled && (fee.Status == academy.CustomFeePaid || in.AmountMinor > fee.AmountMinor) {
				return errs.ErrInvalidState
			}
			now := time.Now().UTC()
			fee.Status = academy.CustomFeePaid
			fee.DatePaid = &now
		}
		st.PaymentHistory = append(st.PaymentHistory, rec)
		recomputeStatus(st, course)
		return nil
	})
}

// courseForStudent resolves the course for the student id without holding
// the store lock; a missing course disables the settled-item guard but
// never blocks taking a payment.
func (s *service) courseForStudent(ctx context.Context, studentID uuid.UUID) *academy.Course {
	st, err := s.repo.GetStudent(ctx, studentID)
	if err != nil {
		return nil
	}
	return s.lookupCourse(ctx, st.CourseID)
}

// checkSettled rejects payments toward items the dues view shows as
// settled, and payments exceeding the item's remaining due, unless the
// caller confirmed explicitly. Callers are expected to pre-filter via the
// summary; this is the allocator's backstop against double charging.
func (s *service) checkSettled(st *academy.Student, course *academy.Course, in PaymentInput) error {
	if in.AllowSettled || course == nil {
		return nil
	}
	sum := billing.Compute(*st, course, in.Date)
	switch in.Kind {
	case academy.PaymentKindEnrollment, academy.PaymentKindMonthly, academy.PaymentKindExam:
		for _, it := range sum.Items {
			if it.ReferenceID != in.ReferenceID {
				continue
			}
			if matchesKind(it.Kind, in.Kind) {
				if it.DueMinor == 0 || in.AmountMinor > it.DueMinor {
					return errs.ErrInvalidState
				}
				return nil
			}
		}
		// The reference names no billable item as of the payment date
		// (future month, unknown exam fee). Prepayment is possible, but
		// only as an explicitly confirmed decision.
		return errs.ErrInvalidState
	case academy.PaymentKindInstallment, academy.PaymentKindPartial:
		var planDue int64
		var hasPlan bool
		for _, it := range sum.Items {
			if it.Kind == billing.ItemInstallment {
				planDue += it.DueMinor
				hasPlan = true
			}
		}
		if hasPlan && (planDue == 0 || in.AmountMinor > planDue) {
			return errs.ErrInvalidState
		}
	}
	return nil
}

func matchesKind(item billing.ItemKind, kind academy.PaymentKind) bool {
	switch kind {
	case academy.PaymentKindEnrollment:
		return item == billing.ItemEnrollment
	case academy.PaymentKindMonthly:
		return item == billing.ItemMonth
	case academy.PaymentKindExam:
		return item == billing.ItemExam
	}
	return false
}

func parseFeeID(ref string) uuid.UUID {
	id, err := uuid.Parse(ref)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (s *service) RevertPayment(ctx context.Context, studentID, paymentID uuid.UUID) (academy.Student, error) {
	if studentID == uuid.Nil || paymentID == uuid.Nil {
		return academy.Student{}, errs.ErrInvalid
	}
	course := s.courseForStudent(ctx, studentID)
	return s.writer.UpdateStudent(ctx, studentID, func(st *academy.Student) error {
		idx := -1
		for i, p := range st.PaymentHistory {
			if p.ID == paymentID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return errs.ErrNotFound
		}
		// Revert is a correction of an erroneous entry, not a refund. A
		// linked custom fee keeps its status; flipping it back is the
		// explicit UpdateCustomFeeStatus operation.
		st.PaymentHistory = append(st.PaymentHistory[:idx], st.PaymentHistory[idx+1:]...)
		recomputeStatus(st, course)
		return nil
	})
}

func (s *service) AddCustomFee(ctx context.Context, studentID uuid.UUID, in CustomFeeInput) (academy.Student, error) {
	if studentID == uuid.Nil {
		return academy.Student{}, errs.ErrInvalid
	}
	if in.Name == "" {
		return academy.Student{}, errors.New("fee name is required")
	}
	if in.AmountMinor < 0 {
		return academy.Student{}, errs.ErrInvalidAmount
	}
	switch in.Status {
	case academy.CustomFeeDue, academy.CustomFeePaid:
	default:
		return academy.Student{}, errs.ErrInvalid
	}
	return s.writer.UpdateStudent(ctx, studentID, func(st *academy.Student) error {
		now := time.Now().UTC()
		fee := academy.CustomFee{
			ID:          uuid.New(),
			Name:        in.Name,
			AmountMinor: in.AmountMinor,
			Status:      in.Status,
			DateCreated: now,
		}
		if in.Status == academy.CustomFeePaid {
			fee.DatePaid = &now
			// The synthesized record keeps ledger totals consistent with
			// the fee status. Zero-amount fees have nothing to record.
			if in.AmountMinor > 0 {
				st.PaymentHistory = append(st.PaymentHistory, academy.PaymentRecord{
					ID:          uuid.New(),
					Date:        now,
					AmountMinor: in.AmountMinor,
					Kind:        academy.PaymentKindCustom,
					ReferenceID: fee.ID.String(),
					Remarks:     "fee recorded as paid at creation",
				})
			}
		}
		st.CustomFees = append(st.CustomFees, fee)
		return nil
	})
}

func (s *service) UpdateCustomFeeStatus(ctx context.Context, studentID, feeID uuid.UUID, status academy.CustomFeeStatus) (academy.Student, error) {
	if studentID == uuid.Nil || feeID == uuid.Nil {
		return academy.Student{}, errs.ErrInvalid
	}
	switch status {
	case academy.CustomFeeDue, academy.CustomFeePaid:
	default:
		return academy.Student{}, errs.ErrInvalid
	}
	return s.writer.UpdateStudent(ctx, studentID, func(st *academy.Student) error {
		fee, ok := st.Fee(feeID)
		if !ok {
			return errs.ErrNotFound
		}
		if fee.Status == status {
			return nil
		}
		now := time.Now().UTC()
		if status == academy.CustomFeePaid {
			fee.Status = academy.CustomFeePaid
			fee.DatePaid = &now
			if fee.AmountMinor > 0 {
				st.PaymentHistory = append(st.PaymentHistory, academy.PaymentRecord{
					ID:          uuid.New(),
					Date:        now,
					AmountMinor: fee.AmountMinor,
					Kind:        academy.PaymentKindCustom,
					ReferenceID: fee.ID.String(),
					Remarks:     "fee marked paid",
				})
			}
			return nil
		}
		// paid -> due clears the paid marker only. Payments recorded against
		// the fee stay in the history until explicitly reverted.
		fee.Status = academy.CustomFeeDue
		fee.DatePaid = nil
		return nil
	})
}

func (s *service) SetStatus(ctx context.Context, studentID uuid.UUID, to academy.StudentStatus) (academy.Student, error) {
	if studentID == uuid.Nil {
		return academy.Student{}, errs.ErrInvalid
	}
	switch to {
	case academy.StatusLeft, academy.StatusCompletedPaid, academy.StatusCompletedUnpaid:
	default:
		// enrollment_pending and active are payment-driven.
		return academy.Student{}, errs.ErrInvalid
	}
	return s.writer.UpdateStudent(ctx, studentID, func(st *academy.Student) error {
		if st.Status.Terminal() {
			return errs.ErrTerminalStatus
		}
		st.Status = to
		return nil
	})
}

func (s *service) ClearAllPayments(ctx context.Context) (int, error) {
	return s.writer.ClearPayments(ctx)
}

// recomputeStatus applies the payment-driven transition after every apply
// and revert: enrollment_pending becomes active once cumulative enrollment
// payments reach the effective fee, and a revert that drops an active
// student below the threshold demotes back to pending. Statuses beyond
// active are never touched here.
func recomputeStatus(st *academy.Student, course *academy.Course) {
	var fee int64
	if course != nil {
		fee = st.EffectiveEnrollmentFeeMinor(*course)
	} else if st.OverrideEnrollmentFeeMinor != nil {
		fee = *st.OverrideEnrollmentFeeMinor
	}
	paid := st.PaidMinor(academy.PaymentKindEnrollment, "")
	switch st.Status {
	case academy.StatusEnrollmentPending:
		if paid >= fee {
			st.Status = academy.StatusActive
		}
	case academy.StatusActive:
		if paid < fee {
			st.Status = academy.StatusEnrollmentPending
		}
	}
}
