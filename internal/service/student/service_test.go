package student

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/acadly/tuition/internal/academy"
	"github.com/acadly/tuition/internal/billing"
	"github.com/acadly/tuition/internal/errs"
	"github.com/acadly/tuition/internal/storage/memory"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedMonthlyCourse(store *memory.Store) academy.Course {
	c := academy.Course{
		ID:                 uuid.New(),
		Name:               "Web Development",
		Code:               "webdev",
		Currency:           "USD",
		EnrollmentFeeMinor: 55000,
		PaymentType:        academy.PaymentTypeMonthly,
		MonthlyFeeMinor:    120000,
		Active:             true,
	}
	store.SeedCourse(c)
	return c
}

func seedInstallmentCourse(store *memory.Store) academy.Course {
	c := academy.Course{
		ID:                 uuid.New(),
		Name:               "Data Engineering",
		Code:               "dataeng",
		Currency:           "USD",
		EnrollmentFeeMinor: 55000,
		PaymentType:        academy.PaymentTypeInstallment,
		PaymentPlans: []academy.PaymentPlan{
			{Name: "standard", TotalMinor: 300000, InstallmentsMinor: []int64{100000, 100000, 100000}},
		},
		Active: true,
	}
	store.SeedCourse(c)
	return c
}

func setup(t *testing.T) (*memory.Store, Service) {
	t.Helper()
	store := memory.New()
	return store, New(store, store, "")
}

func mustCreate(t *testing.T, svc Service, c academy.Course) academy.Student {
	t.Helper()
	in := CreateInput{
		Name:                "Asha Patel",
		EnrollmentDate:      date(2024, time.January, 15),
		CourseID:            c.ID,
		CourseDurationValue: 12,
		CourseDurationUnit:  academy.DurationMonths,
	}
	if c.PaymentType == academy.PaymentTypeInstallment {
		in.SelectedPlan = "standard"
	}
	st, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	return st
}

func TestCreate_AssignsNumberAndPendingStatus(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)

	st := mustCreate(t, svc, c)
	if st.Status != academy.StatusEnrollmentPending {
		t.Fatalf("initial status = %s", st.Status)
	}
	if st.EnrollmentNo != "ENR240001" {
		t.Fatalf("enrollment number = %q, want ENR240001", st.EnrollmentNo)
	}

	second, err := svc.Create(context.Background(), CreateInput{
		Name:                "Ben Okafor",
		EnrollmentDate:      date(2024, time.March, 1),
		CourseID:            c.ID,
		CourseDurationValue: 1,
		CourseDurationUnit:  academy.DurationYears,
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.EnrollmentNo != "ENR240002" {
		t.Fatalf("second number = %q, want ENR240002", second.EnrollmentNo)
	}
}

func TestCreate_InstallmentCourseRequiresPlan(t *testing.T) {
	store, svc := setup(t)
	c := seedInstallmentCourse(store)

	_, err := svc.Create(context.Background(), CreateInput{
		Name:                "Asha Patel",
		CourseID:            c.ID,
		CourseDurationValue: 6,
		CourseDurationUnit:  academy.DurationMonths,
	})
	if !errors.Is(err, errs.ErrPlanRequired) {
		t.Fatalf("expected ErrPlanRequired, got %v", err)
	}

	_, err = svc.Create(context.Background(), CreateInput{
		Name:                "Asha Patel",
		CourseID:            c.ID,
		CourseDurationValue: 6,
		CourseDurationUnit:  academy.DurationMonths,
		SelectedPlan:        "no_such_plan",
	})
	if !errors.Is(err, errs.ErrPlanRequired) {
		t.Fatalf("expected ErrPlanRequired for unknown plan, got %v", err)
	}
}

func TestApplyPayment_EnrollmentActivates(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)
	st := mustCreate(t, svc, c)

	updated, err := svc.ApplyPayment(context.Background(), st.ID, PaymentInput{
		Date:        date(2024, time.January, 16),
		AmountMinor: 55000,
		Kind:        academy.PaymentKindEnrollment,
	})
	if err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	if updated.Status != academy.StatusActive {
		t.Fatalf("status = %s, want active", updated.Status)
	}
	if len(updated.PaymentHistory) != 1 {
		t.Fatalf("history length = %d", len(updated.PaymentHistory))
	}
	// Caller-supplied date is authoritative.
	if !updated.PaymentHistory[0].Date.Equal(date(2024, time.January, 16)) {
		t.Fatalf("payment date overridden: %v", updated.PaymentHistory[0].Date)
	}
}

func TestApplyPayment_PartialEnrollmentStaysPending(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)
	st := mustCreate(t, svc, c)

	updated, err := svc.ApplyPayment(context.Background(), st.ID, PaymentInput{
		Date:        date(2024, time.January, 16),
		AmountMinor: 30000,
		Kind:        academy.PaymentKindEnrollment,
	})
	if err != nil {
		t.Fatalf("apply payment: %v", err)
	}
	if updated.Status != academy.StatusEnrollmentPending {
		t.Fatalf("status = %s, want enrollment_pending", updated.Status)
	}
}

func TestRevertPayment_DemotesActiveToPending(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)
	st := mustCreate(t, svc, c)

	updated, err := svc.ApplyPayment(context.Background(), st.ID, PaymentInput{
		Date:        date(2024, time.January, 16),
		AmountMinor: 55000,
		Kind:        academy.PaymentKindEnrollment,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if updated.Status != academy.StatusActive {
		t.Fatalf("precondition: status = %s", updated.Status)
	}

	reverted, err := svc.RevertPayment(context.Background(), st.ID, updated.PaymentHistory[0].ID)
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if reverted.Status != academy.StatusEnrollmentPending {
		t.Fatalf("status after revert = %s, want enrollment_pending", reverted.Status)
	}
	if len(reverted.PaymentHistory) != 0 {
		t.Fatalf("history not emptied: %d", len(reverted.PaymentHistory))
	}
}

func TestRevertPayment_NeverDemotesBeyondActive(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)
	st := mustCreate(t, svc, c)

	applied, err := svc.ApplyPayment(context.Background(), st.ID, PaymentInput{
		Date:        date(2024, time.January, 16),
		AmountMinor: 55000,
		Kind:        academy.PaymentKindEnrollment,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := svc.SetStatus(context.Background(), st.ID, academy.StatusCompletedPaid); err != nil {
		t.Fatalf("set status: %v", err)
	}

	reverted, err := svc.RevertPayment(context.Background(), st.ID, applied.PaymentHistory[0].ID)
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if reverted.Status != academy.StatusCompletedPaid {
		t.Fatalf("completed student demoted to %s", reverted.Status)
	}
}

func TestRevertPayment_UnknownID(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)
	st := mustCreate(t, svc, c)

	_, err := svc.RevertPayment(context.Background(), st.ID, uuid.New())
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyPayment_RejectsSettledItem(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)
	st := mustCreate(t, svc, c)

	pay := PaymentInput{
		Date:        date(2024, time.January, 16),
		AmountMinor: 55000,
		Kind:        academy.PaymentKindEnrollment,
	}
	if _, err := svc.ApplyPayment(context.Background(), st.ID, pay); err != nil {
		t.Fatalf("first payment: %v", err)
	}
	// Enrollment is now settled: a second payment needs explicit confirmation.
	if _, err := svc.ApplyPayment(context.Background(), st.ID, pay); !errors.Is(err, errs.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	pay.AllowSettled = true
	if _, err := svc.ApplyPayment(context.Background(), st.ID, pay); err != nil {
		t.Fatalf("confirmed overpayment rejected: %v", err)
	}
}

func TestApplyPayment_RejectsInvalidAmount(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)
	st := mustCreate(t, svc, c)

	for _, amt := range []int64{0, -100} {
		_, err := svc.ApplyPayment(context.Background(), st.ID, PaymentInput{
			AmountMinor: amt,
			Kind:        academy.PaymentKindEnrollment,
		})
		if !errors.Is(err, errs.ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amt, err)
		}
	}
	// No partial write happened.
	got, err := svc.Get(context.Background(), st.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.PaymentHistory) != 0 {
		t.Fatalf("history not empty after rejected payments")
	}
}

func TestAddCustomFee_PaidSynthesizesPayment(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)
	st := mustCreate(t, svc, c)

	updated, err := svc.AddCustomFee(context.Background(), st.ID, CustomFeeInput{
		Name:        "Lab Kit",
		AmountMinor: 8000,
		Status:      academy.CustomFeePaid,
	})
	if err != nil {
		t.Fatalf("add fee: %v", err)
	}
	if len(updated.CustomFees) != 1 || updated.CustomFees[0].Status != academy.CustomFeePaid {
		t.Fatalf("fee not recorded paid: %+v", updated.CustomFees)
	}
	if updated.CustomFees[0].DatePaid == nil {
		t.Fatalf("date paid not set")
	}
	if len(updated.PaymentHistory) != 1 {
		t.Fatalf("expected exactly one synthesized payment, got %d", len(updated.PaymentHistory))
	}
	rec := updated.PaymentHistory[0]
	if rec.Kind != academy.PaymentKindCustom || rec.AmountMinor != 8000 {
		t.Fatalf("synthesized record wrong: %+v", rec)
	}
	if rec.ReferenceID != updated.CustomFees[0].ID.String() {
		t.Fatalf("record not tied to the fee: %q", rec.ReferenceID)
	}
}

func TestApplyPayment_CustomFlipsFee(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)
	st := mustCreate(t, svc, c)

	withFee, err := svc.AddCustomFee(context.Background(), st.ID, CustomFeeInput{
		Name:        "Lab Kit",
		AmountMinor: 8000,
		Status:      academy.CustomFeeDue,
	})
	if err != nil {
		t.Fatalf("add fee: %v", err)
	}
	feeID := withFee.CustomFees[0].ID

	paid, err := svc.ApplyPayment(context.Background(), st.ID, PaymentInput{
		Date:        date(2024, time.February, 1),
		AmountMinor: 8000,
		Kind:        academy.PaymentKindCustom,
		ReferenceID: feeID.String(),
	})
	if err != nil {
		t.Fatalf("apply custom payment: %v", err)
	}
	if paid.CustomFees[0].Status != academy.CustomFeePaid || paid.CustomFees[0].DatePaid == nil {
		t.Fatalf("fee not flipped: %+v", paid.CustomFees[0])
	}

	// Paying the same fee again without confirmation is rejected.
	_, err = svc.ApplyPayment(context.Background(), st.ID, PaymentInput{
		Date:        date(2024, time.February, 2),
		AmountMinor: 8000,
		Kind:        academy.PaymentKindCustom,
		ReferenceID: feeID.String(),
	})
	if !errors.Is(err, errs.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestApplyPayment_CustomOverpaymentNeedsConfirmation(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)
	st := mustCreate(t, svc, c)

	withFee, err := svc.AddCustomFee(context.Background(), st.ID, CustomFeeInput{
		Name:        "Lab Kit",
		AmountMinor: 8000,
		Status:      academy.CustomFeeDue,
	})
	if err != nil {
		t.Fatalf("add fee: %v", err)
	}
	feeID := withFee.CustomFees[0].ID

	// Paying more than the fee's amount is an overcharge; without explicit
	// confirmation it must not go through.
	pay := PaymentInput{
		Date:        date(2024, time.February, 1),
		AmountMinor: 999999,
		Kind:        academy.PaymentKindCustom,
		ReferenceID: feeID.String(),
	}
	if _, err := svc.ApplyPayment(context.Background(), st.ID, pay); !errors.Is(err, errs.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	got, err := svc.Get(context.Background(), st.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.PaymentHistory) != 0 || got.CustomFees[0].Status != academy.CustomFeeDue {
		t.Fatalf("rejected payment left a trace: %+v", got)
	}

	pay.AllowSettled = true
	paid, err := svc.ApplyPayment(context.Background(), st.ID, pay)
	if err != nil {
		t.Fatalf("confirmed overpayment rejected: %v", err)
	}
	if paid.CustomFees[0].Status != academy.CustomFeePaid {
		t.Fatalf("fee not flipped: %+v", paid.CustomFees[0])
	}
}

func TestApplyPayment_UntrackedMonthNeedsConfirmation(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)
	st := mustCreate(t, svc, c)

	// A label outside the billable window matches no item; prepaying it is
	// only possible as an explicitly confirmed decision.
	pay := PaymentInput{
		Date:        date(2024, time.January, 16),
		AmountMinor: 120000,
		Kind:        academy.PaymentKindMonthly,
		ReferenceID: date(2024, time.June, 1).Format(billing.MonthLabelLayout),
	}
	if _, err := svc.ApplyPayment(context.Background(), st.ID, pay); !errors.Is(err, errs.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	pay.AllowSettled = true
	if _, err := svc.ApplyPayment(context.Background(), st.ID, pay); err != nil {
		t.Fatalf("confirmed prepayment rejected: %v", err)
	}

	// The current month is billable and accepted as-is.
	current := PaymentInput{
		Date:        date(2024, time.January, 16),
		AmountMinor: 120000,
		Kind:        academy.PaymentKindMonthly,
		ReferenceID: date(2024, time.January, 1).Format(billing.MonthLabelLayout),
	}
	if _, err := svc.ApplyPayment(context.Background(), st.ID, current); err != nil {
		t.Fatalf("current month rejected: %v", err)
	}
}

func TestRevertPayment_DoesNotFlipCustomFee(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)
	st := mustCreate(t, svc, c)

	withFee, err := svc.AddCustomFee(context.Background(), st.ID, CustomFeeInput{
		Name:        "Lab Kit",
		AmountMinor: 8000,
		Status:      academy.CustomFeePaid,
	})
	if err != nil {
		t.Fatalf("add fee: %v", err)
	}

	reverted, err := svc.RevertPayment(context.Background(), st.ID, withFee.PaymentHistory[0].ID)
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if reverted.CustomFees[0].Status != academy.CustomFeePaid {
		t.Fatalf("revert cascaded to fee status")
	}

	// The explicit flip is its own operation.
	flipped, err := svc.UpdateCustomFeeStatus(context.Background(), st.ID, reverted.CustomFees[0].ID, academy.CustomFeeDue)
	if err != nil {
		t.Fatalf("update fee status: %v", err)
	}
	if flipped.CustomFees[0].Status != academy.CustomFeeDue || flipped.CustomFees[0].DatePaid != nil {
		t.Fatalf("fee not flipped back: %+v", flipped.CustomFees[0])
	}
}

func TestUpdateCustomFeeStatus_DueToPaidSynthesizes(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)
	st := mustCreate(t, svc, c)

	withFee, err := svc.AddCustomFee(context.Background(), st.ID, CustomFeeInput{
		Name:        "ID Card",
		AmountMinor: 1500,
		Status:      academy.CustomFeeDue,
	})
	if err != nil {
		t.Fatalf("add fee: %v", err)
	}
	paid, err := svc.UpdateCustomFeeStatus(context.Background(), st.ID, withFee.CustomFees[0].ID, academy.CustomFeePaid)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if len(paid.PaymentHistory) != 1 || paid.PaymentHistory[0].AmountMinor != 1500 {
		t.Fatalf("no synthesized payment on manual flip: %+v", paid.PaymentHistory)
	}
}

func TestSetStatus_Transitions(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)
	st := mustCreate(t, svc, c)

	left, err := svc.SetStatus(context.Background(), st.ID, academy.StatusLeft)
	if err != nil {
		t.Fatalf("mark left: %v", err)
	}
	if left.Status != academy.StatusLeft {
		t.Fatalf("status = %s", left.Status)
	}
	// Terminal statuses admit no further transitions.
	if _, err := svc.SetStatus(context.Background(), st.ID, academy.StatusCompletedPaid); !errors.Is(err, errs.ErrTerminalStatus) {
		t.Fatalf("expected ErrTerminalStatus, got %v", err)
	}
	// Payment-driven stages cannot be set by hand.
	if _, err := svc.SetStatus(context.Background(), st.ID, academy.StatusActive); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestClearAllPayments_ResetsEverything(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)
	st := mustCreate(t, svc, c)

	if _, err := svc.ApplyPayment(context.Background(), st.ID, PaymentInput{
		Date: date(2024, time.January, 16), AmountMinor: 55000, Kind: academy.PaymentKindEnrollment,
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := svc.AddCustomFee(context.Background(), st.ID, CustomFeeInput{
		Name: "Lab Kit", AmountMinor: 8000, Status: academy.CustomFeePaid,
	}); err != nil {
		t.Fatalf("add fee: %v", err)
	}
	// Bulk reset bypasses the "never demote beyond active" guard.
	if _, err := svc.SetStatus(context.Background(), st.ID, academy.StatusCompletedPaid); err != nil {
		t.Fatalf("set status: %v", err)
	}

	n, err := svc.ClearAllPayments(context.Background())
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n != 1 {
		t.Fatalf("students touched = %d", n)
	}
	got, err := svc.Get(context.Background(), st.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != academy.StatusEnrollmentPending {
		t.Fatalf("status = %s, want enrollment_pending", got.Status)
	}
	if len(got.PaymentHistory) != 0 {
		t.Fatalf("history not cleared")
	}
	if got.CustomFees[0].Status != academy.CustomFeeDue || got.CustomFees[0].DatePaid != nil {
		t.Fatalf("custom fee not reset: %+v", got.CustomFees[0])
	}
}

func TestSummary_DegradesWhenCourseDeleted(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)
	st := mustCreate(t, svc, c)

	if err := store.DeleteCourse(context.Background(), c.ID); err != nil {
		t.Fatalf("delete course: %v", err)
	}
	sum, err := svc.Summary(context.Background(), st.ID, date(2024, time.March, 10))
	if err != nil {
		t.Fatalf("summary should degrade, got error: %v", err)
	}
	for _, it := range sum.Items {
		if it.Kind == billing.ItemMonth {
			t.Fatalf("monthly items present without course")
		}
	}
}

func TestSummary_MonthlyDues(t *testing.T) {
	store, svc := setup(t)
	c := seedMonthlyCourse(store)
	st := mustCreate(t, svc, c)

	sum, err := svc.Summary(context.Background(), st.ID, date(2024, time.March, 10))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	var months int
	for _, it := range sum.Items {
		if it.Kind == billing.ItemMonth {
			months++
		}
	}
	if months != 3 {
		t.Fatalf("billable months = %d, want 3", months)
	}
	if sum.TotalDueMinor != c.EnrollmentFeeMinor+3*c.MonthlyFeeMinor {
		t.Fatalf("total due = %d", sum.TotalDueMinor)
	}
}
