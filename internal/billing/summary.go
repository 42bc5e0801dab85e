// Package billing computes per-item dues and the aggregate financial summary
// for a student from the course pricing model and the payment history. All
// functions are pure: the caller supplies the clock, and identical inputs
// always produce identical output.
package billing

import (
	"strconv"
	"time"

	"github.com/acadly/tuition/internal/academy"
)

// ItemKind classifies a billable item in the breakdown.
type ItemKind string

const (
	ItemEnrollment  ItemKind = "enrollment"
	ItemMonth       ItemKind = "month"
	ItemInstallment ItemKind = "installment"
	ItemExam        ItemKind = "exam"
	ItemCustomFee   ItemKind = "custom_fee"
)

// Item is one due-trackable unit with its billed/paid/due amounts.
// DueMinor is clamped at zero; overpayment never surfaces as credit.
type Item struct {
	Kind  ItemKind
	Label string
	// ReferenceID is the payment reference that settles this item
	// (month label, "inst_<n>", exam fee name, custom fee id).
	ReferenceID string
	BilledMinor int64
	PaidMinor   int64
	DueMinor    int64
}

// TimeRemaining reports how much of the billing window is left. It is
// informational only and never gates billing.
type TimeRemaining struct {
	CourseEnd time.Time
	Months    int
	Finished  bool
}

// Summary is the aggregate dues view for one student.
type Summary struct {
	Currency         string
	TotalBilledMinor int64
	TotalPaidMinor   int64
	TotalDueMinor    int64
	Items            []Item
	Remaining        TimeRemaining
}

func clampDue(billed, paid int64) int64 {
	if due := billed - paid; due > 0 {
		return due
	}
	return 0
}

// Compute derives the full dues breakdown for a student as of the supplied
// instant. course may be nil when the referenced course was retired; the
// summary then degrades to the components that do not need it rather than
// failing, since historical students may reference deleted catalog entries.
func Compute(st academy.Student, course *academy.Course, asOf time.Time) Summary {
	var sum Summary
	if course != nil {
		sum.Currency = course.Currency
	}

	for _, p := range st.PaymentHistory {
		sum.TotalPaidMinor += p.AmountMinor
	}

	// Enrollment component.
	var enrollFee int64
	if course != nil {
		enrollFee = st.EffectiveEnrollmentFeeMinor(*course)
	} else if st.OverrideEnrollmentFeeMinor != nil {
		enrollFee = *st.OverrideEnrollmentFeeMinor
	}
	enrollPaid := st.PaidMinor(academy.PaymentKindEnrollment, "")
	sum.Items = append(sum.Items, Item{
		Kind:        ItemEnrollment,
		Label:       "Enrollment Fee",
		BilledMinor: enrollFee,
		PaidMinor:   enrollPaid,
		DueMinor:    clampDue(enrollFee, enrollPaid),
	})
	sum.TotalBilledMinor += enrollFee

	if course != nil {
		switch course.PaymentType {
		case academy.PaymentTypeMonthly:
			fee := st.EffectiveMonthlyFeeMinor(*course)
			for _, m := range BillableMonths(st.EnrollmentDate, asOf, st.DurationMonths()) {
				paid := st.PaidMinor(academy.PaymentKindMonthly, m.Label)
				sum.Items = append(sum.Items, Item{
					Kind:        ItemMonth,
					Label:       m.Label,
					ReferenceID: m.Label,
					BilledMinor: fee,
					PaidMinor:   paid,
					DueMinor:    clampDue(fee, paid),
				})
				sum.TotalBilledMinor += fee
			}
		case academy.PaymentTypeInstallment:
			// A retired plan degrades the same way as a retired course.
			if plan, ok := course.Plan(st.SelectedPlan); ok {
				sum.Items = append(sum.Items, installmentItems(st, plan)...)
				for _, amt := range plan.InstallmentsMinor {
					sum.TotalBilledMinor += amt
				}
			}
		}

		for _, ef := range course.ExamFees {
			paid := st.PaidMinor(academy.PaymentKindExam, ef.Name)
			sum.Items = append(sum.Items, Item{
				Kind:        ItemExam,
				Label:       ef.Name,
				ReferenceID: ef.Name,
				BilledMinor: ef.AmountMinor,
				PaidMinor:   paid,
				DueMinor:    clampDue(ef.AmountMinor, paid),
			})
			sum.TotalBilledMinor += ef.AmountMinor
		}
	}

	// Custom fees: due is read off the fee status, not recomputed from payments.
	for _, cf := range st.CustomFees {
		item := Item{
			Kind:        ItemCustomFee,
			Label:       cf.Name,
			ReferenceID: cf.ID.String(),
			BilledMinor: cf.AmountMinor,
		}
		if cf.Status == academy.CustomFeePaid {
			item.PaidMinor = cf.AmountMinor
		} else {
			item.DueMinor = cf.AmountMinor
		}
		sum.Items = append(sum.Items, item)
		sum.TotalBilledMinor += cf.AmountMinor
	}

	sum.TotalDueMinor = clampDue(sum.TotalBilledMinor, sum.TotalPaidMinor)
	sum.Remaining = remaining(st, asOf)
	return sum
}

// installmentItems applies the undifferentiated pool of installment and
// partial payments to the plan's declared sequence, oldest-declared-first.
// Which installment a payment nominally referenced is irrelevant: earlier
// installments are always satisfied first.
func installmentItems(st academy.Student, plan academy.PaymentPlan) []Item {
	pool := st.PaidMinor(academy.PaymentKindInstallment, "") +
		st.PaidMinor(academy.PaymentKindPartial, "")

	items := make([]Item, 0, len(plan.InstallmentsMinor))
	for i, amt := range plan.InstallmentsMinor {
		absorbed := amt
		if pool < absorbed {
			absorbed = pool
		}
		pool -= absorbed
		items = append(items, Item{
			Kind:        ItemInstallment,
			Label:       "Installment " + strconv.Itoa(i+1),
			ReferenceID: academy.InstallmentRef(i + 1),
			BilledMinor: amt,
			PaidMinor:   absorbed,
			DueMinor:    amt - absorbed,
		})
	}
	return items
}

func remaining(st academy.Student, asOf time.Time) TimeRemaining {
	end := st.EnrollmentDate.AddDate(0, st.DurationMonths(), 0)
	if !asOf.Before(end) {
		return TimeRemaining{CourseEnd: end, Finished: true}
	}
	months := st.DurationMonths() - MonthsElapsed(st.EnrollmentDate, asOf)
	if months < 0 {
		months = 0
	}
	return TimeRemaining{CourseEnd: end, Months: months}
}
