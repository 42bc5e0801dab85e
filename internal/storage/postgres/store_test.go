package postgres

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/acadly/tuition/internal/academy"
	"github.com/acadly/tuition/internal/errs"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func applyInitSQL(t *testing.T, dsn string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open for init: %v", err)
	}
	defer s.Close()
	// Resolve init SQL path relative to this test file so CWD doesn't matter
	_, thisFile, _, _ := runtime.Caller(0)
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(thisFile), "../../../"))
	path := filepath.Join(repoRoot, "db", "migrations", "0001_init.sql")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read init sql: %v", err)
	}
	if _, err := s.pool.Exec(ctx, string(b)); err != nil {
		t.Fatalf("apply init sql: %v", err)
	}
}

func truncateAll(t *testing.T, dsn string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open for truncate: %v", err)
	}
	defer s.Close()
	_, _ = s.pool.Exec(ctx, `truncate table custom_fees, payments, students, courses cascade`)
}

func TestStore_CoursesAndStudents(t *testing.T) {
	dsn := getTestDSN(t)
	applyInitSQL(t, dsn)
	truncateAll(t, dsn)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := mustOpen(t, dsn)
	defer s.Close()

	if err := s.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}

	course := academy.Course{
		ID:                 uuid.New(),
		Name:               "Web Development",
		Code:               "webdev",
		Currency:           "USD",
		EnrollmentFeeMinor: 55000,
		PaymentType:        academy.PaymentTypeInstallment,
		PaymentPlans: []academy.PaymentPlan{
			{Name: "standard", TotalMinor: 300000, InstallmentsMinor: []int64{100000, 100000, 100000}},
		},
		ExamFees: []academy.ExamFee{{Name: "Final", AmountMinor: 5000}},
		Active:   true,
	}
	if _, err := s.CreateCourse(ctx, course); err != nil {
		t.Fatalf("create course: %v", err)
	}
	gotCourse, err := s.GetCourse(ctx, course.ID)
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if len(gotCourse.PaymentPlans) != 1 || len(gotCourse.PaymentPlans[0].InstallmentsMinor) != 3 {
		t.Fatalf("plans did not round-trip: %+v", gotCourse.PaymentPlans)
	}
	if len(gotCourse.ExamFees) != 1 {
		t.Fatalf("exam fees did not round-trip: %+v", gotCourse.ExamFees)
	}

	list, err := s.ListCourses(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list courses: %v len=%d", err, len(list))
	}

	st := academy.Student{
		ID:                  uuid.New(),
		EnrollmentNo:        "ENR260001",
		Name:                "Asha Patel",
		EnrollmentDate:      time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
		CourseID:            course.ID,
		CourseDurationValue: 6,
		CourseDurationUnit:  academy.DurationMonths,
		Status:              academy.StatusEnrollmentPending,
		SelectedPlan:        "standard",
	}
	if _, err := s.CreateStudent(ctx, st); err != nil {
		t.Fatalf("create student: %v", err)
	}

	// Atomic mutation: append a payment and a custom fee in one unit.
	updated, err := s.UpdateStudent(ctx, st.ID, func(cur *academy.Student) error {
		cur.PaymentHistory = append(cur.PaymentHistory, academy.PaymentRecord{
			ID:          uuid.New(),
			Date:        time.Now().UTC(),
			AmountMinor: 55000,
			Kind:        academy.PaymentKindEnrollment,
		})
		now := time.Now().UTC()
		cur.CustomFees = append(cur.CustomFees, academy.CustomFee{
			ID:          uuid.New(),
			Name:        "Lab Kit",
			AmountMinor: 8000,
			Status:      academy.CustomFeePaid,
			DateCreated: now,
			DatePaid:    &now,
		})
		cur.Status = academy.StatusActive
		return nil
	})
	if err != nil {
		t.Fatalf("update student: %v", err)
	}
	if len(updated.PaymentHistory) != 1 || len(updated.CustomFees) != 1 {
		t.Fatalf("aggregate not rewritten: %+v", updated)
	}

	got, err := s.GetStudent(ctx, st.ID)
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	if got.Status != academy.StatusActive || len(got.PaymentHistory) != 1 {
		t.Fatalf("aggregate did not persist: %+v", got)
	}
	if got.CustomFees[0].DatePaid == nil {
		t.Fatalf("date_paid lost in round trip")
	}

	// fn error rolls back without partial writes.
	boom := errors.New("boom")
	if _, err := s.UpdateStudent(ctx, st.ID, func(cur *academy.Student) error {
		cur.PaymentHistory = nil
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	got, err = s.GetStudent(ctx, st.ID)
	if err != nil || len(got.PaymentHistory) != 1 {
		t.Fatalf("rollback failed: %v %+v", err, got)
	}

	// Bulk reset.
	n, err := s.ClearPayments(ctx)
	if err != nil || n != 1 {
		t.Fatalf("clear payments: %v n=%d", err, n)
	}
	got, err = s.GetStudent(ctx, st.ID)
	if err != nil {
		t.Fatalf("get after clear: %v", err)
	}
	if got.Status != academy.StatusEnrollmentPending || len(got.PaymentHistory) != 0 {
		t.Fatalf("clear did not reset: %+v", got)
	}
	if got.CustomFees[0].Status != academy.CustomFeeDue || got.CustomFees[0].DatePaid != nil {
		t.Fatalf("custom fee not reset: %+v", got.CustomFees[0])
	}

	if _, err := s.GetStudent(ctx, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
