package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the services.
//
// It is intentionally small and explicit. Migrations that create the expected
// schema live under db/migrations. This package focuses on mapping between the
// domain entities and SQL rows and running the necessary statements/transactions.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acadly/tuition/internal/academy"
	"github.com/acadly/tuition/internal/errs"
	"github.com/acadly/tuition/internal/meta"
)

// Store holds a pgx connection pool and implements the read/write interfaces
// used across the service layer. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil { return nil, err }
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil { return nil, err }
	// Verify connection
	if err := pool.Ping(ctx); err != nil { pool.Close(); return nil, err }
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() { if s.pool != nil { s.pool.Close() } }

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// planRow / examFeeRow are the jsonb shapes stored on the courses table.
type planRow struct {
	Name         string  `json:"name"`
	TotalMinor   int64   `json:"total_minor"`
	Installments []int64 `json:"installments_minor"`
}

type examFeeRow struct {
	Name        string `json:"name"`
	AmountMinor int64  `json:"amount_minor"`
}

func encodePlans(plans []academy.PaymentPlan) ([]byte, error) {
	rows := make([]planRow, 0, len(plans))
	for _, p := range plans {
		rows = append(rows, planRow{Name: p.Name, TotalMinor: p.TotalMinor, Installments: p.InstallmentsMinor})
	}
	return json.Marshal(rows)
}

func decodePlans(b []byte) ([]academy.PaymentPlan, error) {
	if len(b) == 0 { return nil, nil }
	var rows []planRow
	if err := json.Unmarshal(b, &rows); err != nil { return nil, err }
	out := make([]academy.PaymentPlan, 0, len(rows))
	for _, r := range rows {
		out = append(out, academy.PaymentPlan{Name: r.Name, TotalMinor: r.TotalMinor, InstallmentsMinor: r.Installments})
	}
	return out, nil
}

func encodeExamFees(fees []academy.ExamFee) ([]byte, error) {
	rows := make([]examFeeRow, 0, len(fees))
	for _, f := range fees {
		rows = append(rows, examFeeRow{Name: f.Name, AmountMinor: f.AmountMinor})
	}
	return json.Marshal(rows)
}

func decodeExamFees(b []byte) ([]academy.ExamFee, error) {
	if len(b) == 0 { return nil, nil }
	var rows []examFeeRow
	if err := json.Unmarshal(b, &rows); err != nil { return nil, err }
	out := make([]academy.ExamFee, 0, len(rows))
	for _, r := range rows {
		out = append(out, academy.ExamFee{Name: r.Name, AmountMinor: r.AmountMinor})
	}
	return out, nil
}

const courseColumns = `id, name, code, currency, enrollment_fee_minor, payment_type, monthly_fee_minor, payment_plans, exam_fees, active`

func scanCourse(row pgx.Row) (academy.Course, error) {
	var c academy.Course
	var plans, fees []byte
	err := row.Scan(&c.ID, &c.Name, &c.Code, &c.Currency, &c.EnrollmentFeeMinor, &c.PaymentType, &c.MonthlyFeeMinor, &plans, &fees, &c.Active)
	if err != nil { return academy.Course{}, err }
	if c.PaymentPlans, err = decodePlans(plans); err != nil { return academy.Course{}, err }
	if c.ExamFees, err = decodeExamFees(fees); err != nil { return academy.Course{}, err }
	return c, nil
}

// --- Course reads ---

// ListCourses returns the full catalog ordered by code.
func (s *Store) ListCourses(ctx context.Context) ([]academy.Course, error) {
	rows, err := s.pool.Query(ctx, `
        select `+courseColumns+`
        from courses
        order by code
    `)
	if err != nil { return nil, err }
	defer rows.Close()
	out := make([]academy.Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil { return nil, err }
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCourse fetches a single catalog entry by id.
func (s *Store) GetCourse(ctx context.Context, id uuid.UUID) (academy.Course, error) {
	c, err := scanCourse(s.pool.QueryRow(ctx, `
        select `+courseColumns+`
        from courses
        where id = $1
    `, id))
	if errors.Is(err, pgx.ErrNoRows) { return academy.Course{}, errs.ErrNotFound }
	if err != nil { return academy.Course{}, err }
	return c, nil
}

// --- Course writes ---

// CreateCourse inserts a catalog row.
func (s *Store) CreateCourse(ctx context.Context, c academy.Course) (academy.Course, error) {
	plans, err := encodePlans(c.PaymentPlans)
	if err != nil { return academy.Course{}, err }
	fees, err := encodeExamFees(c.ExamFees)
	if err != nil { return academy.Course{}, err }
	_, err = s.pool.Exec(ctx, `
        insert into courses (id, name, code, currency, enrollment_fee_minor, payment_type, monthly_fee_minor, payment_plans, exam_fees, active)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `, c.ID, c.Name, strings.ToLower(c.Code), strings.ToUpper(c.Currency), c.EnrollmentFeeMinor, c.PaymentType, c.MonthlyFeeMinor, plans, fees, c.Active)
	if err != nil { return academy.Course{}, err }
	return c, nil
}

// UpdateCourse updates mutable fields (name, fees, plans, active). Identity
// fields are enforced immutable at the service layer.
func (s *Store) UpdateCourse(ctx context.Context, c academy.Course) (academy.Course, error) {
	plans, err := encodePlans(c.PaymentPlans)
	if err != nil { return academy.Course{}, err }
	fees, err := encodeExamFees(c.ExamFees)
	if err != nil { return academy.Course{}, err }
	ct, err := s.pool.Exec(ctx, `
        update courses
        set name=$1, enrollment_fee_minor=$2, monthly_fee_minor=$3, payment_plans=$4, exam_fees=$5, active=$6
        where id=$7
    `, c.Name, c.EnrollmentFeeMinor, c.MonthlyFeeMinor, plans, fees, c.Active, c.ID)
	if err != nil { return academy.Course{}, err }
	if ct.RowsAffected() == 0 { return academy.Course{}, errs.ErrNotFound }
	return c, nil
}

// --- Student reads ---

const studentColumns = `id, enrollment_no, name, guardian, phone, email, photo_url,
        enrollment_date, course_id, duration_value, duration_unit, status, selected_plan,
        override_enrollment_fee_minor, override_monthly_fee_minor, metadata`

func scanStudent(row pgx.Row) (academy.Student, error) {
	var st academy.Student
	var mdBytes []byte
	err := row.Scan(&st.ID, &st.EnrollmentNo, &st.Name, &st.Guardian, &st.Phone, &st.Email, &st.PhotoURL,
		&st.EnrollmentDate, &st.CourseID, &st.CourseDurationValue, &st.CourseDurationUnit, &st.Status, &st.SelectedPlan,
		&st.OverrideEnrollmentFeeMinor, &st.OverrideMonthlyFeeMinor, &mdBytes)
	if err != nil { return academy.Student{}, err }
	if len(mdBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(mdBytes); err == nil { st.Metadata = m }
	}
	return st, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// loadPayments populates PaymentHistory and CustomFees for the given students,
// preserving insertion order via the seq column.
func loadPayments(ctx context.Context, q querier, byID map[uuid.UUID]*academy.Student, ids []uuid.UUID) error {
	rows, err := q.Query(ctx, `
        select id, student_id, date, amount_minor, kind, reference_id, remarks
        from payments
        where student_id = any($1)
        order by seq asc
    `, ids)
	if err != nil { return err }
	defer rows.Close()
	for rows.Next() {
		var rec academy.PaymentRecord
		var studentID uuid.UUID
		if err := rows.Scan(&rec.ID, &studentID, &rec.Date, &rec.AmountMinor, &rec.Kind, &rec.ReferenceID, &rec.Remarks); err != nil { return err }
		if st := byID[studentID]; st != nil {
			st.PaymentHistory = append(st.PaymentHistory, rec)
		}
	}
	if err := rows.Err(); err != nil { return err }

	feeRows, err := q.Query(ctx, `
        select id, student_id, name, amount_minor, status, date_created, date_paid
        from custom_fees
        where student_id = any($1)
        order by date_created asc, id asc
    `, ids)
	if err != nil { return err }
	defer feeRows.Close()
	for feeRows.Next() {
		var cf academy.CustomFee
		var studentID uuid.UUID
		if err := feeRows.Scan(&cf.ID, &studentID, &cf.Name, &cf.AmountMinor, &cf.Status, &cf.DateCreated, &cf.DatePaid); err != nil { return err }
		if st := byID[studentID]; st != nil {
			st.CustomFees = append(st.CustomFees, cf)
		}
	}
	return feeRows.Err()
}

// ListStudents returns every student with history and fees populated.
func (s *Store) ListStudents(ctx context.Context) ([]academy.Student, error) {
	rows, err := s.pool.Query(ctx, `
        select `+studentColumns+`
        from students
        order by enrollment_date asc, enrollment_no asc
    `)
	if err != nil { return nil, err }
	defer rows.Close()
	students := make([]academy.Student, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil { return nil, err }
		students = append(students, st)
		ids = append(ids, st.ID)
	}
	if err := rows.Err(); err != nil { return nil, err }
	if len(students) == 0 { return students, nil }
	byID := make(map[uuid.UUID]*academy.Student, len(students))
	for i := range students { byID[students[i].ID] = &students[i] }
	if err := loadPayments(ctx, s.pool, byID, ids); err != nil { return nil, err }
	return students, nil
}

// GetStudent fetches one student aggregate by id.
func (s *Store) GetStudent(ctx context.Context, id uuid.UUID) (academy.Student, error) {
	st, err := scanStudent(s.pool.QueryRow(ctx, `
        select `+studentColumns+`
        from students
        where id = $1
    `, id))
	if errors.Is(err, pgx.ErrNoRows) { return academy.Student{}, errs.ErrNotFound }
	if err != nil { return academy.Student{}, err }
	byID := map[uuid.UUID]*academy.Student{st.ID: &st}
	if err := loadPayments(ctx, s.pool, byID, []uuid.UUID{st.ID}); err != nil { return academy.Student{}, err }
	return st, nil
}

// --- Student writes ---

// CreateStudent inserts the student row. A new student has no payments or fees.
func (s *Store) CreateStudent(ctx context.Context, st academy.Student) (academy.Student, error) {
	if err := st.Metadata.Validate(); err != nil { return academy.Student{}, err }
	md, _ := st.Metadata.MarshalStableJSON()
	_, err := s.pool.Exec(ctx, `
        insert into students (id, enrollment_no, name, guardian, phone, email, photo_url,
            enrollment_date, course_id, duration_value, duration_unit, status, selected_plan,
            override_enrollment_fee_minor, override_monthly_fee_minor, metadata)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
    `, st.ID, st.EnrollmentNo, st.Name, st.Guardian, st.Phone, st.Email, st.PhotoURL,
		st.EnrollmentDate, st.CourseID, st.CourseDurationValue, st.CourseDurationUnit, st.Status, st.SelectedPlan,
		st.OverrideEnrollmentFeeMinor, st.OverrideMonthlyFeeMinor, md)
	if err != nil { return academy.Student{}, err }
	return st, nil
}

// UpdateStudent loads the aggregate under a row lock, applies fn, and rewrites
// the dependent rows in the same transaction. fn returning an error rolls the
// whole thing back.
func (s *Store) UpdateStudent(ctx context.Context, id uuid.UUID, fn func(*academy.Student) error) (academy.Student, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil { return academy.Student{}, err }
	defer func() { _ = tx.Rollback(ctx) }()

	st, err := scanStudent(tx.QueryRow(ctx, `
        select `+studentColumns+`
        from students
        where id = $1
        for update
    `, id))
	if errors.Is(err, pgx.ErrNoRows) { return academy.Student{}, errs.ErrNotFound }
	if err != nil { return academy.Student{}, err }
	byID := map[uuid.UUID]*academy.Student{st.ID: &st}
	if err := loadPayments(ctx, tx, byID, []uuid.UUID{st.ID}); err != nil { return academy.Student{}, err }

	if err := fn(&st); err != nil { return academy.Student{}, err }

	if err := writeAggregate(ctx, tx, st); err != nil { return academy.Student{}, err }
	if err := tx.Commit(ctx); err != nil { return academy.Student{}, err }
	return st, nil
}

// writeAggregate persists the mutable parts of the aggregate: the student row
// plus a full rewrite of payments and custom fees. Histories are small (one
// student's ledger), so delete-and-reinsert keeps ordering trivially correct.
func writeAggregate(ctx context.Context, tx pgx.Tx, st academy.Student) error {
	md, _ := st.Metadata.MarshalStableJSON()
	ct, err := tx.Exec(ctx, `
        update students
        set name=$1, guardian=$2, phone=$3, email=$4, photo_url=$5, status=$6, selected_plan=$7,
            override_enrollment_fee_minor=$8, override_monthly_fee_minor=$9, metadata=$10
        where id=$11
    `, st.Name, st.Guardian, st.Phone, st.Email, st.PhotoURL, st.Status, st.SelectedPlan,
		st.OverrideEnrollmentFeeMinor, st.OverrideMonthlyFeeMinor, md, st.ID)
	if err != nil { return err }
	if ct.RowsAffected() == 0 { return errs.ErrNotFound }

	if _, err := tx.Exec(ctx, `delete from payments where student_id = $1`, st.ID); err != nil { return err }
	for i, p := range st.PaymentHistory {
		if _, err := tx.Exec(ctx, `
            insert into payments (id, student_id, seq, date, amount_minor, kind, reference_id, remarks)
            values ($1,$2,$3,$4,$5,$6,$7,$8)
        `, p.ID, st.ID, i, p.Date, p.AmountMinor, p.Kind, p.ReferenceID, p.Remarks); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `delete from custom_fees where student_id = $1`, st.ID); err != nil { return err }
	for _, cf := range st.CustomFees {
		if _, err := tx.Exec(ctx, `
            insert into custom_fees (id, student_id, name, amount_minor, status, date_created, date_paid)
            values ($1,$2,$3,$4,$5,$6,$7)
        `, cf.ID, st.ID, cf.Name, cf.AmountMinor, cf.Status, cf.DateCreated, cf.DatePaid); err != nil {
			return fmt.Errorf("insert custom fee: %w", err)
		}
	}
	return nil
}

// ClearPayments is the bulk administrative reset: every payment row goes,
// every custom fee reverts to due, every student drops back to
// enrollment_pending. Returns the number of students touched.
func (s *Store) ClearPayments(ctx context.Context) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil { return 0, err }
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `delete from payments`); err != nil { return 0, err }
	if _, err := tx.Exec(ctx, `update custom_fees set status='due', date_paid=null`); err != nil { return 0, err }
	ct, err := tx.Exec(ctx, `update students set status='enrollment_pending'`)
	if err != nil { return 0, err }
	if err := tx.Commit(ctx); err != nil { return 0, err }
	return int(ct.RowsAffected()), nil
}
