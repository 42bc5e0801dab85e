package memory

// Package memory provides a simple in-memory implementation used for
// development and tests. UpdateStudent runs its mutation under the write
// lock, which makes the read-modify-write atomic with respect to every
// other accessor of the store.
import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/acadly/tuition/internal/academy"
	"github.com/acadly/tuition/internal/errs"
)

// Store is an in-memory implementation of the repository and writer
// interfaces used by the services. Guarded by an RWMutex.
type Store struct {
	mu       sync.RWMutex
	courses  map[uuid.UUID]academy.Course
	students map[uuid.UUID]*academy.Student
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		courses:  make(map[uuid.UUID]academy.Course),
		students: make(map[uuid.UUID]*academy.Student),
	}
}

// Seed helpers for local dev/tests.
func (s *Store) SeedCourse(c academy.Course) {
	s.mu.Lock()
	s.courses[c.ID] = c
	s.mu.Unlock()
}

func (s *Store) SeedStudent(st academy.Student) {
	s.mu.Lock()
	cp := cloneStudent(st)
	s.students[st.ID] = &cp
	s.mu.Unlock()
}

func (s *Store) Reset() {
	s.mu.Lock()
	s.courses = map[uuid.UUID]academy.Course{}
	s.students = map[uuid.UUID]*academy.Student{}
	s.mu.Unlock()
}

// --- Course reads ---

func (s *Store) ListCourses(_ context.Context) ([]academy.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]academy.Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) GetCourse(_ context.Context, id uuid.UUID) (academy.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return academy.Course{}, errs.ErrNotFound
	}
	return c, nil
}

// --- Course writes ---

func (s *Store) CreateCourse(_ context.Context, c academy.Course) (academy.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCourse(_ context.Context, c academy.Course) (academy.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[c.ID]; !ok {
		return academy.Course{}, errs.ErrNotFound
	}
	s.courses[c.ID] = c
	return c, nil
}

// DeleteCourse removes a catalog entry. Students keep their dangling
// reference; the dues view degrades for them by design.
func (s *Store) DeleteCourse(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.courses, id)
	return nil
}

// --- Student reads ---

func (s *Store) ListStudents(_ context.Context) ([]academy.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]academy.Student, 0, len(s.students))
	for _, st := range s.students {
		out = append(out, cloneStudent(*st))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EnrollmentDate.Equal(out[j].EnrollmentDate) {
			return out[i].EnrollmentDate.Before(out[j].EnrollmentDate)
		}
		return out[i].EnrollmentNo < out[j].EnrollmentNo
	})
	return out, nil
}

func (s *Store) GetStudent(_ context.Context, id uuid.UUID) (academy.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[id]
	if !ok {
		return academy.Student{}, errs.ErrNotFound
	}
	return cloneStudent(*st), nil
}

// --- Student writes ---

func (s *Store) CreateStudent(_ context.Context, st academy.Student) (academy.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneStudent(st)
	s.students[st.ID] = &cp
	return st, nil
}

// UpdateStudent applies fn to the current snapshot under the write lock.
// fn returning an error leaves the stored record untouched.
func (s *Store) UpdateStudent(_ context.Context, id uuid.UUID, fn func(*academy.Student) error) (academy.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.students[id]
	if !ok {
		return academy.Student{}, errs.ErrNotFound
	}
	next := cloneStudent(*cur)
	if err := fn(&next); err != nil {
		return academy.Student{}, err
	}
	s.students[id] = &next
	return cloneStudent(next), nil
}

// ClearPayments is the bulk administrative reset.
func (s *Store) ClearPayments(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.students {
		st.PaymentHistory = nil
		for i := range st.CustomFees {
			st.CustomFees[i].Status = academy.CustomFeeDue
			st.CustomFees[i].DatePaid = nil
		}
		st.Status = academy.StatusEnrollmentPending
	}
	return len(s.students), nil
}

// cloneStudent deep-copies the aggregate so callers never alias the
// stored slices.
func cloneStudent(st academy.Student) academy.Student {
	cp := st
	if st.PaymentHistory != nil {
		cp.PaymentHistory = make([]academy.PaymentRecord, len(st.PaymentHistory))
		copy(cp.PaymentHistory, st.PaymentHistory)
	}
	if st.CustomFees != nil {
		cp.CustomFees = make([]academy.CustomFee, len(st.CustomFees))
		copy(cp.CustomFees, st.CustomFees)
		for i := range cp.CustomFees {
			if st.CustomFees[i].DatePaid != nil {
				t := *st.CustomFees[i].DatePaid
				cp.CustomFees[i].DatePaid = &t
			}
		}
	}
	cp.Metadata = st.Metadata.Clone()
	return cp
}
