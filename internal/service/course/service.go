// Package course implements catalog intake rules: pricing models are
// validated once at the boundary, so the billing core never re-checks
// shapes internally. Identity fields (code, currency, payment type) are
// immutable after creation.
package course

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/acadly/tuition/internal/academy"
	"github.com/acadly/tuition/internal/errs"
)

// Repo defines read operations needed by the service.
type Repo interface {
	ListCourses(ctx context.Context) ([]academy.Course, error)
	GetCourse(ctx context.Context, id uuid.UUID) (academy.Course, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateCourse(ctx context.Context, c academy.Course) (academy.Course, error)
	UpdateCourse(ctx context.Context, c academy.Course) (academy.Course, error)
}

// Service exposes validation and maintenance of the course catalog.
type Service interface {
	ValidateCreate(c academy.Course) error
	Create(ctx context.Context, c academy.Course) (academy.Course, error)
	List(ctx context.Context) ([]academy.Course, error)
	Get(ctx context.Context, id uuid.UUID) (academy.Course, error)
	Update(ctx context.Context, c academy.Course) (academy.Course, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

var reCode = regexp.MustCompile(`^[a-z0-9_]{2,40}$`)

func (s *service) ValidateCreate(c academy.Course) error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	if c.Currency == "" {
		return errors.New("currency is required")
	}
	if !reCode.MatchString(c.Code) {
		return errors.New("invalid course code")
	}
	if c.EnrollmentFeeMinor < 0 {
		return errs.ErrInvalidAmount
	}
	switch c.PaymentType {
	case academy.PaymentTypeMonthly:
		if c.MonthlyFeeMinor <= 0 {
			return errors.New("monthly fee must be > 0")
		}
	case academy.PaymentTypeInstallment:
		// A plan is not required at the data layer, but any declared plan
		// must be usable for due tracking.
		seen := make(map[string]struct{}, len(c.PaymentPlans))
		for _, p := range c.PaymentPlans {
			if p.Name == "" {
				return errors.New("plan name is required")
			}
			if _, dup := seen[p.Name]; dup {
				return errors.New("duplicate plan name: " + p.Name)
			}
			seen[p.Name] = struct{}{}
			if len(p.InstallmentsMinor) == 0 {
				return errors.New("plan " + p.Name + " has no installments")
			}
			for _, amt := range p.InstallmentsMinor {
				if amt <= 0 {
					return errs.ErrInvalidAmount
				}
			}
		}
	default:
		return errors.New("invalid payment type")
	}
	examNames := make(map[string]struct{}, len(c.ExamFees))
	for _, ef := range c.ExamFees {
		if ef.Name == "" {
			return errors.New("exam fee name is required")
		}
		if _, dup := examNames[ef.Name]; dup {
			return errors.New("duplicate exam fee: " + ef.Name)
		}
		examNames[ef.Name] = struct{}{}
		if ef.AmountMinor < 0 {
			return errs.ErrInvalidAmount
		}
	}
	return nil
}

func (s *service) Create(ctx context.Context, c academy.Course) (academy.Course, error) {
	c.Currency = strings.ToUpper(c.Currency)
	c.Code = strings.ToLower(c.Code)
	if err := s.ValidateCreate(c); err != nil {
		return academy.Course{}, err
	}
	existing, err := s.repo.ListCourses(ctx)
	if err != nil {
		return academy.Course{}, err
	}
	for _, other := range existing {
		if other.Code == c.Code {
			return academy.Course{}, errs.ErrConflict
		}
	}
	c.ID = uuid.New()
	c.Active = true
	return s.writer.CreateCourse(ctx, c)
}

func (s *service) List(ctx context.Context) ([]academy.Course, error) {
	return s.repo.ListCourses(ctx)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (academy.Course, error) {
	if id == uuid.Nil {
		return academy.Course{}, errs.ErrInvalid
	}
	return s.repo.GetCourse(ctx, id)
}

// Update persists changes to mutable fields. Code, currency and payment
// type are identity: changing them would silently rewrite the meaning of
// every existing payment reference.
func (s *service) Update(ctx context.Context, c academy.Course) (academy.Course, error) {
	if c.ID == uuid.Nil {
		return academy.Course{}, errs.ErrInvalid
	}
	current, err := s.repo.GetCourse(ctx, c.ID)
	if err != nil {
		return academy.Course{}, err
	}
	if c.Code != current.Code || !strings.EqualFold(c.Currency, current.Currency) || c.PaymentType != current.PaymentType {
		return academy.Course{}, errs.ErrInvalid
	}
	if err := s.ValidateCreate(c); err != nil {
		return academy.Course{}, err
	}
	return s.writer.UpdateCourse(ctx, c)
}
