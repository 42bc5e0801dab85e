package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/acadly/tuition/internal/academy"
	"github.com/acadly/tuition/internal/config"
	"github.com/acadly/tuition/internal/httpapi"
	"github.com/acadly/tuition/internal/storage/memory"
	pgstore "github.com/acadly/tuition/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := buildLogger(cfg)
	slog.SetDefault(logger)

	deps := httpapi.Deps{NumberPrefix: cfg.EnrollmentPrefix}
	var closeFn func()

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFn = pg.Close
		deps.CourseRepo, deps.CourseWriter = pg, pg
		deps.StudentRepo, deps.StudentWriter = pg, pg
		deps.ReadyCheck = pg
		if cfg.DevSeed {
			if err := seedDev(ctx, pg); err != nil {
				logger.Error("dev seed failed", "err", err)
			}
		}
		logger.Info("storage backend: postgres")
	} else {
		store := memory.New()
		deps.CourseRepo, deps.CourseWriter = store, store
		deps.StudentRepo, deps.StudentWriter = store, store
		if cfg.DevSeed {
			seedDevMemory(store, logger)
		}
		logger.Info("storage backend: memory")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.New(deps, logger).Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("tuition service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

// devCourses is the small catalog loaded when DEV_SEED is on.
func devCourses() []academy.Course {
	return []academy.Course{
		{
			ID:                 uuid.New(),
			Name:               "Web Development",
			Code:               "webdev",
			Currency:           "USD",
			EnrollmentFeeMinor: 55000,
			PaymentType:        academy.PaymentTypeMonthly,
			MonthlyFeeMinor:    120000,
			ExamFees:           []academy.ExamFee{{Name: "Final Project Review", AmountMinor: 5000}},
			Active:             true,
		},
		{
			ID:                 uuid.New(),
			Name:               "Data Engineering",
			Code:               "dataeng",
			Currency:           "USD",
			EnrollmentFeeMinor: 55000,
			PaymentType:        academy.PaymentTypeInstallment,
			PaymentPlans: []academy.PaymentPlan{
				{Name: "standard", TotalMinor: 300000, InstallmentsMinor: []int64{100000, 100000, 100000}},
				{Name: "upfront", TotalMinor: 280000, InstallmentsMinor: []int64{280000}},
			},
			Active: true,
		},
	}
}

func seedDev(ctx context.Context, pg *pgstore.Store) error {
	for _, c := range devCourses() {
		if _, err := pg.CreateCourse(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func seedDevMemory(store *memory.Store, l *slog.Logger) {
	for _, c := range devCourses() {
		store.SeedCourse(c)
		l.Info("DEV seed course", "code", c.Code, "course_id", c.ID.String())
	}
}

// parseLogLevel maps config values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLogger(cfg config.Config) *slog.Logger {
	level := parseLogLevel(cfg.LogLevel)
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
