package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"phpayroll/internal/domain/audit"
	"phpayroll/internal/domain/holiday"
	"phpayroll/internal/domain/loan"
	"phpayroll/internal/domain/payroll"
	"phpayroll/internal/domain/reports"
	"phpayroll/internal/export"
	"phpayroll/internal/platform/config"
	"phpayroll/internal/platform/crypto"
	"phpayroll/internal/platform/db"
	"phpayroll/internal/platform/jobs"
	"phpayroll/internal/platform/lock"
	"phpayroll/internal/platform/logging"
	"phpayroll/internal/platform/metrics"
	"phpayroll/internal/transport/http/api"
	audithandler "phpayroll/internal/transport/http/handlers/audit"
	holidayshandler "phpayroll/internal/transport/http/handlers/holidays"
	loanshandler "phpayroll/internal/transport/http/handlers/loans"
	payrollhandler "phpayroll/internal/transport/http/handlers/payroll"
	reportshandler "phpayroll/internal/transport/http/handlers/reports"
	"phpayroll/internal/transport/http/middleware"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers groups everything mounted under /api/v1.
type Handlers struct {
	Payroll  *payrollhandler.Handler
	Reports  *reportshandler.Handler
	Loans    *loanshandler.Handler
	Holidays *holidayshandler.Handler
	Audit    *audithandler.Handler
}

// Run serves the API until SIGINT or SIGTERM, then drains in-flight requests.
func Run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.Environment)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	sealer, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		return fmt.Errorf("payslip encryption: %w", err)
	}
	if !sealer.Configured() {
		logger.Warn("DATA_ENCRYPTION_KEY not set; payslips are archived unencrypted")
	}
	payslips := export.PayslipFiles{Dir: cfg.PayslipDir, Cipher: sealer}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}

	locker, closeLocker := newLocker(cfg, logger)
	defer closeLocker()

	jobsSvc := jobs.New(pool, logger.Named("jobs"), cfg.JobQueueSize)
	jobsSvc.Start(ctx)

	collector := metrics.New()
	auditSvc := audit.New(pool)
	holidaySvc := holiday.NewService(holiday.NewStore(pool))
	loanStore := loan.NewStore(pool)
	loanSvc := loan.NewService(loanStore)

	payrollSvc := payroll.NewService(payroll.Deps{
		Store:    payroll.NewStore(pool),
		Holidays: holidaySvc,
		Loans:    loanStore,
		Locker:   locker,
		Audit:    auditSvc,
		Jobs:     jobsSvc,
		Payslips: payslips,
		Metrics:  collector,
		Logger:   logger.Named("payroll"),
		Runs:     payroll.NewRunRegistry(cfg.RunTTL),
	})
	reportsSvc := reports.NewService(reports.NewStore(pool), payrollSvc)

	payrollHandler := payrollhandler.NewHandler(payrollSvc, middleware.NewIdempotencyStore(pool, cfg.IdempotencyTTL), logger)
	payrollHandler.Archive = payslips
	handlers := Handlers{
		Payroll:  payrollHandler,
		Reports:  reportshandler.NewHandler(reportsSvc, payrollSvc, logger),
		Loans:    loanshandler.NewHandler(loanSvc, auditSvc),
		Holidays: holidayshandler.NewHandler(holidaySvc),
		Audit:    audithandler.NewHandler(auditSvc),
	}
	router := NewRouter(cfg, logger, collector, pool, handlers)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("payroll server listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLocker(cfg config.Config, logger *zap.Logger) (lock.Locker, func()) {
	if cfg.RedisAddr == "" {
		return lock.NewKeyedMutex(), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	logger.Info("using redis employee locks", zap.String("addr", cfg.RedisAddr))
	return lock.NewRedisLocker(client, "payroll:lock:", cfg.LockTTL), func() { _ = client.Close() }
}

func NewRouter(cfg config.Config, logger *zap.Logger, collector *metrics.Collector, ready Pinger, h Handlers) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recoverer)
	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics(collector))
	}
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes, cfg.MaxUploadBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.RequireAuth)

		h.Payroll.RegisterRoutes(r)
		h.Reports.RegisterRoutes(r)
		h.Loans.RegisterRoutes(r)
		h.Holidays.RegisterRoutes(r)
		h.Audit.RegisterRoutes(r)
	})

	return router
}
