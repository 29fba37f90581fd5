package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wardops/wardops/internal/config"
	"github.com/wardops/wardops/internal/domain/auditlog"
	"github.com/wardops/wardops/internal/domain/patient"
	"github.com/wardops/wardops/internal/domain/schedule"
	"github.com/wardops/wardops/internal/domain/staff"
	"github.com/wardops/wardops/internal/domain/validation"
	"github.com/wardops/wardops/internal/domain/weekly"
	"github.com/wardops/wardops/internal/platform/auth"
	"github.com/wardops/wardops/internal/platform/db"
	"github.com/wardops/wardops/internal/platform/middleware"
	"github.com/wardops/wardops/internal/platform/mongodb"
	"github.com/wardops/wardops/internal/platform/writeflow"
)

const version = "0.1.0"

// staffDirectory adapts the staff repository to the schedule package's
// StaffDirectory interface, avoiding an import between the two domain
// packages.
type staffDirectory struct {
	repo staff.Repo
}

func (d staffDirectory) StaffExists(ctx context.Context, id string) (bool, error) {
	return d.repo.Exists(ctx, id)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "wardops-server",
		Short: "Hospital ward operations API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations (postgres backend only)",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.StoreBackend != config.BackendPostgres {
				return fmt.Errorf("migrations apply to the postgres backend, STORE_BACKEND is %q", cfg.StoreBackend)
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.StoreBackend != config.BackendPostgres {
				return fmt.Errorf("migrations apply to the postgres backend, STORE_BACKEND is %q", cfg.StoreBackend)
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	// migrate down - keep as warning
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Restore from a backup or write a forward migration instead.")
			return nil
		},
	})

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Store backend. Both backends produce the same repository interfaces;
	// everything past this switch is backend-agnostic.
	ctx := context.Background()
	var (
		staffRepo    staff.Repo
		patientRepo  patient.Repo
		scheduleRepo schedule.Repo
		weeklyRepo   weekly.Repo
		auditRepo    auditlog.Repo
		errorRepo    validation.Repo
		inTx         func(ctx context.Context, fn func(ctx context.Context) error) error
		healthDB     echo.HandlerFunc
	)

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, perr := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if perr != nil {
			logger.Fatal().Err(perr).Msg("failed to connect to postgres")
		}
		defer pool.Close()
		logger.Info().Msg("connected to postgres")

		staffRepo = staff.NewRepoPG(pool)
		patientRepo = patient.NewRepoPG(pool)
		scheduleRepo = schedule.NewRepoPG(pool)
		weeklyRepo = weekly.NewRepoPG(pool)
		auditRepo = auditlog.NewRepoPG(pool)
		errorRepo = validation.NewRepoPG(pool)
		inTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.RunInTx(ctx, pool, fn)
		}
		healthDB = db.HealthHandler(pool)

	case config.BackendMongo:
		client, database, merr := mongodb.Connect(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if merr != nil {
			logger.Fatal().Err(merr).Msg("failed to connect to mongodb")
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()
		if err := mongodb.EnsureIndexes(ctx, database); err != nil {
			logger.Fatal().Err(err).Msg("failed to ensure mongodb indexes")
		}
		logger.Info().Msg("connected to mongodb")

		staffRepo = staff.NewRepoMongo(database)
		patientRepo = patient.NewRepoMongo(database)
		scheduleRepo = schedule.NewRepoMongo(database)
		weeklyRepo = weekly.NewRepoMongo(database)
		auditRepo = auditlog.NewRepoMongo(database)
		errorRepo = validation.NewRepoMongo(database)
		// No multi-document transactions: the mutation commits first and
		// the audit append follows, so the coordinator runs without InTx.
		healthDB = mongodb.HealthHandler(client)

	default:
		logger.Fatal().Str("backend", cfg.StoreBackend).Msg("unknown store backend")
	}

	// Recorders and the write coordinator
	auditSvc := auditlog.NewService(auditRepo)
	errorSvc := validation.NewService(errorRepo)
	flow := writeflow.New(writeflow.Config{
		Audits: auditSvc,
		Errors: errorSvc,
		Logger: logger,
		InTx:   inTx,
	})

	// Staff updates are audited at the store level so that exactly one
	// audit entry exists per logical update, whichever path performed it.
	staffRepo.SetUpdateObserver(staff.AuditObserver(auditSvc))

	staffSvc := staff.NewService(staffRepo, flow)
	patientSvc := patient.NewService(patientRepo, flow)
	scheduleSvc := schedule.NewService(scheduleRepo, staffDirectory{repo: staffRepo}, flow)
	weeklySvc := weekly.NewService(weeklyRepo, flow)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(auth.Actor(cfg.AuthSecret))
	e.Use(middleware.AccessLog(logger))

	// API group
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RequestTimeout(30 * time.Second))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Routes
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	staff.NewHandler(staffSvc).RegisterRoutes(apiV1)
	schedule.NewHandler(scheduleSvc).RegisterRoutes(apiV1)
	weekly.NewHandler(weeklySvc).RegisterRoutes(apiV1)
	auditlog.NewHandler(auditSvc).RegisterRoutes(apiV1)
	validation.NewHandler(errorSvc).RegisterRoutes(apiV1)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", healthDB)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("backend", cfg.StoreBackend).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
