package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"carenest-server/internal/config"
	"carenest-server/internal/events"
	"carenest-server/internal/jobs"
	"carenest-server/internal/logger"
	"carenest-server/internal/mailer"
	"carenest-server/internal/models"
	"carenest-server/internal/routes"
	"carenest-server/internal/seed"
	"carenest-server/internal/throttle"
)

const shutdownTimeout = 10 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:           "carenest",
		Short:         "CareNest appointment booking API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd(), seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs.
type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func setup() (*app, error) {
	// A missing .env is fine when the environment is provided by the host
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := models.InitDB(models.DatabaseConfig{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Debug:  !cfg.IsProduction() && cfg.LogLevel == "debug",
	})
	if err != nil {
		return nil, err
	}
	log.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	return &app{cfg: cfg, log: log, db: db}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	if err := models.Migrate(a.db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	limiter, err := throttle.New(a.cfg.Redis, a.log)
	if err != nil {
		return err
	}
	defer limiter.Close()
	publisher := events.New(a.cfg.Kafka, a.log)
	defer publisher.Close()

	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.NewRouter(routes.Deps{
		DB:        a.db,
		Config:    a.cfg,
		Log:       a.log,
		Mailer:    mailer.New(a.cfg.Mailer, a.log),
		Limiter:   limiter,
		Publisher: publisher,
	})

	var scheduler *jobs.Scheduler
	if a.cfg.Jobs.Enabled {
		scheduler, err = jobs.NewScheduler(a.cfg.Jobs, a.db, publisher, a.log)
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Server running", zap.String("port", a.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	a.log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			if err := models.Migrate(a.db); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			a.log.Info("Database migrated")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo doctors, an admin and a patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			if err := models.Migrate(a.db); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			if _, err := seed.Run(cmd.Context(), a.db, a.log, seed.Options{Reset: reset}); err != nil {
				return fmt.Errorf("seeding failed: %w", err)
			}

			fmt.Println("Test credentials:")
			fmt.Printf("  Admin:   %s / %s\n", seed.AdminEmail, seed.AdminPassword)
			fmt.Printf("  Patient: %s / %s\n", seed.PatientEmail, seed.PatientPassword)
			fmt.Printf("  Doctors: <name>@carenest.com / %s\n", seed.DoctorPassword)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "delete all existing data first")
	return cmd
}
