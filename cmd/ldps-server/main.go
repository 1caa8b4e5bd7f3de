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

	"github.com/S-tej/LDPS/internal/config"
	"github.com/S-tej/LDPS/internal/domain/alerts"
	"github.com/S-tej/LDPS/internal/domain/devices"
	"github.com/S-tej/LDPS/internal/domain/identity"
	"github.com/S-tej/LDPS/internal/domain/vitals"
	"github.com/S-tej/LDPS/internal/platform/auth"
	"github.com/S-tej/LDPS/internal/platform/db"
	"github.com/S-tej/LDPS/internal/platform/middleware"
	"github.com/S-tej/LDPS/internal/platform/notification"
	"github.com/S-tej/LDPS/internal/platform/websocket"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "ldps-server",
		Short: "Live Data Patient Surveillance server",
		Long: "LDPS ingests patient vital signs from ESP32 monitors, evaluates them\n" +
			"against per-patient thresholds, and fans alerts out to linked caretakers\n" +
			"over WebSocket, email, and SMS.",
	}

	rootCmd.AddCommand(serveCmd(), migrateCmd(), simulateCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	var out = os.Stdout
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logger := newLogger(cfg)
	logger.Info().Str("version", version).Str("env", cfg.Env).Msg("starting ldps-server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1MB"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	var authMW echo.MiddlewareFunc
	if cfg.IsDev() {
		authMW = auth.DevAuthMiddleware()
	} else {
		authMW = auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.JWTIssuer,
			SigningKey: []byte(cfg.JWTSigningKey),
		})
	}

	rateCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateCfg = middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		}
	}

	apiV1 := e.Group("/api/v1", authMW, middleware.RateLimit(rateCfg))

	// Platform services shared across the domain packages.
	hub := websocket.NewHub()
	notifier := newNotifier(cfg, logger)

	// Wiring order follows the dependency direction: identity feeds alerts,
	// alerts and devices feed vitals.
	identityRepo := identity.NewRepoPG(pool)
	identitySvc := identity.NewService(identityRepo, pool, notifier, logger)
	identity.NewHandler(identitySvc).RegisterRoutes(apiV1)

	deviceRepo := devices.NewRepoPG(pool)
	deviceSvc := devices.NewService(deviceRepo, logger)
	devices.NewHandler(deviceSvc).RegisterRoutes(apiV1)

	alertRepo := alerts.NewAlertRepoPG(pool)
	notificationRepo := alerts.NewNotificationRepoPG(pool)
	alertSvc := alerts.NewService(alertRepo, notificationRepo, identitySvc, pool, hub, notifier, logger)
	alerts.NewHandler(alertSvc).RegisterRoutes(apiV1)

	vitalsRepo := vitals.NewRepoPG(pool)
	vitalsSvc := vitals.NewService(vitalsRepo, pool, alertSvc, deviceSvc, hub, logger)
	vitals.NewHandler(vitalsSvc).RegisterRoutes(apiV1)

	websocket.NewWebSocketHandler(hub).RegisterRoutes(apiV1)

	// Operational notification endpoints are admin-only.
	adminV1 := apiV1.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	notification.NewNotificationHandler(notifier).RegisterRoutes(adminV1)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("listening")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newNotifier builds the notification manager from config. Email goes over
// SMTP when enabled and configured; otherwise both channels log only.
func newNotifier(cfg *config.Config, logger zerolog.Logger) *notification.NotificationManager {
	var email notification.EmailSender = &notification.LogEmailSender{Logger: logger}
	if cfg.NotifyEmail && cfg.SMTPHost != "" {
		email = &notification.SMTPEmailSender{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			From: cfg.SMTPFrom,
		}
	}

	var sms notification.SMSSender = &notification.LogSMSSender{Logger: logger}

	return notification.NewNotificationManager(email, sms, notification.NewTemplateEngine())
}

// ---------------------------------------------------------------------------
// migrate
// ---------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "./migrations", "migrations directory")

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(dir, func(ctx context.Context, m *db.Migrator) error {
				applied, err := m.Up(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("applied %d migration(s)\n", applied)
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(dir, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("%-8s  %-30s  %-8s  %s\n", "VERSION", "NAME", "APPLIED", "APPLIED AT")
				for _, s := range statuses {
					at := "-"
					if s.AppliedAt != nil {
						at = s.AppliedAt.Format(time.RFC3339)
					}
					fmt.Printf("%-8d  %-30s  %-8t  %s\n", s.Version, s.Name, s.Applied, at)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(upCmd, statusCmd)
	return cmd
}

func withMigrator(dir string, fn func(ctx context.Context, m *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, dir))
}

// ---------------------------------------------------------------------------
// simulate
// ---------------------------------------------------------------------------

func simulateCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "simulate [patient-id...]",
		Short: "Emit synthetic vitals for the given patients until interrupted",
		Long: "Generates realistic random snapshots (including an ECG waveform) for\n" +
			"each patient at a fixed interval and runs them through the full ingest\n" +
			"pipeline, so thresholds, alerts, and caretaker fan-out all fire as they\n" +
			"would for a real monitor.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := newLogger(cfg)

			if interval == 0 {
				interval = time.Duration(cfg.SimulateInterval) * time.Second
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			notifier := newNotifier(cfg, logger)

			identitySvc := identity.NewService(identity.NewRepoPG(pool), pool, notifier, logger)
			alertSvc := alerts.NewService(
				alerts.NewAlertRepoPG(pool),
				alerts.NewNotificationRepoPG(pool),
				identitySvc, pool, nil, notifier, logger,
			)
			vitalsSvc := vitals.NewService(vitals.NewRepoPG(pool), pool, alertSvc, nil, nil, logger)

			logger.Info().
				Strs("patients", args).
				Dur("interval", interval).
				Msg("starting vitals simulator")

			sim := vitals.NewSimulator(vitalsSvc, args, interval, logger)
			if err := sim.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			logger.Info().Msg("simulator stopped")
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "emit interval (default SIMULATE_INTERVAL_SECONDS)")
	return cmd
}
