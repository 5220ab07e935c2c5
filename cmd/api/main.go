package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/healthdesk/clinic-booking-platform/internal/api/router"
	appconfig "github.com/healthdesk/clinic-booking-platform/internal/config"
	"github.com/healthdesk/clinic-booking-platform/internal/directory"
	"github.com/healthdesk/clinic-booking-platform/internal/identity"
	"github.com/healthdesk/clinic-booking-platform/internal/notify"
	"github.com/healthdesk/clinic-booking-platform/internal/observability/metrics"
	"github.com/healthdesk/clinic-booking-platform/internal/recovery"
	"github.com/healthdesk/clinic-booking-platform/internal/scheduling"
	"github.com/healthdesk/clinic-booking-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-booking-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx := context.Background()

	// Storage. Without DATABASE_URL everything runs in memory, which keeps
	// local development and demos dependency free.
	var (
		users   identity.Repository
		clinics directory.ClinicRepository
		doctors directory.DoctorRepository
		appts   scheduling.Repository
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}

		sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open sql db", "error", err)
			os.Exit(1)
		}
		defer func() { _ = sqlDB.Close() }()

		users = identity.NewPostgresRepository(pool)
		clinics = directory.NewPostgresClinicRepository(sqlDB)
		doctors = directory.NewPostgresDoctorRepository(sqlDB)
		appts = scheduling.NewPostgresRepository(pool)
		logger.Info("storage: postgres")
	} else {
		memClinics := directory.NewInMemoryClinicRepository()
		users = identity.NewInMemoryRepository()
		clinics = memClinics
		doctors = directory.NewInMemoryDoctorRepository(memClinics)
		appts = scheduling.NewInMemoryRepository()
		logger.Warn("storage: in-memory, data will not survive restarts")
	}

	// Optional Redis cache for booked-slot reads.
	var slotCache *scheduling.SlotCache
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, slot cache disabled", "error", err)
		} else {
			slotCache = scheduling.NewSlotCache(client, cfg.SlotCacheTTL)
			logger.Info("slot cache: redis", "addr", cfg.RedisAddr)
		}
	}

	emailSender := buildEmailSender(ctx, cfg, logger)

	bookingMetrics := metrics.NewBookingMetrics(nil)
	recoveryMetrics := metrics.NewRecoveryMetrics(nil)

	notifier := notify.NewBookingService(emailSender, users, doctors, logger)
	schedService := scheduling.NewService(appts, doctors, slotCache, notifier, bookingMetrics, logger)
	recoveryService := recovery.NewService(users, emailSender, recoveryMetrics, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		IdentityHandler:    identity.NewHandler(users, doctors, cfg.JWTSecret, logger),
		DirectoryHandler:   directory.NewHandler(clinics, doctors, logger),
		SchedulingHandler:  scheduling.NewHandler(schedService, logger),
		RecoveryHandler:    recovery.NewHandler(recoveryService, logger),
		JWTSecret:          cfg.JWTSecret,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildEmailSender picks the configured provider, falling back to the
// logging stub so reset and confirmation flows keep working in development.
func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			logger.Info("email: sendgrid", "from", cfg.SendGridFromEmail)
			return sender
		}
		logger.Warn("sendgrid selected but not configured, falling back to stub sender")
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Warn("failed to load AWS config, falling back to stub sender", "error", err)
			break
		}
		if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); sender != nil {
			logger.Info("email: ses", "from", cfg.SESFromEmail)
			return sender
		}
	}
	return notify.NewStubEmailSender(logger)
}
