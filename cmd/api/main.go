package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/lexvoice/legal-intake-platform/cmd/mainconfig"
	"github.com/lexvoice/legal-intake-platform/internal/api"
	"github.com/lexvoice/legal-intake-platform/internal/api/router"
	appconfig "github.com/lexvoice/legal-intake-platform/internal/config"
	"github.com/lexvoice/legal-intake-platform/internal/intake"
	"github.com/lexvoice/legal-intake-platform/internal/notify"
	"github.com/lexvoice/legal-intake-platform/internal/observability/metrics"
	"github.com/lexvoice/legal-intake-platform/internal/scheduling"
	"github.com/lexvoice/legal-intake-platform/internal/telephony"
	"github.com/lexvoice/legal-intake-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting legal-intake-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Persistence: Postgres when configured, in-memory otherwise. The
	// in-memory store keeps local development and demos working without a
	// database, at the cost of losing state on restart.
	var store intake.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = intake.NewPostgresStore(pool)
		logger.Info("using postgres store")
	} else {
		store = intake.NewMemoryStore()
		logger.Warn("DATABASE_URL not set, using in-memory store")
	}

	// Redis keeps the slots read to a caller stable across webhook turns.
	// Without it each turn recomputes availability.
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
			slotCache = scheduling.NewSlotCache(client)
			logger.Info("slot cache enabled", "addr", cfg.RedisAddr)
		}
	}

	var calendar scheduling.Calendar
	if cfg.GoogleCalendarCredentials != "" {
		cal, err := scheduling.NewGoogleCalendar(ctx, cfg.GoogleCalendarCredentials, cfg.GoogleCalendarID)
		if err != nil {
			logger.Warn("google calendar unavailable, using mock slots", "error", err)
		} else {
			calendar = cal
			logger.Info("google calendar connected", "calendar_id", cfg.GoogleCalendarID)
		}
	}

	sender := buildEmailSender(ctx, cfg, logger)
	emailService := notify.NewService(sender, logger)

	intakeMetrics := metrics.NewIntakeMetrics(nil)

	slotService := scheduling.NewService(calendar, cfg.SlotDuration, logger)
	machine := intake.NewMachine(store, cfg.DefaultCountryCode, intakeMetrics, logger)
	booker := scheduling.NewBooker(store, slotService, emailService, cfg.SlotDuration, logger)

	voiceHandler := telephony.NewHandler(store, machine, slotService, slotCache, booker, intakeMetrics, telephony.Config{
		PublicBaseURL:      cfg.PublicBaseURL,
		AuthToken:          cfg.TwilioAuthToken,
		ValidateSignatures: cfg.TwilioValidateSigs,
		SlotWindowDays:     cfg.SlotWindowDays,
	}, logger)

	dashboard := api.NewDashboardHandler(store, slotService, emailService, logger)

	r := router.New(&router.Config{
		Logger:          logger,
		VoiceHandler:    voiceHandler,
		Dashboard:       dashboard,
		AdminAuthSecret: cfg.AdminJWTSecret,
		MetricsHandler:  promhttp.Handler(),
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

// buildEmailSender picks the configured provider, falling back from SendGrid
// to SES to a logging stub so a missing key never blocks startup.
func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	provider := cfg.EmailProvider

	if provider == "sendgrid" || provider == "auto" {
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			logger.Info("email provider: sendgrid", "from", cfg.SendGridFromEmail)
			return s
		}
		if provider == "sendgrid" {
			logger.Warn("SENDGRID_API_KEY not set, email disabled")
			return notify.NewStubEmailSender(logger)
		}
	}

	if provider == "ses" || (provider == "auto" && cfg.AWSAccessKeyID != "") {
		if awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg); err != nil {
			logger.Warn("AWS config unavailable, SES disabled", "error", err)
		} else if cfg.SendGridFromEmail != "" {
			logger.Info("email provider: ses", "region", cfg.AWSRegion)
			return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
				FromEmail: cfg.SendGridFromEmail,
				FromName:  cfg.SendGridFromName,
			}, logger)
		}
	}

	logger.Warn("no email provider configured, using stub sender")
	return notify.NewStubEmailSender(logger)
}
