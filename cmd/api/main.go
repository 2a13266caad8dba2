package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medinow/scheduling-assistant/internal/api/router"
	"github.com/medinow/scheduling-assistant/internal/app/bootstrap"
	appconfig "github.com/medinow/scheduling-assistant/internal/config"
	"github.com/medinow/scheduling-assistant/internal/dialog"
	"github.com/medinow/scheduling-assistant/internal/messaging"
	"github.com/medinow/scheduling-assistant/internal/notify"
	"github.com/medinow/scheduling-assistant/internal/observability/metrics"
	"github.com/medinow/scheduling-assistant/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting scheduling assistant",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	loc, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		logger.Error("invalid clinic timezone", "timezone", cfg.ClinicTimezone, "error", err)
		os.Exit(1)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Error("redis is required for session state")
		os.Exit(1)
	}
	sessionStore := bootstrap.BuildSessionStore(redisClient, cfg)

	db := bootstrap.BuildDB(cfg, logger)
	transcripts := bootstrap.BuildTranscriptStore(db)
	if transcripts == nil {
		logger.Warn("transcript archive disabled, no database configured")
	}

	provider, err := bootstrap.BuildCalendarProvider(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to google calendar", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	instrumented := metrics.InstrumentProvider(provider, m)

	extractor := bootstrap.BuildExtractor(ctx, cfg, loc, logger)
	msg := dialog.NewMessages(cfg.ClinicName, cfg.ClinicLocation, cfg.MaxSlotsPresented)

	engine := dialog.NewEngine(sessionStore, instrumented, extractor, msg, transcripts, m, logger, dialog.EngineConfig{
		IdleTimeout:    cfg.SessionIdleTimeout,
		ResponseWindow: cfg.ProactiveResponseWindow,
		Timezone:       loc,
		Flow: dialog.FlowConfig{
			CalendarID:          cfg.GoogleCalendarID,
			SlotDurationMinutes: cfg.SlotDurationMinutes,
			MaxSlotsPresented:   cfg.MaxSlotsPresented,
			MinConfidence:       cfg.ExtractorMinConfidence,
			ProviderTimeout:     cfg.ProviderTimeout,
			ClinicName:          cfg.ClinicName,
			ClinicLocation:      cfg.ClinicLocation,
		},
	})

	email := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger)
	if ops := notify.NewService(email, cfg.ClinicOpsEmail, cfg.ClinicName, logger); ops != nil {
		engine.AddListener(ops)
	}

	sender := messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom, logger)

	proactiveCtx, stopProactive := context.WithCancel(ctx)
	defer stopProactive()
	if cfg.ProactiveEnabled {
		job := notify.NewProactive(engine, instrumented, sender, transcripts, logger, notify.ProactiveConfig{
			Interval:            cfg.ProactiveInterval,
			CalendarID:          cfg.GoogleCalendarID,
			SlotDurationMinutes: cfg.SlotDurationMinutes,
			Timezone:            loc,
		})
		go job.Run(proactiveCtx)
		logger.Info("proactive availability job started", "interval", cfg.ProactiveInterval)
	}

	r := router.New(&router.Config{
		MessagingHandler: messaging.NewHandler(engine, logger),
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
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
	stopProactive()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
