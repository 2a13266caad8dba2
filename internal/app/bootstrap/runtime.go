// Package bootstrap wires configuration into runtime collaborators. Each
// builder degrades to nil when its backing service is not configured so the
// assistant can run with a reduced setup in development.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/medinow/scheduling-assistant/internal/calendar"
	appconfig "github.com/medinow/scheduling-assistant/internal/config"
	"github.com/medinow/scheduling-assistant/internal/dialog"
	"github.com/medinow/scheduling-assistant/internal/extract"
	"github.com/medinow/scheduling-assistant/pkg/logging"
)

// BuildRedisClient returns a configured Redis client. When verify is true, a
// ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildDB opens the Postgres archive connection, or nil when not configured.
func BuildDB(cfg *appconfig.Config, logger *logging.Logger) *sql.DB {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Warn("postgres not available", "error", err)
		return nil
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db
}

// BuildExtractor layers the deterministic patterns with the Gemini fallback
// when an API key is configured.
func BuildExtractor(ctx context.Context, cfg *appconfig.Config, loc *time.Location, logger *logging.Logger) extract.Extractor {
	if logger == nil {
		logger = logging.Default()
	}

	patterns := extract.NewPatternExtractor(loc)

	var fallback extract.Extractor
	if cfg != nil && cfg.GeminiAPIKey != "" {
		gemini, err := extract.NewGeminiExtractor(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID, loc)
		if err != nil {
			logger.Warn("gemini extractor not available", "error", err)
		} else {
			fallback = gemini
		}
	}

	timeout := 8 * time.Second
	if cfg != nil && cfg.ExtractorTimeout > 0 {
		timeout = cfg.ExtractorTimeout
	}
	return extract.NewLayered(patterns, fallback, timeout, logger)
}

// BuildCalendarProvider connects to Google Calendar.
func BuildCalendarProvider(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (calendar.Provider, error) {
	return calendar.NewGoogleProvider(ctx, calendar.GoogleConfig{
		CalendarID:      cfg.GoogleCalendarID,
		CredentialsFile: cfg.GoogleCredentialsFile,
		Timezone:        cfg.ClinicTimezone,
		WorkDayStart:    cfg.WorkDayStart,
		WorkDayEnd:      cfg.WorkDayEnd,
	}, logger)
}

// BuildSessionStore returns the Redis-backed session store.
func BuildSessionStore(redisClient *redis.Client, cfg *appconfig.Config) *dialog.RedisSessionStore {
	if redisClient == nil {
		return nil
	}
	return dialog.NewRedisSessionStore(redisClient, cfg.SessionTTL, nil)
}

// BuildTranscriptStore wires the optional Postgres archive.
func BuildTranscriptStore(db *sql.DB) *dialog.TranscriptStore {
	return dialog.NewTranscriptStore(db)
}
