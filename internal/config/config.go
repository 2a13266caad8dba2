package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Session persistence
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	SessionIdleTimeout time.Duration
	SessionTTL         time.Duration

	// Transcript / appointment archive
	DatabaseURL string

	// WhatsApp transport (Twilio)
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioWhatsAppFrom string

	// Calendar provider (Google Calendar)
	GoogleCalendarID      string
	GoogleCredentialsFile string
	SlotDurationMinutes   int
	MaxSlotsPresented     int
	WorkDayStart          string
	WorkDayEnd            string

	// Entity extraction
	GeminiAPIKey           string
	GeminiModelID          string
	ExtractorMinConfidence float64
	ExtractorTimeout       time.Duration

	// Collaborator I/O
	ProviderTimeout time.Duration

	// Proactive same-day notifier
	ProactiveEnabled        bool
	ProactiveInterval       time.Duration
	ProactiveResponseWindow time.Duration

	// Clinic identity and operator notifications
	ClinicName        string
	ClinicLocation    string
	ClinicTimezone    string
	ClinicOpsEmail    string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RedisAddr:          getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		SessionIdleTimeout: getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		SessionTTL:         getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		TwilioAccountSID:   getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:    getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWhatsAppFrom: getEnv("TWILIO_WHATSAPP_FROM", ""),

		GoogleCalendarID:      getEnv("GOOGLE_CALENDAR_ID", "primary"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		SlotDurationMinutes:   getEnvAsInt("SLOT_DURATION_MINUTES", 30),
		MaxSlotsPresented:     getEnvAsInt("MAX_SLOTS_PRESENTED", 6),
		WorkDayStart:          getEnv("WORK_DAY_START", "09:00"),
		WorkDayEnd:            getEnv("WORK_DAY_END", "18:00"),

		GeminiAPIKey:           getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:          getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		ExtractorMinConfidence: getEnvAsFloat("EXTRACTOR_MIN_CONFIDENCE", 0.6),
		ExtractorTimeout:       getEnvAsDuration("EXTRACTOR_TIMEOUT", 8*time.Second),

		ProviderTimeout: getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),

		ProactiveEnabled:        getEnvAsBool("PROACTIVE_ENABLED", false),
		ProactiveInterval:       getEnvAsDuration("PROACTIVE_INTERVAL", time.Hour),
		ProactiveResponseWindow: getEnvAsDuration("PROACTIVE_RESPONSE_WINDOW", 2*time.Hour),

		ClinicName:        getEnv("CLINIC_NAME", "Clínica MediNow"),
		ClinicLocation:    getEnv("CLINIC_LOCATION", "Clínica MediNow"),
		ClinicTimezone:    getEnv("CLINIC_TZ", "America/Sao_Paulo"),
		ClinicOpsEmail:    getEnv("CLINIC_OPS_EMAIL", ""),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "MediNow Agenda"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
