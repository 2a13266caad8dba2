package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.SessionIdleTimeout != 30*time.Minute {
		t.Errorf("SessionIdleTimeout = %v, want 30m", cfg.SessionIdleTimeout)
	}
	if cfg.SlotDurationMinutes != 30 {
		t.Errorf("SlotDurationMinutes = %d, want 30", cfg.SlotDurationMinutes)
	}
	if cfg.MaxSlotsPresented != 6 {
		t.Errorf("MaxSlotsPresented = %d, want 6", cfg.MaxSlotsPresented)
	}
	if cfg.ClinicTimezone != "America/Sao_Paulo" {
		t.Errorf("ClinicTimezone = %q, want America/Sao_Paulo", cfg.ClinicTimezone)
	}
	if cfg.ExtractorMinConfidence != 0.6 {
		t.Errorf("ExtractorMinConfidence = %v, want 0.6", cfg.ExtractorMinConfidence)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "10m")
	t.Setenv("MAX_SLOTS_PRESENTED", "4")
	t.Setenv("PROACTIVE_ENABLED", "true")
	t.Setenv("EXTRACTOR_MIN_CONFIDENCE", "0.8")

	cfg := Load()

	if cfg.SessionIdleTimeout != 10*time.Minute {
		t.Errorf("SessionIdleTimeout = %v, want 10m", cfg.SessionIdleTimeout)
	}
	if cfg.MaxSlotsPresented != 4 {
		t.Errorf("MaxSlotsPresented = %d, want 4", cfg.MaxSlotsPresented)
	}
	if !cfg.ProactiveEnabled {
		t.Error("ProactiveEnabled should be true")
	}
	if cfg.ExtractorMinConfidence != 0.8 {
		t.Errorf("ExtractorMinConfidence = %v, want 0.8", cfg.ExtractorMinConfidence)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "not-a-duration")
	t.Setenv("SLOT_DURATION_MINUTES", "thirty")

	cfg := Load()

	if cfg.SessionIdleTimeout != 30*time.Minute {
		t.Errorf("SessionIdleTimeout = %v, want default 30m", cfg.SessionIdleTimeout)
	}
	if cfg.SlotDurationMinutes != 30 {
		t.Errorf("SlotDurationMinutes = %d, want default 30", cfg.SlotDurationMinutes)
	}
}
