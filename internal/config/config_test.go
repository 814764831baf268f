package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.GoogleCalendarID != "primary" {
		t.Errorf("expected default calendar id primary, got %s", cfg.GoogleCalendarID)
	}
	if cfg.DefaultCountryCode != "92" {
		t.Errorf("expected default country code 92, got %s", cfg.DefaultCountryCode)
	}
	if cfg.SlotDuration != 30*time.Minute {
		t.Errorf("expected 30m slot duration, got %s", cfg.SlotDuration)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SLOT_WINDOW_DAYS", "7")
	t.Setenv("TWILIO_VALIDATE_SIGNATURES", "true")
	t.Setenv("EMAIL_PROVIDER", " SendGrid ")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.SlotWindowDays != 7 {
		t.Errorf("expected 7 day window, got %d", cfg.SlotWindowDays)
	}
	if !cfg.TwilioValidateSigs {
		t.Error("expected signature validation enabled")
	}
	if cfg.EmailProvider != "sendgrid" {
		t.Errorf("expected normalized provider sendgrid, got %q", cfg.EmailProvider)
	}
}
