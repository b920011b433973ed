package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID": "chocolog-dev",
		"API_AUTH_JWT_SECRET":      "test-secret",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.PubSub.ProjectID != "chocolog-dev" {
		t.Errorf("expected pubsub project to default to firestore project, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.PubSub.EventsTopic != defaultEventsTopic {
		t.Errorf("expected default events topic, got %s", cfg.PubSub.EventsTopic)
	}
	if cfg.Auth.TokenTTL != defaultAuthTokenTTL {
		t.Errorf("unexpected default token ttl: %s", cfg.Auth.TokenTTL)
	}
	if cfg.Audit.RetentionDays != defaultAuditRetentionDays {
		t.Errorf("unexpected default audit retention: %d", cfg.Audit.RetentionDays)
	}
	if cfg.Audit.PurgeHourUTC != defaultAuditPurgeHour {
		t.Errorf("unexpected default purge hour: %d", cfg.Audit.PurgeHourUTC)
	}
	if cfg.RateLimits.DefaultPerMinute != 120 {
		t.Errorf("unexpected default rate limit: %d", cfg.RateLimits.DefaultPerMinute)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":               "9090",
		"API_SERVER_READ_TIMEOUT":       "20s",
		"API_SERVER_WRITE_TIMEOUT":      "25s",
		"API_SERVER_IDLE_TIMEOUT":       "2m",
		"API_FIRESTORE_PROJECT_ID":      "chocolog-prod",
		"API_PUBSUB_PROJECT_ID":         "chocolog-events-prod",
		"API_PUBSUB_EVENTS_TOPIC":       "events-prod",
		"API_AUTH_JWT_SECRET":           "prod-secret",
		"API_AUTH_TOKEN_TTL":            "8h",
		"API_AUTH_ISSUER":               "chocolog-prod-api",
		"API_AUDIT_RETENTION_DAYS":      "90",
		"API_AUDIT_PURGE_HOUR_UTC":      "3",
		"API_RATELIMIT_DEFAULT_PER_MIN": "150",
		"API_RATELIMIT_AUTH_PER_MIN":    "300",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected idle timeout: %s", cfg.Server.IdleTimeout)
	}
	if cfg.PubSub.ProjectID != "chocolog-events-prod" {
		t.Errorf("unexpected pubsub project: %s", cfg.PubSub.ProjectID)
	}
	if cfg.PubSub.EventsTopic != "events-prod" {
		t.Errorf("unexpected events topic: %s", cfg.PubSub.EventsTopic)
	}
	if cfg.Auth.TokenTTL != 8*time.Hour {
		t.Errorf("unexpected token ttl: %s", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.Issuer != "chocolog-prod-api" {
		t.Errorf("unexpected issuer: %s", cfg.Auth.Issuer)
	}
	if cfg.Audit.RetentionDays != 90 {
		t.Errorf("unexpected audit retention: %d", cfg.Audit.RetentionDays)
	}
	if cfg.Audit.PurgeHourUTC != 3 {
		t.Errorf("unexpected purge hour: %d", cfg.Audit.PurgeHourUTC)
	}
	if cfg.RateLimits.AuthenticatedPerMinute != 300 {
		t.Errorf("unexpected auth rate limit: %d", cfg.RateLimits.AuthenticatedPerMinute)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "API_SERVER_PORT=7070\nAPI_FIRESTORE_PROJECT_ID=chocolog-dot\nAPI_AUTH_JWT_SECRET=dot-secret\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write dotenv file: %v", err)
	}

	cfg, err := Load(WithEnvFile(envPath), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from dotenv 7070, got %s", cfg.Server.Port)
	}
	if cfg.Firestore.ProjectID != "chocolog-dot" {
		t.Errorf("expected firestore project from dotenv, got %s", cfg.Firestore.ProjectID)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	validationErr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := validationErr.Fields()
	if len(fields) == 0 {
		t.Fatal("expected missing fields, got none")
	}
}

func TestLoadRejectsInvalidPurgeHour(t *testing.T) {
	env := map[string]string{
		"API_FIRESTORE_PROJECT_ID": "chocolog-dev",
		"API_AUTH_JWT_SECRET":      "test-secret",
		"API_AUDIT_PURGE_HOUR_UTC": "24",
	}

	_, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error for purge hour 24, got nil")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}
