package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ASKMICHAEL_CONFIG", "ASKMICHAEL_MODE", "ASKMICHAEL_PORT", "PORT", "ASKMICHAEL_LOG_LEVEL",
		"ASKMICHAEL_STORAGE_BACKEND", "MONGODB_URI", "ASKMICHAEL_MONGO_DATABASE", "ASKMICHAEL_CONNECT_ATTEMPTS",
		"ASKMICHAEL_GCP_PROJECT", "ASKMICHAEL_GCP_LOCATION", "ASKMICHAEL_MODEL_NAME",
		"ASKMICHAEL_ADVICE_BACKEND", "ASKMICHAEL_ADVICE_URL", "NEXT_PUBLIC_API_URL", "ASKMICHAEL_ADVICE_TIMEOUT",
		"ASKMICHAEL_DAILY_LIMIT", "ASKMICHAEL_USER_HEADER", "ASKMICHAEL_CORS_ORIGINS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadLocalDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Mode != ModeLocal || cfg.StorageBackend != StorageMemory || cfg.AdviceBackend != AdviceMock {
		t.Fatalf("unexpected local defaults: %+v", cfg)
	}
	if cfg.Port != "8080" || cfg.DailyLimit != 50 || cfg.UserHeader != "X-User-Id" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.AdviceTimeout != 60*time.Second || cfg.ConnectAttempts != 5 || cfg.MongoDatabase != "askmichael" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadCloudRequiresBackends(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASKMICHAEL_MODE", "cloud")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"MONGODB_URI", "ASKMICHAEL_ADVICE_URL"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestLoadLegacyAdviceURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASKMICHAEL_MODE", "cloud")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("NEXT_PUBLIC_API_URL", "http://advice:9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AdviceURL != "http://advice:9000" || cfg.StorageBackend != StorageMongo {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "askmichael.yaml")
	content := `
mode: cloud
storage_backend: firestore
gcp_project: smelter-prod
advice_backend: vertex
daily_limit: 20
advice_timeout: 15s
port: "9090"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ASKMICHAEL_CONFIG", path)
	t.Setenv("ASKMICHAEL_DAILY_LIMIT", "75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Mode != ModeCloud || cfg.StorageBackend != StorageFirestore || cfg.AdviceBackend != AdviceVertex {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.DailyLimit != 75 {
		t.Fatalf("env should override file, got daily limit %d", cfg.DailyLimit)
	}
	if cfg.AdviceTimeout != 15*time.Second || cfg.Port != "9090" || cfg.GCPLocation != "us-central1" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASKMICHAEL_DAILY_LIMIT", "fifty")
	t.Setenv("ASKMICHAEL_STORAGE_BACKEND", "cassandra")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "ASKMICHAEL_DAILY_LIMIT") || !strings.Contains(err.Error(), "cassandra") {
		t.Fatalf("expected both problems reported, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASKMICHAEL_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestLoadCORSOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASKMICHAEL_CORS_ORIGINS", "https://ask.example.com, http://localhost:3000,,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://localhost:3000" {
		t.Fatalf("unexpected origins: %q", cfg.CORSOrigins)
	}
}

func TestLoadClampsConnectAttempts(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASKMICHAEL_CONNECT_ATTEMPTS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ConnectAttempts != 1 {
		t.Fatalf("expected at least one attempt, got %d", cfg.ConnectAttempts)
	}
}

func TestValidateDoesNotModifyConfig(t *testing.T) {
	cfg := Config{
		StorageBackend: StorageMemory,
		AdviceBackend:  AdviceMock,
		DailyLimit:     50,
		UserHeader:     "X-User-Id",
	}
	before := cfg

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cfg.ConnectAttempts != before.ConnectAttempts || cfg.StorageBackend != before.StorageBackend {
		t.Fatalf("Validate changed the config: %+v", cfg)
	}
}
