package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_PATH", "TOKEN_TTL_HOURS", "CORS_ORIGINS", "MIGRATIONS_DIR"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.TokenTTL != 72*time.Hour {
		t.Errorf("TokenTTL = %v, want 72h", cfg.TokenTTL)
	}
	if cfg.MigrationsDir != "" {
		t.Errorf("MigrationsDir = %q, want embedded (empty)", cfg.MigrationsDir)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v, want two defaults", cfg.CORSOrigins)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TOKEN_TTL_HOURS", "not-a-number")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.TokenTTL != 72*time.Hour {
		t.Errorf("TokenTTL = %v, want fallback 72h", cfg.TokenTTL)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORSOrigins) != len(want) || cfg.CORSOrigins[0] != want[0] || cfg.CORSOrigins[1] != want[1] {
		t.Errorf("CORSOrigins = %v, want %v", cfg.CORSOrigins, want)
	}
}

func TestLoadClientMissingFile(t *testing.T) {
	clearClientEnv(t)

	cfg, err := LoadClient(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadClient: %v", err)
	}
	if cfg.Online() {
		t.Error("default config should be offline")
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
	if cfg.Pomodoro.WorkMinutes != 25 {
		t.Errorf("WorkMinutes = %d, want 25", cfg.Pomodoro.WorkMinutes)
	}
}

func TestLoadClientFileThenEnv(t *testing.T) {
	clearClientEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `server_url: http://file.example
email: me@example.com
password: secret
timeout: 3s
pomodoro:
  work_minutes: 50
  short_break_minutes: 10
  long_break_minutes: 30
  long_break_interval: 2
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TIMESUP_SERVER_URL", "http://env.example")
	t.Setenv("TIMESUP_DATA_DIR", dir)

	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatalf("LoadClient: %v", err)
	}
	if cfg.ServerURL != "http://env.example" {
		t.Errorf("ServerURL = %q, want env override", cfg.ServerURL)
	}
	if cfg.Email != "me@example.com" || !cfg.Online() {
		t.Errorf("expected file credentials, got %+v", cfg)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", cfg.Timeout)
	}
	if cfg.Pomodoro.WorkMinutes != 50 || cfg.Pomodoro.LongBreakInterval != 2 {
		t.Errorf("unexpected pomodoro settings %+v", cfg.Pomodoro)
	}
	if got, want := cfg.LocalDBPath(), filepath.Join(dir, "local.db"); got != want {
		t.Errorf("LocalDBPath = %q, want %q", got, want)
	}
}

func TestLoadClientRejectsBadValues(t *testing.T) {
	clearClientEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("pomodoro:\n  long_break_interval: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadClient(path); err == nil {
		t.Fatal("expected error for zero long break interval")
	}

	if err := os.WriteFile(path, []byte("server_url: [unterminated\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadClient(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func clearClientEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TIMESUP_SERVER_URL", "TIMESUP_EMAIL", "TIMESUP_PASSWORD", "TIMESUP_DATA_DIR", "TIMESUP_TIMEOUT_SECONDS",
	} {
		t.Setenv(key, "")
	}
}
