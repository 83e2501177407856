package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingConfig(t *testing.T) {
	t.Setenv("HABITD_CONFIG", "nonexistent.yaml")
	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for missing config file, got nil")
	}
}

func TestLoad_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	t.Setenv("HABITD_CONFIG", configFile)

	if err := os.WriteFile(configFile, []byte("{}\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatal("error opening config:", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("got '%s' want ':8080'", cfg.ListenAddr)
	}
	if cfg.DBPath != "habitd.db" {
		t.Fatalf("got '%s' want 'habitd.db'", cfg.DBPath)
	}
	if cfg.AuthEnabled {
		t.Fatal("auth should default to disabled")
	}
}

func TestLoad_CustomConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	raw := `
listen_addr: ":9090"
db_path: /var/lib/habitd/habitd.db
default_tz_offset_minutes: 420
auth_enabled: true
api_keys:
  - user_id: user-test123
    sha256: deadbeef
log_level: debug
nudge:
  notify_email: me@example.com
  threshold_hours: 4
`
	if err := os.WriteFile(configFile, []byte(raw), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatal("error opening config:", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Fatalf("got '%s' want ':9090'", cfg.ListenAddr)
	}
	if cfg.DefaultTZOffsetMinutes != 420 {
		t.Fatalf("got %d want 420", cfg.DefaultTZOffsetMinutes)
	}
	if len(cfg.APIKeys) != 1 || cfg.APIKeys[0].UserID != "user-test123" {
		t.Fatalf("got %+v want one key for user-test123", cfg.APIKeys)
	}
	if cfg.Nudge.ThresholdHours != 4 {
		t.Fatalf("got %d want 4", cfg.Nudge.ThresholdHours)
	}
}

func TestLoad_EnvOverridesPath(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, "env.yaml")
	t.Setenv("HABITD_CONFIG", envFile)

	if err := os.WriteFile(envFile, []byte("listen_addr: \":7070\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(filepath.Join(tmpDir, "ignored.yaml"))
	if err != nil {
		t.Fatal("error opening config:", err)
	}
	if cfg.ListenAddr != ":7070" {
		t.Fatalf("got '%s' want ':7070'", cfg.ListenAddr)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		c := &Config{LogLevel: tt.level}
		if got := c.SlogLevel(); got != tt.want {
			t.Fatalf("level %q: got %v want %v", tt.level, got, tt.want)
		}
	}
}
