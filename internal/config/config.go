package config

import (
	"fmt"
	"log/slog"
	"os"

	"go.yaml.in/yaml/v4"
)

type OIDCProvider struct {
	Id           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	IssuerURL    string   `yaml:"issuer_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
}

// APIKey grants a pre-provisioned key access as a fixed user. SHA256 is the
// hex digest of the full key; the plaintext never lands in config.
type APIKey struct {
	UserID string `yaml:"user_id"`
	SHA256 string `yaml:"sha256"`
}

type NudgeConfig struct {
	NotifyEmail    string `yaml:"notify_email"`
	ThresholdHours int    `yaml:"threshold_hours"`
}

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	APIBaseURL string `yaml:"api_base_url"`
	AuthToken  string `yaml:"auth_token"`
	DBPath     string `yaml:"db_path"`

	// DefaultTZOffsetMinutes is the fixed UTC offset used for date
	// resolution when a user has no timezone preference stored.
	DefaultTZOffsetMinutes int `yaml:"default_tz_offset_minutes"`

	AuthEnabled   bool           `yaml:"auth_enabled"`
	APIKeys       []APIKey       `yaml:"api_keys"`
	OIDCProviders []OIDCProvider `yaml:"oidc_providers"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Nudge NudgeConfig `yaml:"nudge"`
}

// Load reads the YAML config at path, or at $HABITD_CONFIG if that is set.
func Load(path string) (*Config, error) {
	if env := os.Getenv("HABITD_CONFIG"); env != "" {
		path = env
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{
		ListenAddr: ":8080",
		APIBaseURL: "http://localhost:8080",
		DBPath:     "habitd.db",
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
