package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds process configuration. Values are read from environment
// variables with the POCKETCAL_ prefix (e.g. POCKETCAL_PORT).
type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	DBPath    string `envconfig:"DB_PATH" default:"pocketcal.db"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	Timezone  string `envconfig:"TIMEZONE" default:"Local"`

	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`
	SecureCookies bool          `envconfig:"SECURE_COOKIES" default:"false"`

	// AllowedOrigins lists extra websocket origin host patterns, comma separated.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`

	CompletionProvider string        `envconfig:"COMPLETION_PROVIDER" default:"ollama"`
	CompletionModel    string        `envconfig:"COMPLETION_MODEL" default:"llama3.2"`
	CompletionAPIKey   string        `envconfig:"COMPLETION_API_KEY"`
	CompletionTimeout  time.Duration `envconfig:"COMPLETION_TIMEOUT" default:"60s"`

	// CompletionURL is the full generate endpoint for ollama or the API base
	// URL for openai. Empty selects the provider's default.
	CompletionURL string `envconfig:"COMPLETION_URL"`

	// DailyFactCron is a standard five-field cron spec evaluated in Timezone.
	DailyFactCron string `envconfig:"DAILY_FACT_CRON" default:"5 0 * * *"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("pocketcal", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated fields and normalizes their case.
func (c *Config) Validate() error {
	c.CompletionProvider = strings.ToLower(strings.TrimSpace(c.CompletionProvider))
	switch c.CompletionProvider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unsupported completion provider %q", c.CompletionProvider)
	}

	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	if c.CompletionTimeout <= 0 {
		return fmt.Errorf("completion timeout must be positive")
	}
	return nil
}

// Location resolves Timezone to a *time.Location.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
