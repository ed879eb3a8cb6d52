// Package config loads chanbrief configuration. Resolution order:
// built-in defaults, optional config.yaml overlay, then environment
// variables (with .env files loaded first). Environment always wins.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all chanbrief configuration.
type Config struct {
	// DiscordToken is the bot credential. May also come from the OS
	// keyring (see the secrets package).
	DiscordToken string `yaml:"discord_token" envconfig:"SUMMARY_DISCORD_TOKEN"`

	// GuildID is the server whose channels are scanned when Channels is
	// empty.
	GuildID string `yaml:"guild_id" envconfig:"SUMMARY_SERVER_ID"`

	// OwnerUserID receives the daily digest DM and may run the manual
	// command.
	OwnerUserID string `yaml:"owner_user_id" envconfig:"SUMMARY_OWNER_USER_ID"`

	// Channels pins collection to explicit channel IDs.
	Channels []string `yaml:"channels" envconfig:"SUMMARY_CHANNELS"`

	// ChannelPrefix restricts discovered channel names (empty = all).
	ChannelPrefix string `yaml:"channel_prefix" envconfig:"SUMMARY_CHANNEL_PREFIX"`

	// Keywords is the comma-separated keyword list. Empty means the
	// filter matches nothing and every digest reports zero activity.
	Keywords []string `yaml:"keywords" envconfig:"SUMMARY_KEYWORDS"`

	// Timezone is the IANA zone the daily schedule runs in.
	Timezone string `yaml:"timezone" envconfig:"SUMMARY_TIMEZONE"`

	// FireTime is the daily fire time in HH:MM local form.
	FireTime string `yaml:"fire_time" envconfig:"SUMMARY_FIRE_TIME"`

	// PromptBudget caps the summarization prompt size in characters.
	PromptBudget int `yaml:"prompt_budget" envconfig:"SUMMARY_PROMPT_BUDGET"`

	// TruncateOrder is "oldest-first" or "newest-first".
	TruncateOrder string `yaml:"truncate_order" envconfig:"SUMMARY_TRUNCATE_ORDER"`

	// RunTimeout caps one pipeline run end to end.
	RunTimeout time.Duration `yaml:"run_timeout" envconfig:"SUMMARY_RUN_TIMEOUT"`

	// StatePath is the SQLite file holding the schedule state.
	StatePath string `yaml:"state_path" envconfig:"SUMMARY_STATE_PATH"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`

	// Gemini configures the summarization service.
	Gemini GeminiConfig `yaml:"gemini"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level" envconfig:"SUMMARY_LOG_LEVEL"`

	// Format is "text" or "json".
	Format string `yaml:"format" envconfig:"SUMMARY_LOG_FORMAT"`
}

// GeminiConfig configures the summarization service client. An empty
// APIKey disables the service; every run then uses the deterministic
// fallback summary.
type GeminiConfig struct {
	APIKey  string `yaml:"api_key" envconfig:"GEMINI_API_KEY"`
	Model   string `yaml:"model" envconfig:"GEMINI_MODEL"`
	BaseURL string `yaml:"base_url" envconfig:"GEMINI_BASE_URL"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Timezone:      "Asia/Karachi",
		FireTime:      "13:00",
		PromptBudget:  12000,
		TruncateOrder: "oldest-first",
		RunTimeout:    5 * time.Minute,
		StatePath:     "chanbrief.db",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-pro",
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// at path (if path is empty, ./config.yaml when present), then
// environment variables. .env files are loaded into the environment
// first and never override variables already set.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	cfg := Default()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg.Keywords = normalizeList(cfg.Keywords)
	cfg.Channels = normalizeList(cfg.Channels)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency. Credentials are not checked
// here; the secrets package may still resolve them from the keyring.
func (c *Config) Validate() error {
	if c.OwnerUserID == "" {
		return fmt.Errorf("owner user ID is required (SUMMARY_OWNER_USER_ID)")
	}
	if len(c.Channels) == 0 && c.GuildID == "" {
		return fmt.Errorf("either SUMMARY_CHANNELS or SUMMARY_SERVER_ID is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, _, err := c.FireClock(); err != nil {
		return err
	}
	if c.TruncateOrder != "oldest-first" && c.TruncateOrder != "newest-first" {
		return fmt.Errorf("truncate order must be oldest-first or newest-first, got %q", c.TruncateOrder)
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// FireClock parses FireTime into hour and minute.
func (c *Config) FireClock() (hour, minute int, err error) {
	parts := strings.SplitN(c.FireTime, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("fire time must be HH:MM, got %q", c.FireTime)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("fire time must be HH:MM, got %q", c.FireTime)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("fire time must be HH:MM, got %q", c.FireTime)
	}
	return hour, minute, nil
}

// Masked returns a copy with secrets replaced for display.
func (c *Config) Masked() Config {
	masked := *c
	masked.DiscordToken = maskSecret(c.DiscordToken)
	masked.Gemini.APIKey = maskSecret(c.Gemini.APIKey)
	return masked
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "…" + s[len(s)-4:]
}

// normalizeList trims entries and drops empties, preserving order.
func normalizeList(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// loadEnvFiles loads .env from the working directory when present.
// Missing files are not an error.
func loadEnvFiles() {
	_ = godotenv.Load()
}
