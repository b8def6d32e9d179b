package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Limits   LimitsConfig   `yaml:"limits"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Reviews  ReviewsConfig  `yaml:"reviews"`
	LLM      LLMConfig      `yaml:"llm"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// DatabaseConfig selects the key-value backend.
type DatabaseConfig struct {
	Driver string      `yaml:"driver"` // "sqlite" or "redis"
	Path   string      `yaml:"path"`
	Redis  RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// LimitsConfig bounds stored collections and cache ages.
type LimitsConfig struct {
	HistoryCap     int    `yaml:"history_cap"`
	VisitCap       int    `yaml:"visit_cap"`
	ReviewCap      int    `yaml:"review_cap"`
	RescanCooldown string `yaml:"rescan_cooldown"`
	SiteMetaMaxAge string `yaml:"site_meta_max_age"`
	VisitRetention string `yaml:"visit_retention"` // "0" keeps visits until the cap evicts them
}

// ParseRescanCooldown returns the rescan cooldown as time.Duration.
func (l LimitsConfig) ParseRescanCooldown() time.Duration {
	return parseDuration(l.RescanCooldown, 72*time.Hour)
}

// ParseSiteMetaMaxAge returns the site meta cache age as time.Duration.
func (l LimitsConfig) ParseSiteMetaMaxAge() time.Duration {
	return parseDuration(l.SiteMetaMaxAge, 7*24*time.Hour)
}

// ParseVisitRetention returns how long visits are kept.
func (l LimitsConfig) ParseVisitRetention() time.Duration {
	return parseDuration(l.VisitRetention, 90*24*time.Hour)
}

// ScheduleConfig configures background job intervals.
type ScheduleConfig struct {
	ReviewInterval      string `yaml:"review_interval"`
	MaintenanceInterval string `yaml:"maintenance_interval"`
}

// ParseReviewInterval returns the review collection interval.
func (s ScheduleConfig) ParseReviewInterval() time.Duration {
	return parseDuration(s.ReviewInterval, 6*time.Hour)
}

// ParseMaintenanceInterval returns the ledger maintenance interval.
func (s ScheduleConfig) ParseMaintenanceInterval() time.Duration {
	return parseDuration(s.MaintenanceInterval, 24*time.Hour)
}

// ReviewsConfig configures review collection.
type ReviewsConfig struct {
	YouTube           YouTubeConfig `yaml:"youtube"`
	Channels          []string      `yaml:"channels"`
	Feeds             []FeedItem    `yaml:"feeds"`
	ExtraKeywords     []string      `yaml:"extra_keywords"`
	ExcludeKeywords   []string      `yaml:"exclude_keywords"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// YouTubeConfig for the YouTube Data API search.
type YouTubeConfig struct {
	Enabled bool     `yaml:"enabled"`
	APIKey  string   `yaml:"api_key"`
	Queries []string `yaml:"queries"`
}

// FeedItem is a single channel feed entry.
type FeedItem struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// LLMConfig configures the optional model used for site categorization
// and review extraction.
type LLMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"` // "openai" or "anthropic"
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"` // custom endpoint (optional)
}

// AlertsConfig configures alert destinations.
type AlertsConfig struct {
	Slack          SlackConfig   `yaml:"slack"`
	Discord        DiscordConfig `yaml:"discord"`
	Webhook        WebhookConfig `yaml:"webhook"`
	MinDropPercent float64       `yaml:"min_drop_percent"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig selects the logger preset.
type LogConfig struct {
	Mode string `yaml:"mode"` // "production" or "development"
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   "./shoptrail.db",
			Redis:  RedisConfig{Addr: "localhost:6379", Prefix: "shoptrail:"},
		},
		Limits: LimitsConfig{
			HistoryCap:     1000,
			VisitCap:       500,
			ReviewCap:      200,
			RescanCooldown: "72h",
			SiteMetaMaxAge: "168h",
			VisitRetention: "2160h",
		},
		Schedule: ScheduleConfig{
			ReviewInterval:      "6h",
			MaintenanceInterval: "24h",
		},
		Reviews: ReviewsConfig{
			YouTube: YouTubeConfig{
				Queries: []string{"headphones review", "laptop review", "smartphone review"},
			},
			RequestsPerSecond: 2,
		},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Alerts: AlertsConfig{MinDropPercent: 5},
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Mode: "production"},
	}
}

// Load reads configuration from a YAML file, applies env var overrides
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the store cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return ErrEmptyDatabasePath
		}
	case DriverRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Database.Driver)
	}

	caps := []struct {
		name string
		v    int
	}{
		{"history_cap", c.Limits.HistoryCap},
		{"visit_cap", c.Limits.VisitCap},
		{"review_cap", c.Limits.ReviewCap},
	}
	for _, cp := range caps {
		if cp.v <= 0 {
			return fmt.Errorf("%w: %s = %d", ErrInvalidCap, cp.name, cp.v)
		}
	}

	durations := []struct {
		name string
		v    string
	}{
		{"limits.rescan_cooldown", c.Limits.RescanCooldown},
		{"limits.site_meta_max_age", c.Limits.SiteMetaMaxAge},
		{"limits.visit_retention", c.Limits.VisitRetention},
		{"schedule.review_interval", c.Schedule.ReviewInterval},
		{"schedule.maintenance_interval", c.Schedule.MaintenanceInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.v)
		if err != nil || v < 0 {
			return fmt.Errorf("%w: %s = %q", ErrInvalidDuration, d.name, d.v)
		}
	}
	return nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SHOPTRAIL_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SHOPTRAIL_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Database.Redis.Addr = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.Reviews.YouTube.APIKey = v
		cfg.Reviews.YouTube.Enabled = true
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
		cfg.LLM.Enabled = true
		cfg.LLM.Provider = "openai"
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
		cfg.LLM.Enabled = true
		cfg.LLM.Provider = "anthropic"
		if cfg.LLM.Model == "gpt-4o-mini" {
			cfg.LLM.Model = ""
		}
	}
	if v := os.Getenv("SHOPTRAIL_LOG_MODE"); v != "" {
		cfg.Log.Mode = v
	}
}
