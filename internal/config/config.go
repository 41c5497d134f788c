// Package config provides YAML-based configuration loading for Goalpost.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goalpost/goalpost/internal/db"
	"gopkg.in/yaml.v3"
)

// Config is the top-level Goalpost configuration, loaded from goalpost.yaml.
// Environment variables override the corresponding file values.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Server   ServerConfig   `yaml:"server"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
	AI       AIConfig       `yaml:"ai"`
	Validate ValidateConfig `yaml:"validate"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// DatabaseConfig holds Postgres connection settings. URL takes precedence
// over the discrete fields when set.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds connection settings for the lease store. When Addr is
// empty the process falls back to an in-memory lease store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// SweeperConfig controls the background reconciliation sweep.
type SweeperConfig struct {
	// Schedule is a 5-field cron expression. Empty disables cron pacing
	// and the sweeper falls back to Interval.
	Schedule string        `yaml:"schedule"`
	Interval time.Duration `yaml:"interval"`
}

// AIConfig gates the model-scored progress contribution path.
type AIConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// ValidateConfig tunes the validation optimizer.
type ValidateConfig struct {
	GracePeriod        time.Duration `yaml:"grace_period"`
	CorrectiveCooldown time.Duration `yaml:"corrective_cooldown"`
}

// NotifyConfig holds chat notification settings. Adapters with empty
// tokens are not constructed.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds the Slack bot token and target channel.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig holds the Discord bot token and target channel.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// Load reads a YAML config file from path and returns a validated Config.
// A missing file is not an error; defaults and environment variables apply.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Parse(nil)
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays environment variables onto the file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("GOALPOST_DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" && c.Database.URL == "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("ENABLE_AI_PROGRESS_CALCULATION"); v != "" {
		c.AI.Enabled = isTruthy(v)
	}
	if v := os.Getenv("CORRECTIVE_TASK_COOLDOWN_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Validate.CorrectiveCooldown = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		c.Notify.Slack.BotToken = v
	}
	if v := os.Getenv("DISCORD_BOT_TOKEN"); v != "" {
		c.Notify.Discord.BotToken = v
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.User == "" {
		c.Database.User = "postgres"
	}
	if c.Database.Database == "" {
		c.Database.Database = "goalpost"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8090
	}
	if c.Sweeper.Interval == 0 {
		c.Sweeper.Interval = 5 * time.Minute
	}
	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o-mini"
	}
	if c.Validate.GracePeriod == 0 {
		c.Validate.GracePeriod = 2 * time.Hour
	}
	if c.Validate.CorrectiveCooldown == 0 {
		c.Validate.CorrectiveCooldown = 30 * time.Minute
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.AI.Enabled && c.AI.APIKey == "" {
		errs = append(errs, "ai.api_key is required when ai.enabled is true")
	}
	if c.Notify.Slack.BotToken != "" && c.Notify.Slack.ChannelID == "" {
		errs = append(errs, "notify.slack.channel_id is required with a bot token")
	}
	if c.Notify.Discord.BotToken != "" && c.Notify.Discord.ChannelID == "" {
		errs = append(errs, "notify.discord.channel_id is required with a bot token")
	}
	if c.Sweeper.Interval < 0 {
		errs = append(errs, "sweeper.interval must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DatabaseDSN returns the URL if set, otherwise a DSN built from the
// discrete connection fields.
func (c *Config) DatabaseDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return db.DSN(c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Database, c.Database.SSLMode)
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
