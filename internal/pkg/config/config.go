package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/squadwatch/lineup-monitor/internal/pkg/resilience"
)

type Config struct {
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Export        ExportConfig        `yaml:"export"`
	Health        HealthConfig        `yaml:"health"`
	Logging       LoggingConfig       `yaml:"logging"`
}

type UpstreamConfig struct {
	BaseURL               string        `yaml:"base_url"`
	TournamentID          int64         `yaml:"tournament_id"`
	Timeout               time.Duration `yaml:"timeout"` // bound on each guarded upstream call
	RateLimitPerMinute    float64       `yaml:"rate_limit_per_minute"`
	Burst                 int           `yaml:"burst"`
	MaxConcurrentRequests int64         `yaml:"max_concurrent_requests"`
	MaxRetries            int           `yaml:"max_retries"`
	RetryBaseDelay        time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay         time.Duration `yaml:"retry_max_delay"`
	RetryStrategy         string        `yaml:"retry_strategy"` // fixed|linear|exponential|exponential-jitter
	Breaker               BreakerConfig `yaml:"breaker"`
	Cache                 CacheConfig   `yaml:"cache"`
}

type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
	SuccessThreshold int           `yaml:"success_threshold"`
}

type CacheConfig struct {
	MaxSize       int           `yaml:"max_size"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	FixturesTTL   time.Duration `yaml:"fixtures_ttl"`
	LineupsTTL    time.Duration `yaml:"lineups_ttl"`
}

type MonitoringConfig struct {
	RosterPath          string        `yaml:"roster_path"`
	CheckInterval       time.Duration `yaml:"check_interval"`
	LeadWindow          time.Duration `yaml:"lead_window"` // how long before kickoff a match is watched
	FinalSprintWindow   time.Duration `yaml:"final_sprint_window"`
	FinalSprintInterval time.Duration `yaml:"final_sprint_interval"`
	MinAnalysisInterval time.Duration `yaml:"min_analysis_interval"`
	MaxCyclesPerDay     int           `yaml:"max_cycles_per_day"`
	ShutdownGrace       time.Duration `yaml:"shutdown_grace"`
	NameMatching        string        `yaml:"name_matching"` // exact|folded
}

type NotificationsConfig struct {
	SendStartup  bool           `yaml:"send_startup"`
	SendShutdown bool           `yaml:"send_shutdown"`
	Telegram     TelegramConfig `yaml:"telegram"`
	Discord      DiscordConfig  `yaml:"discord"`
	Email        EmailConfig    `yaml:"email"`
	NATS         NATSConfig     `yaml:"nats"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"` // TELEGRAM_BOT_TOKEN env override
	ChatID   int64  `yaml:"chat_id"`   // TELEGRAM_CHAT_ID env override
}

type DiscordConfig struct {
	Enabled    bool          `yaml:"enabled"`
	WebhookURL string        `yaml:"webhook_url"` // DISCORD_WEBHOOK_URL env override
	Timeout    time.Duration `yaml:"timeout"`
}

type EmailConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"` // EMAIL_PASSWORD env override
	FromName  string        `yaml:"from_name"`
	Recipient string        `yaml:"recipient"`
	Timeout   time.Duration `yaml:"timeout"`
}

type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"` // NATS_URL env override
	SubjectPrefix string `yaml:"subject_prefix"`
	Stream        string `yaml:"stream"`
}

type ExportConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Directory string        `yaml:"directory"`
	Interval  time.Duration `yaml:"interval"`
}

type HealthConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
	File   string `yaml:"file"`   // optional JSON log file
}

// Default returns the built-in configuration. Load unmarshals the file over
// it, so absent keys keep these values.
func Default() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			BaseURL:               "https://api.sofascore.com",
			TournamentID:          17,
			Timeout:               30 * time.Second,
			RateLimitPerMinute:    60,
			Burst:                 10,
			MaxConcurrentRequests: 5,
			MaxRetries:            3,
			RetryBaseDelay:        time.Second,
			RetryMaxDelay:         30 * time.Second,
			RetryStrategy:         "exponential-jitter",
			Breaker: BreakerConfig{
				FailureThreshold: 5,
				RecoveryTimeout:  time.Minute,
				SuccessThreshold: 3,
			},
			Cache: CacheConfig{
				MaxSize:       500,
				SweepInterval: 5 * time.Minute,
				FixturesTTL:   10 * time.Minute,
				LineupsTTL:    5 * time.Minute,
			},
		},
		Monitoring: MonitoringConfig{
			RosterPath:          "my_roster.csv",
			CheckInterval:       15 * time.Minute,
			LeadWindow:          time.Hour,
			FinalSprintWindow:   5 * time.Minute,
			FinalSprintInterval: time.Minute,
			MinAnalysisInterval: 5 * time.Minute,
			MaxCyclesPerDay:     200,
			ShutdownGrace:       10 * time.Second,
			NameMatching:        "exact",
		},
		Notifications: NotificationsConfig{
			SendStartup:  true,
			SendShutdown: true,
			Discord:      DiscordConfig{Timeout: 30 * time.Second},
			Email:        EmailConfig{Port: 587, Timeout: 30 * time.Second},
			NATS:         NATSConfig{SubjectPrefix: "lineup.alerts", Stream: "LINEUP_ALERTS"},
		},
		Export: ExportConfig{
			Directory: "dashboard/data",
			Interval:  5 * time.Minute,
		},
		Health: HealthConfig{
			Port:              8080,
			ReadHeaderTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML config at configPath on top of the defaults, applies
// environment overrides for secrets and validates the result. A .env file
// in the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Notifications.Telegram.ChatID = id
		}
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		c.Notifications.Discord.WebhookURL = v
	}
	if v := os.Getenv("EMAIL_PASSWORD"); v != "" {
		c.Notifications.Email.Password = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.Notifications.NATS.URL = v
	}
}

func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream base_url is required")
	}
	if c.Upstream.TournamentID <= 0 {
		return fmt.Errorf("upstream tournament_id must be positive")
	}
	if _, err := resilience.ParseStrategy(c.Upstream.RetryStrategy); err != nil {
		return fmt.Errorf("upstream retry_strategy: %w", err)
	}

	if c.Monitoring.RosterPath == "" {
		return fmt.Errorf("monitoring roster_path is required")
	}
	if c.Monitoring.CheckInterval <= 0 {
		return fmt.Errorf("monitoring check_interval must be positive")
	}
	if c.Monitoring.FinalSprintInterval <= 0 {
		return fmt.Errorf("monitoring final_sprint_interval must be positive")
	}
	if c.Monitoring.FinalSprintWindow > c.Monitoring.LeadWindow {
		return fmt.Errorf("monitoring final_sprint_window cannot exceed lead_window")
	}
	switch c.Monitoring.NameMatching {
	case "exact", "folded":
	default:
		return fmt.Errorf("unknown name_matching %q", c.Monitoring.NameMatching)
	}

	if t := c.Notifications.Telegram; t.Enabled {
		if t.BotToken == "" {
			return fmt.Errorf("telegram enabled without bot_token")
		}
		if t.ChatID == 0 {
			return fmt.Errorf("telegram enabled without chat_id")
		}
	}
	if d := c.Notifications.Discord; d.Enabled {
		if d.WebhookURL == "" {
			return fmt.Errorf("discord enabled without webhook_url")
		}
		if !strings.HasPrefix(d.WebhookURL, "https://discord.com/api/webhooks/") {
			return fmt.Errorf("discord webhook_url must start with https://discord.com/api/webhooks/")
		}
	}
	if e := c.Notifications.Email; e.Enabled {
		if e.Host == "" || e.Port <= 0 {
			return fmt.Errorf("email enabled without smtp host/port")
		}
		if e.Username == "" || e.Recipient == "" {
			return fmt.Errorf("email enabled without username/recipient")
		}
	}
	if n := c.Notifications.NATS; n.Enabled {
		if n.URL == "" {
			return fmt.Errorf("nats enabled without url")
		}
		if n.SubjectPrefix == "" {
			return fmt.Errorf("nats enabled without subject_prefix")
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	return nil
}
