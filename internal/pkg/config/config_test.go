package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
monitoring:
  check_interval: 5m
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Monitoring.CheckInterval != 5*time.Minute {
		t.Errorf("check_interval = %v, want override 5m", cfg.Monitoring.CheckInterval)
	}
	if cfg.Upstream.BaseURL != "https://api.sofascore.com" {
		t.Errorf("base_url default lost: %s", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.TournamentID != 17 {
		t.Errorf("tournament_id default lost: %d", cfg.Upstream.TournamentID)
	}
	if cfg.Upstream.Breaker.FailureThreshold != 5 {
		t.Errorf("breaker failure_threshold default lost: %d", cfg.Upstream.Breaker.FailureThreshold)
	}
	if cfg.Upstream.Cache.LineupsTTL != 5*time.Minute {
		t.Errorf("lineups_ttl default lost: %v", cfg.Upstream.Cache.LineupsTTL)
	}
	if cfg.Monitoring.MaxCyclesPerDay != 200 {
		t.Errorf("max_cycles_per_day default lost: %d", cfg.Monitoring.MaxCyclesPerDay)
	}
	if !cfg.Notifications.SendStartup {
		t.Error("send_startup default lost")
	}
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_CHAT_ID", "424242")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/x")

	path := writeConfig(t, `
notifications:
  telegram:
    enabled: true
  discord:
    enabled: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notifications.Telegram.BotToken != "env-token" {
		t.Errorf("bot token = %q, want env override", cfg.Notifications.Telegram.BotToken)
	}
	if cfg.Notifications.Telegram.ChatID != 424242 {
		t.Errorf("chat id = %d, want 424242", cfg.Notifications.Telegram.ChatID)
	}
	if cfg.Notifications.Discord.WebhookURL != "https://discord.com/api/webhooks/1/x" {
		t.Errorf("webhook = %q, want env override", cfg.Notifications.Discord.WebhookURL)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{
			"unknown retry strategy",
			"upstream:\n  retry_strategy: quadratic\n",
			"retry_strategy",
		},
		{
			"telegram without token",
			"notifications:\n  telegram:\n    enabled: true\n    chat_id: 1\n",
			"bot_token",
		},
		{
			"discord with foreign webhook",
			"notifications:\n  discord:\n    enabled: true\n    webhook_url: https://example.com/hook\n",
			"webhooks",
		},
		{
			"nats without url",
			"notifications:\n  nats:\n    enabled: true\n",
			"nats",
		},
		{
			"bad logging level",
			"logging:\n  level: verbose\n",
			"logging level",
		},
		{
			"sprint window exceeds lead window",
			"monitoring:\n  lead_window: 5m\n  final_sprint_window: 10m\n",
			"final_sprint_window",
		},
		{
			"unknown name matching",
			"monitoring:\n  name_matching: fuzzy\n",
			"name_matching",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("error %q does not mention %q", err, tt.errPart)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateDefaultConfig(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}
