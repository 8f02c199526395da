package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gatewise-hq/gatewise/pkg/admission/policy"
	"gatewise-hq/gatewise/pkg/admission/tier"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configPath
}

func TestLoadConfig_ValidFile(t *testing.T) {
	configPath := writeConfigFile(t, `
server:
  listen_address: "0.0.0.0:9090"
  read_timeout: "5s"

redis:
  url: "redis://localhost:6379/0"
  timeout: "100ms"

limits:
  minute_window: "30s"

usage_log:
  enabled: true
  path: "./usage.db"
  retention_days: 7

telemetry:
  logging:
    level: "debug"
    format: "text"
  metrics:
    enabled: true
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:9090", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("expected read timeout 5s, got %v", cfg.Server.ReadTimeout)
	}
	if !cfg.Redis.Enabled() {
		t.Error("expected redis to be enabled")
	}
	if cfg.Redis.Timeout != 100*time.Millisecond {
		t.Errorf("expected redis timeout 100ms, got %v", cfg.Redis.Timeout)
	}
	if cfg.Limits.MinuteWindow != 30*time.Second {
		t.Errorf("expected minute window 30s, got %v", cfg.Limits.MinuteWindow)
	}
	if cfg.UsageLog.RetentionDays != 7 {
		t.Errorf("expected retention 7 days, got %d", cfg.UsageLog.RetentionDays)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_DefaultsApplied(t *testing.T) {
	configPath := writeConfigFile(t, "server:\n  listen_address: \":8081\"\n")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("expected default write timeout %v, got %v", DefaultWriteTimeout, cfg.Server.WriteTimeout)
	}
	if cfg.Redis.Enabled() {
		t.Error("redis should be disabled by default")
	}
	if cfg.Redis.KeyPrefix != DefaultRedisKeyPrefix {
		t.Errorf("expected default key prefix %q, got %q", DefaultRedisKeyPrefix, cfg.Redis.KeyPrefix)
	}
	if cfg.Limits.MinuteWindow != DefaultMinuteWindow {
		t.Errorf("expected default minute window %v, got %v", DefaultMinuteWindow, cfg.Limits.MinuteWindow)
	}
	if cfg.Telemetry.Logging.Level != DefaultLogLevel {
		t.Errorf("expected default log level %q, got %q", DefaultLogLevel, cfg.Telemetry.Logging.Level)
	}
	if cfg.UsageLog.PurgeSchedule != DefaultPurgeSchedule {
		t.Errorf("expected default purge schedule %q, got %q", DefaultPurgeSchedule, cfg.UsageLog.PurgeSchedule)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read configuration file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	configPath := writeConfigFile(t, "server: [not a mapping\n")
	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected error for malformed yaml")
	}
	if !strings.Contains(err.Error(), "failed to parse configuration file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	configPath := writeConfigFile(t, `
redis:
  url: "http://not-redis"
telemetry:
  logging:
    level: "verbose"
`)

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("expected 2 field errors, got %d: %v", len(verr.Errors), verr)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	configPath := writeConfigFile(t, "server:\n  listen_address: \":8081\"\n")

	t.Setenv("GATEWISE_SERVER_LISTEN_ADDRESS", ":7070")
	t.Setenv("GATEWISE_REDIS_URL", "redis://override:6379")
	t.Setenv("GATEWISE_LOG_LEVEL", "warn")
	t.Setenv("GATEWISE_USAGE_LOG_ENABLED", "true")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != ":7070" {
		t.Errorf("env override not applied: got %q", cfg.Server.ListenAddress)
	}
	if cfg.Redis.URL != "redis://override:6379" {
		t.Errorf("env override not applied: got %q", cfg.Redis.URL)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("env override not applied: got %q", cfg.Telemetry.Logging.Level)
	}
	if !cfg.UsageLog.Enabled {
		t.Error("env override not applied: usage log should be enabled")
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	configPath := writeConfigFile(t, "server:\n  listen_address: \":8081\"\n")

	t.Setenv("GATEWISE_LOG_LEVEL", "shouting")

	_, err := LoadConfigWithEnvOverrides(configPath)
	if err == nil {
		t.Fatal("expected validation error after env overrides")
	}
}

func TestConfig_PolicyTable_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	table := cfg.PolicyTable()
	if err := table.Validate(); err != nil {
		t.Fatalf("default table should validate: %v", err)
	}
	if got := table.LimitsFor(tier.TierFree, policy.ClassAI).PerMinute; got != 5 {
		t.Errorf("expected free AI per-minute 5, got %d", got)
	}
}

func TestConfig_PolicyTable_Override(t *testing.T) {
	configPath := writeConfigFile(t, `
limits:
  tiers:
    free:
      public: {per_minute: 10, per_day: 100}
      search: {per_minute: 5, per_day: 50}
      ai: {per_minute: 1, per_day: 10}
    pro:
      public: {per_minute: 100, per_day: 1000}
      search: {per_minute: 50, per_day: 500}
      ai: {per_minute: 10, per_day: 100}
    unlimited:
      public: {per_minute: -1, per_day: -1}
      search: {per_minute: -1, per_day: -1}
      ai: {per_minute: -1, per_day: -1}
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	table := cfg.PolicyTable()
	if err := table.Validate(); err != nil {
		t.Fatalf("table should validate: %v", err)
	}
	if got := table.LimitsFor(tier.TierFree, policy.ClassPublic).PerMinute; got != 10 {
		t.Errorf("expected free public per-minute 10, got %d", got)
	}
	if lim := table.LimitsFor(tier.TierUnlimited, policy.ClassAI); !lim.UnlimitedMinute() || !lim.UnlimitedDay() {
		t.Errorf("expected unlimited AI limits, got %+v", lim)
	}
}

func TestLoadConfig_IncompleteTierTable(t *testing.T) {
	// Missing the pro and unlimited tiers entirely.
	configPath := writeConfigFile(t, `
limits:
  tiers:
    free:
      public: {per_minute: 10, per_day: 100}
`)

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected validation error for incomplete tier table")
	}
	if !strings.Contains(err.Error(), "limits.tiers") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_NegativeLimit(t *testing.T) {
	configPath := writeConfigFile(t, `
limits:
  tiers:
    free:
      public: {per_minute: -2, per_day: 100}
`)

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected validation error for limit below -1")
	}
}

func TestLoadConfig_BadPurgeSchedule(t *testing.T) {
	configPath := writeConfigFile(t, `
usage_log:
  enabled: true
  purge_schedule: "not a cron"
`)

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected validation error for bad cron expression")
	}
	if !strings.Contains(err.Error(), "purge_schedule") {
		t.Errorf("unexpected error: %v", err)
	}
}
