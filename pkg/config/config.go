// Package config defines the gatewise configuration surface and its
// loading, defaulting, validation, and hot-reload machinery.
package config

import (
	"time"

	"gatewise-hq/gatewise/pkg/admission/policy"
	"gatewise-hq/gatewise/pkg/admission/tier"
)

// Config is the root configuration document.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Limits    LimitsConfig    `yaml:"limits"`
	UsageLog  UsageLogConfig  `yaml:"usage_log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig configures the distributed counter store. An empty URL means
// local-only mode: the in-process counter backend enforces limits, which is
// only correct for single-instance deployments.
type RedisConfig struct {
	// URL is a redis connection URL (redis://[user:pass@]host:port/db).
	URL string `yaml:"url"`

	// Timeout bounds each store round trip.
	Timeout time.Duration `yaml:"timeout"`

	// KeyPrefix namespaces all quota keys.
	KeyPrefix string `yaml:"key_prefix"`
}

// Enabled reports whether distributed mode is configured.
func (r RedisConfig) Enabled() bool { return r.URL != "" }

// LimitsConfig configures window sizes and the per-tier quota tables.
type LimitsConfig struct {
	// MinuteWindow is the rolling burst window size.
	MinuteWindow time.Duration `yaml:"minute_window"`

	// SweepInterval is how often the local backend drops expired entries.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// Tiers overrides the built-in quota table. Keys are tier names,
	// then quota class names. Empty means the built-in defaults apply.
	// -1 means unlimited.
	Tiers map[string]map[string]LimitEntry `yaml:"tiers"`
}

// LimitEntry is one (tier, class) pair's caps.
type LimitEntry struct {
	PerMinute int64 `yaml:"per_minute"`
	PerDay    int64 `yaml:"per_day"`
}

// UsageLogConfig configures the SQLite admission-event log.
type UsageLogConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file.
	Path string `yaml:"path"`

	// RetentionDays is how long events are kept.
	RetentionDays int `yaml:"retention_days"`

	// PurgeSchedule is a cron expression for the retention sweep.
	PurgeSchedule string `yaml:"purge_schedule"`

	// BufferSize is the async recorder queue length.
	BufferSize int `yaml:"buffer_size"`
}

// TelemetryConfig configures logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
	RedactPII bool   `yaml:"redact_pii"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// PolicyTable builds the quota table from configuration: the built-in
// defaults when no override is present, otherwise exactly what the file
// says. The result still needs Validate before use.
func (c *Config) PolicyTable() *policy.Table {
	if len(c.Limits.Tiers) == 0 {
		return policy.Default()
	}

	m := make(map[tier.Tier]map[policy.Class]policy.Limits, len(c.Limits.Tiers))
	for tierName, byClass := range c.Limits.Tiers {
		inner := make(map[policy.Class]policy.Limits, len(byClass))
		for className, e := range byClass {
			inner[policy.Class(className)] = policy.Limits{
				PerMinute: e.PerMinute,
				PerDay:    e.PerDay,
			}
		}
		m[tier.Tier(tierName)] = inner
	}
	return policy.NewTable(m)
}
