package config

import "time"

// Default values applied to zero fields after loading.
const (
	DefaultListenAddress   = ":8080"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	DefaultRedisTimeout   = 250 * time.Millisecond
	DefaultRedisKeyPrefix = "gatewise:quota:"

	DefaultMinuteWindow  = time.Minute
	DefaultSweepInterval = 5 * time.Minute

	DefaultUsageLogPath      = "gatewise-usage.db"
	DefaultRetentionDays     = 30
	DefaultPurgeSchedule     = "17 3 * * *"
	DefaultUsageLogBufferLen = 1024

	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultMetricsPath = "/metrics"
)

// ApplyDefaults fills zero-valued fields in place.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = DefaultListenAddress
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = DefaultIdleTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.Redis.Timeout == 0 {
		c.Redis.Timeout = DefaultRedisTimeout
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	if c.Limits.MinuteWindow == 0 {
		c.Limits.MinuteWindow = DefaultMinuteWindow
	}
	if c.Limits.SweepInterval == 0 {
		c.Limits.SweepInterval = DefaultSweepInterval
	}

	if c.UsageLog.Path == "" {
		c.UsageLog.Path = DefaultUsageLogPath
	}
	if c.UsageLog.RetentionDays == 0 {
		c.UsageLog.RetentionDays = DefaultRetentionDays
	}
	if c.UsageLog.PurgeSchedule == "" {
		c.UsageLog.PurgeSchedule = DefaultPurgeSchedule
	}
	if c.UsageLog.BufferSize == 0 {
		c.UsageLog.BufferSize = DefaultUsageLogBufferLen
	}

	if c.Telemetry.Logging.Level == "" {
		c.Telemetry.Logging.Level = DefaultLogLevel
	}
	if c.Telemetry.Logging.Format == "" {
		c.Telemetry.Logging.Format = DefaultLogFormat
	}
	if c.Telemetry.Metrics.Path == "" {
		c.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
