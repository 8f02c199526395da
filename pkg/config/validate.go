package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"gatewise-hq/gatewise/pkg/admission/policy"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks the entire configuration and returns a ValidationError if
// any rule fails. All errors are collected and returned together.
func (c *Config) Validate() error {
	var errs []FieldError

	errs = append(errs, validateServer(&c.Server)...)
	errs = append(errs, validateRedis(&c.Redis)...)
	errs = append(errs, validateLimits(c)...)
	errs = append(errs, validateUsageLog(&c.UsageLog)...)
	errs = append(errs, validateTelemetry(&c.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(s *ServerConfig) []FieldError {
	var errs []FieldError
	if s.ListenAddress == "" {
		errs = append(errs, FieldError{"server.listen_address", "must not be empty"})
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, FieldError{"server.read_timeout", "must not be negative"})
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, FieldError{"server.write_timeout", "must not be negative"})
	}
	if s.IdleTimeout < 0 {
		errs = append(errs, FieldError{"server.idle_timeout", "must not be negative"})
	}
	if s.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{"server.shutdown_timeout", "must be positive"})
	}
	return errs
}

func validateRedis(r *RedisConfig) []FieldError {
	var errs []FieldError
	if r.Enabled() && !strings.HasPrefix(r.URL, "redis://") && !strings.HasPrefix(r.URL, "rediss://") {
		errs = append(errs, FieldError{"redis.url", "must start with redis:// or rediss://"})
	}
	if r.Timeout <= 0 {
		errs = append(errs, FieldError{"redis.timeout", "must be positive"})
	}
	if r.KeyPrefix == "" {
		errs = append(errs, FieldError{"redis.key_prefix", "must not be empty"})
	}
	return errs
}

func validateLimits(c *Config) []FieldError {
	var errs []FieldError
	if c.Limits.MinuteWindow <= 0 {
		errs = append(errs, FieldError{"limits.minute_window", "must be positive"})
	}
	if c.Limits.SweepInterval <= 0 {
		errs = append(errs, FieldError{"limits.sweep_interval", "must be positive"})
	}
	for tierName, byClass := range c.Limits.Tiers {
		for className, e := range byClass {
			if e.PerMinute < policy.Unlimited {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("limits.tiers.%s.%s.per_minute", tierName, className),
					Message: "must be >= -1",
				})
			}
			if e.PerDay < policy.Unlimited {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("limits.tiers.%s.%s.per_day", tierName, className),
					Message: "must be >= -1",
				})
			}
		}
	}
	if len(c.Limits.Tiers) > 0 {
		if err := c.PolicyTable().Validate(); err != nil {
			errs = append(errs, FieldError{"limits.tiers", err.Error()})
		}
	}
	return errs
}

func validateUsageLog(u *UsageLogConfig) []FieldError {
	var errs []FieldError
	if !u.Enabled {
		return nil
	}
	if u.Path == "" {
		errs = append(errs, FieldError{"usage_log.path", "must not be empty when enabled"})
	}
	if u.RetentionDays < 1 {
		errs = append(errs, FieldError{"usage_log.retention_days", "must be at least 1"})
	}
	if u.BufferSize < 1 {
		errs = append(errs, FieldError{"usage_log.buffer_size", "must be at least 1"})
	}
	if _, err := cron.ParseStandard(u.PurgeSchedule); err != nil {
		errs = append(errs, FieldError{"usage_log.purge_schedule", fmt.Sprintf("invalid cron expression: %v", err)})
	}
	return errs
}

func validateTelemetry(t *TelemetryConfig) []FieldError {
	var errs []FieldError
	switch strings.ToLower(t.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level", "must be one of: debug, info, warn, error"})
	}
	switch strings.ToLower(t.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format", "must be one of: json, text"})
	}
	if t.Metrics.Enabled && !strings.HasPrefix(t.Metrics.Path, "/") {
		errs = append(errs, FieldError{"telemetry.metrics.path", "must start with /"})
	}
	return errs
}
