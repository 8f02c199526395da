// Package logging provides the structured logger for gatewise.
//
// It wraps log/slog with level and format selection plus PII redaction, so
// subject identifiers and stray credentials never reach log sinks raw.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Config contains configuration for the Logger.
type Config struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string

	// Format is the output format ("json" or "text").
	Format string

	// AddSource includes file and line number in records.
	AddSource bool

	// RedactPII enables redaction of string attribute values.
	RedactPII bool

	// Writer is the output writer (defaults to os.Stdout).
	Writer io.Writer
}

// Logger is a leveled structured logger with PII redaction.
type Logger struct {
	slog     *slog.Logger
	redactor *Redactor
}

// New creates a Logger from configuration.
func New(cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}

	var handler slog.Handler
	switch cfg.Format {
	case "", "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return &Logger{
		slog:     slog.New(handler),
		redactor: NewRedactor(cfg.RedactPII),
	}, nil
}

// NewNop returns a logger that discards everything. Useful in tests.
func NewNop() *Logger {
	return &Logger{
		slog:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		redactor: NewRedactor(false),
	}
}

// ParseLevel maps a config string to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, l.redactor.RedactArgs(args)...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, l.redactor.RedactArgs(args)...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, l.redactor.RedactArgs(args)...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, l.redactor.RedactArgs(args)...)
}

// With returns a logger carrying the given attributes on every record.
// The values are redacted once here rather than per call.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:     l.slog.With(l.redactor.RedactArgs(args)...),
		redactor: l.redactor,
	}
}

// Slog exposes the underlying slog.Logger for libraries that want one.
// Records emitted through it bypass redaction.
func (l *Logger) Slog() *slog.Logger { return l.slog }
