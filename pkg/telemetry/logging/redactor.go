package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// Redactor masks PII in log output. Subject keys built from user ids or
// client IPs must never appear raw in logs; free-text fields are scrubbed
// for the common leak shapes (addresses, emails, credentials).
type Redactor struct {
	patterns []redactPattern
	enabled  bool
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternIPv4        = "ipv4"
	PatternIPv6        = "ipv6"
	PatternEmail       = "email"
	PatternAPIKey      = "api_key"
	PatternBearerToken = "bearer_token"
)

// NewRedactor creates a Redactor with the built-in PII patterns.
func NewRedactor(enabled bool) *Redactor {
	r := &Redactor{enabled: enabled}
	if !enabled {
		return r
	}

	defaults := []struct {
		name        string
		regex       string
		replacement string
	}{
		{PatternBearerToken, `(?i)bearer\s+[a-zA-Z0-9._\-]+`, "Bearer ***"},
		{PatternAPIKey, `(sk-[a-zA-Z0-9]+|api[-_]?key[-_:=]\s*[a-zA-Z0-9]+)`, "***"},
		{PatternEmail, `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "***@***"},
		{PatternIPv4, `\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`, "*.*.*.*"},
		{PatternIPv6, `\b([0-9a-fA-F]{1,4}:){2,7}[0-9a-fA-F]{0,4}\b`, "::*"},
	}
	for _, p := range defaults {
		r.patterns = append(r.patterns, redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}
	return r
}

// Redact masks every known PII shape in s.
func (r *Redactor) Redact(s string) string {
	if !r.enabled {
		return s
	}
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}

// RedactArgs applies Redact to every string value in a slog key/value list.
// Keys are left untouched.
func (r *Redactor) RedactArgs(args []any) []any {
	if !r.enabled {
		return args
	}
	out := make([]any, len(args))
	copy(out, args)
	// args alternate key, value; only values are scrubbed.
	for i := 1; i < len(out); i += 2 {
		if s, ok := out[i].(string); ok {
			out[i] = r.Redact(s)
		}
	}
	return out
}

// HashSubject returns a stable, non-reversible token for a subject key so
// per-subject events can be correlated in logs without exposing the user id
// or IP inside it.
func HashSubject(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
