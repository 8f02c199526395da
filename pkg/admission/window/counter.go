// Package window implements the dual-window admission counters.
//
// Every subject is tracked across two independent windows: a rolling
// 60-second burst window and a daily window aligned to UTC midnight. The
// package defines the backend-neutral Counter contract, the in-process
// implementation, and the Tracker that composes both windows into a single
// admission decision.
package window

import (
	"context"
	"time"
)

// Kind selects which of the two windows an operation targets.
type Kind string

const (
	// KindMinute is the rolling burst window: it restarts a fixed
	// duration after the first request in it.
	KindMinute Kind = "minute"

	// KindDaily is the calendar-aligned window: it resets at the next
	// UTC midnight regardless of request arrival times.
	KindDaily Kind = "daily"
)

// Result is the outcome of a single window operation.
type Result struct {
	// Allowed reports whether the request fit under the limit. For Peek
	// it reports whether the next request would fit.
	Allowed bool

	// Limit is the configured cap for the window.
	Limit int64

	// Used is the number of requests counted in the current window.
	Used int64

	// Remaining is how many further requests the window accepts.
	Remaining int64

	// ResetAt is when the current window expires.
	ResetAt time.Time
}

// Counter is the atomic windowed-counter capability both backends provide.
//
// CheckAndIncrement must be atomic per key: the comparison against the
// limit and the increment happen as one step, so two concurrent requests at
// the boundary can never both be admitted. Rejected requests are not
// counted.
type Counter interface {
	// CheckAndIncrement admits and counts one request if the window for
	// key is under limit, and rejects without counting otherwise. The
	// returned error indicates an infrastructure failure, not a policy
	// rejection.
	CheckAndIncrement(ctx context.Context, key string, limit int64, kind Kind) (Result, error)

	// Peek reports the window state for key without mutating it.
	Peek(ctx context.Context, key string, limit int64, kind Kind) (Result, error)
}

// Provider hands out one Counter per (quota class, tier) pair so limits for
// different classes and tiers stay isolated. Backends are selected once at
// startup, not re-checked per request.
type Provider interface {
	For(class, tier string) Counter
}

// nextMidnightUTC returns the first UTC midnight strictly after now.
func nextMidnightUTC(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}

// remainingUnder clamps limit-used at zero for reporting.
func remainingUnder(limit, used int64) int64 {
	if r := limit - used; r > 0 {
		return r
	}
	return 0
}
