package admission

import (
	"strconv"
	"time"

	"gatewise-hq/gatewise/pkg/admission/policy"
	"gatewise-hq/gatewise/pkg/admission/tier"
	"gatewise-hq/gatewise/pkg/admission/window"
)

// SubjectKind discriminates authenticated users from anonymous callers.
type SubjectKind string

const (
	// SubjectUser is an authenticated caller, keyed by user id.
	SubjectUser SubjectKind = "user"

	// SubjectAnonymous is an unauthenticated caller, keyed by client IP.
	SubjectAnonymous SubjectKind = "anonymous"
)

// Subject is the resolved caller identity handed in by the auth
// collaborator. Tier and subscription fields are raw, untrusted values;
// the gate validates them on every check.
type Subject struct {
	Kind SubjectKind

	// UserID is set for SubjectUser.
	UserID string

	// IP is the normalized client address, set for SubjectAnonymous.
	IP string

	// RawTier is the stored tier string, validated by tier.Resolve.
	RawTier string

	// Subscription is the billing record backing RawTier.
	Subscription tier.Subscription
}

// Key is the rate-limit key for this subject: the user id when
// authenticated, the client IP otherwise.
func (s Subject) Key() string {
	if s.Kind == SubjectUser {
		return "user:" + s.UserID
	}
	return "ip:" + s.IP
}

// Status is the terminal state of one admission check.
type Status string

const (
	// StatusAllowed admits the request.
	StatusAllowed Status = "allowed"

	// StatusDenied rejects the request on policy grounds (429). This is
	// expected, high-frequency behavior, not an error.
	StatusDenied Status = "denied"

	// StatusUnavailable rejects the request because the enforcement
	// backend failed (503). Enforcement being down never means "allow".
	StatusUnavailable Status = "unavailable"
)

// Rejection reasons, surfaced verbatim in 429 bodies.
const (
	ReasonMinuteLimit = window.ReasonMinuteLimit
	ReasonDailyLimit  = window.ReasonDailyLimit
)

// DailyUsage is the calendar-window half of a usage snapshot.
type DailyUsage struct {
	Limit     int64
	Used      int64
	Remaining int64
	ResetAt   time.Time
}

// UsageSnapshot carries the machine-readable usage state for both windows.
// It is populated on every decision, accept and reject alike, so callers
// can always render rate-limit headers.
type UsageSnapshot struct {
	// Minute window.
	Limit     int64
	Remaining int64
	ResetAt   time.Time

	Daily DailyUsage
}

// Decision is the outcome of AdmissionGate.Check.
type Decision struct {
	Status Status

	// Reason is set when Status is StatusDenied.
	Reason window.Reason

	// Tier is the validated tier the decision was made under.
	Tier tier.Tier

	Usage UsageSnapshot

	// RetryAfter is how long until the rejecting window resets; zero
	// unless Status is StatusDenied.
	RetryAfter time.Duration
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool { return d.Status == StatusAllowed }

// UnlimitedValue is how sentinel limits render in headers.
const UnlimitedValue = "unlimited"

// FormatLimit renders a limit or remaining value for a header, mapping the
// sentinel to "unlimited".
func FormatLimit(v int64) string {
	if v == policy.Unlimited {
		return UnlimitedValue
	}
	return strconv.FormatInt(v, 10)
}
