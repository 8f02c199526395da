// Package tier resolves untrusted subscription data into a validated tier.
//
// Tier strings arrive from a persistence layer and must never be trusted
// directly: a malformed, padded, or hostile value has to degrade to the most
// restrictive tier, never escalate. Resolve is the single choke point for
// that rule.
package tier

import "time"

// Tier is a named subscription level determining quota generosity.
type Tier string

const (
	// TierFree is the most restrictive tier and the fallback for any
	// input that cannot be validated.
	TierFree Tier = "free"

	// TierPro is the paid mid tier.
	TierPro Tier = "pro"

	// TierUnlimited has no numeric caps on any quota class.
	TierUnlimited Tier = "unlimited"
)

// All lists every valid tier. Policy tables are validated against this set.
func All() []Tier {
	return []Tier{TierFree, TierPro, TierUnlimited}
}

// Subscription status values accepted for paid tiers.
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
)

// Subscription is the billing record attached to a subject, as stored by
// the billing collaborator. Both fields are untrusted input.
type Subscription struct {
	// Status is the raw subscription status ("active", "trialing",
	// "canceled", "past_due", ...).
	Status string

	// EndDate is when the subscription ends. Zero means no end date.
	EndDate time.Time
}

// Active reports whether the subscription entitles the subject to a paid
// tier at the given instant.
func (s Subscription) Active(now time.Time) bool {
	if s.Status != StatusActive && s.Status != StatusTrialing {
		return false
	}
	if !s.EndDate.IsZero() && !s.EndDate.After(now) {
		return false
	}
	return true
}

// Resolve maps a raw tier string and its subscription record to a validated
// Tier. The mapping is total: every input resolves to exactly one of the
// three tiers.
//
// The raw string is matched case-sensitively against the closed set
// {"free", "pro", "unlimited"}; no trimming or normalization is applied, so
// case variants, padding, and injection fragments all fall through to
// TierFree. A paid tier additionally requires an active subscription;
// anything ambiguous downgrades.
func Resolve(raw string, sub Subscription, now time.Time) Tier {
	var resolved Tier
	switch raw {
	case string(TierPro):
		resolved = TierPro
	case string(TierUnlimited):
		resolved = TierUnlimited
	default:
		return TierFree
	}

	if !sub.Active(now) {
		return TierFree
	}
	return resolved
}
