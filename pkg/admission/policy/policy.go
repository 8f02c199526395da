// Package policy holds the static quota tables mapping (tier, quota class)
// to window limits.
//
// The table is pure data: lookups have no side effects and no error paths.
// A table missing a (tier, class) pair is a configuration mistake and is
// rejected by Validate at startup, never branched on per request.
package policy

import (
	"fmt"

	"gatewise-hq/gatewise/pkg/admission/tier"
)

// Unlimited is the sentinel limit meaning "no cap". It short-circuits all
// numeric comparisons and renders as the string "unlimited" in headers.
const Unlimited int64 = -1

// Class is a named category of endpoint with its own independent limit
// table. AI endpoints are deliberately the tightest.
type Class string

const (
	ClassPublic Class = "public"
	ClassSearch Class = "search"
	ClassAI     Class = "ai"
)

// Classes lists every quota class a table must cover.
func Classes() []Class {
	return []Class{ClassPublic, ClassSearch, ClassAI}
}

// Limits are the two window caps for one (tier, class) pair.
type Limits struct {
	// PerMinute caps the rolling 60-second burst window.
	PerMinute int64

	// PerDay caps the UTC-midnight-aligned daily window.
	PerDay int64
}

// UnlimitedMinute reports whether the minute window has no cap.
func (l Limits) UnlimitedMinute() bool { return l.PerMinute == Unlimited }

// UnlimitedDay reports whether the daily window has no cap.
func (l Limits) UnlimitedDay() bool { return l.PerDay == Unlimited }

// Table maps tier and class to limits.
type Table struct {
	limits map[tier.Tier]map[Class]Limits
}

// NewTable builds a table from an explicit limit map, typically produced
// from configuration. The table should be validated before use.
func NewTable(limits map[tier.Tier]map[Class]Limits) *Table {
	// Deep-copy so later config mutations cannot reach a live table.
	m := make(map[tier.Tier]map[Class]Limits, len(limits))
	for t, byClass := range limits {
		inner := make(map[Class]Limits, len(byClass))
		for c, l := range byClass {
			inner[c] = l
		}
		m[t] = inner
	}
	return &Table{limits: m}
}

// Default returns the built-in limit table.
func Default() *Table {
	return NewTable(map[tier.Tier]map[Class]Limits{
		tier.TierFree: {
			ClassPublic: {PerMinute: 60, PerDay: 2000},
			ClassSearch: {PerMinute: 30, PerDay: 500},
			ClassAI:     {PerMinute: 5, PerDay: 50},
		},
		tier.TierPro: {
			ClassPublic: {PerMinute: 300, PerDay: 20000},
			ClassSearch: {PerMinute: 120, PerDay: 5000},
			ClassAI:     {PerMinute: 30, PerDay: 1000},
		},
		tier.TierUnlimited: {
			ClassPublic: {PerMinute: Unlimited, PerDay: Unlimited},
			ClassSearch: {PerMinute: Unlimited, PerDay: Unlimited},
			ClassAI:     {PerMinute: Unlimited, PerDay: Unlimited},
		},
	})
}

// Validate checks that the table covers every (tier, class) pair with sane
// values. Call once at startup; a failure here is fatal.
func (t *Table) Validate() error {
	for _, tr := range tier.All() {
		byClass, ok := t.limits[tr]
		if !ok {
			return fmt.Errorf("quota table missing tier %q", tr)
		}
		for _, c := range Classes() {
			l, ok := byClass[c]
			if !ok {
				return fmt.Errorf("quota table missing class %q for tier %q", c, tr)
			}
			if l.PerMinute < Unlimited {
				return fmt.Errorf("quota table %s/%s: per_minute %d is invalid", tr, c, l.PerMinute)
			}
			if l.PerDay < Unlimited {
				return fmt.Errorf("quota table %s/%s: per_day %d is invalid", tr, c, l.PerDay)
			}
		}
	}
	return nil
}

// LimitsFor returns the limits for a validated tier and class.
//
// The pair is assumed present: Validate has already proven table
// completeness, so a miss can only be a programming error and panics.
func (t *Table) LimitsFor(tr tier.Tier, c Class) Limits {
	byClass, ok := t.limits[tr]
	if !ok {
		panic(fmt.Sprintf("policy: unknown tier %q", tr))
	}
	l, ok := byClass[c]
	if !ok {
		panic(fmt.Sprintf("policy: unknown class %q for tier %q", c, tr))
	}
	return l
}
