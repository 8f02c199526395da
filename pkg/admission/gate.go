package admission

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"gatewise-hq/gatewise/pkg/admission/policy"
	"gatewise-hq/gatewise/pkg/admission/tier"
	"gatewise-hq/gatewise/pkg/admission/window"
	"gatewise-hq/gatewise/pkg/telemetry/logging"
)

// Gate is the public admission-control entry point.
//
// For each request it validates the caller's tier, looks up the quota
// limits for the requested class, and runs the dual-window tracker over
// whichever counter backend was configured at startup. Backend failures are
// fail-secure: the request is answered "unavailable", never silently
// admitted, because an enforcement mechanism that degrades to unlimited on
// outage defeats its purpose.
type Gate struct {
	policy  atomic.Pointer[policy.Table]
	tracker *window.Tracker
	metrics *Metrics
	log     *logging.Logger

	now func() time.Time
}

// GateConfig wires a Gate.
type GateConfig struct {
	// Policy is the validated quota table.
	Policy *policy.Table

	// Backend provides per-(class, tier) window counters: the local
	// in-process backend, or the Redis pool in scaled deployments.
	Backend window.Provider

	// Metrics is optional; nil disables instrumentation.
	Metrics *Metrics

	// Logger is optional; nil discards logs.
	Logger *logging.Logger
}

// NewGate constructs a Gate. The policy table is validated here: a table
// with holes is a deployment mistake and must fail startup, not surface as
// per-request branches.
func NewGate(cfg GateConfig) (*Gate, error) {
	if cfg.Policy == nil {
		return nil, fmt.Errorf("admission: policy table is required")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("admission: %w", err)
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("admission: counter backend is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}

	g := &Gate{
		tracker: window.NewTracker(cfg.Backend),
		metrics: cfg.Metrics,
		log:     cfg.Logger,
		now:     time.Now,
	}
	g.policy.Store(cfg.Policy)
	return g, nil
}

// SwapPolicy atomically replaces the quota table, used by config hot
// reload. The table must already be validated; an invalid table is refused.
func (g *Gate) SwapPolicy(t *policy.Table) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("admission: refusing policy swap: %w", err)
	}
	g.policy.Store(t)
	return nil
}

// Check decides whether one request may proceed.
//
// The decision always carries a UsageSnapshot so transports can render
// rate-limit headers on every response. Policy rejections are expected
// traffic and log at debug; backend failures log at warn with the subject
// key hashed.
func (g *Gate) Check(ctx context.Context, sub Subject, class policy.Class) Decision {
	start := g.now()

	t := g.resolveTier(sub, start)
	limits := g.policy.Load().LimitsFor(t, class)

	out, err := g.tracker.Check(ctx, string(class), string(t), sub.Key(), limits)
	elapsed := g.now().Sub(start)

	if err != nil {
		g.metrics.RecordBackendError()
		g.metrics.RecordCheck(string(class), string(t), StatusUnavailable, elapsed)
		g.log.Warn("admission backend failure",
			"class", string(class),
			"tier", string(t),
			"subject", logging.HashSubject(sub.Key()),
			"error", err.Error(),
		)
		return Decision{
			Status: StatusUnavailable,
			Tier:   t,
			Usage:  g.fallbackUsage(limits),
		}
	}

	d := Decision{
		Tier:  t,
		Usage: snapshotFrom(out),
	}

	if out.Allowed {
		d.Status = StatusAllowed
		g.metrics.RecordCheck(string(class), string(t), StatusAllowed, elapsed)
		return d
	}

	d.Status = StatusDenied
	d.Reason = out.Reason
	d.RetryAfter = g.retryAfter(out)

	g.metrics.RecordCheck(string(class), string(t), StatusDenied, elapsed)
	g.metrics.RecordDenial(string(class), string(out.Reason))
	g.log.Debug("admission denied",
		"class", string(class),
		"tier", string(t),
		"subject", logging.HashSubject(sub.Key()),
		"reason", string(out.Reason),
	)
	return d
}

// resolveTier validates the subject's tier. Anonymous callers have no
// subscription and always run at the free tier.
func (g *Gate) resolveTier(sub Subject, now time.Time) tier.Tier {
	if sub.Kind != SubjectUser {
		return tier.TierFree
	}
	return tier.Resolve(sub.RawTier, sub.Subscription, now)
}

// retryAfter is the time until the rejecting window resets, rounded up to
// whole seconds for the Retry-After header.
func (g *Gate) retryAfter(out window.Outcome) time.Duration {
	reset := out.Minute.ResetAt
	if out.Reason == window.ReasonDailyLimit {
		reset = out.Daily.ResetAt
	}
	d := reset.Sub(g.now())
	if d <= 0 {
		return 0
	}
	if r := d % time.Second; r != 0 {
		d += time.Second - r
	}
	return d
}

func snapshotFrom(out window.Outcome) UsageSnapshot {
	return UsageSnapshot{
		Limit:     out.Minute.Limit,
		Remaining: out.Minute.Remaining,
		ResetAt:   out.Minute.ResetAt,
		Daily: DailyUsage{
			Limit:     out.Daily.Limit,
			Used:      out.Daily.Used,
			Remaining: out.Daily.Remaining,
			ResetAt:   out.Daily.ResetAt,
		},
	}
}

// fallbackUsage builds the snapshot for unavailable decisions, where no
// counts could be read: limits are known, consumption is not. An unlimited
// window stays unlimited; a sentinel limit never renders with a depleted
// remaining count.
func (g *Gate) fallbackUsage(limits policy.Limits) UsageSnapshot {
	now := g.now()
	u := now.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)

	minuteRemaining := int64(0)
	if limits.UnlimitedMinute() {
		minuteRemaining = policy.Unlimited
	}
	dailyRemaining := int64(0)
	if limits.UnlimitedDay() {
		dailyRemaining = policy.Unlimited
	}

	return UsageSnapshot{
		Limit:     limits.PerMinute,
		Remaining: minuteRemaining,
		ResetAt:   now.Add(time.Minute),
		Daily: DailyUsage{
			Limit:     limits.PerDay,
			Used:      0,
			Remaining: dailyRemaining,
			ResetAt:   midnight,
		},
	}
}
