package window

import (
	"context"
	"time"

	"gatewise-hq/gatewise/pkg/admission/policy"
)

// Reason identifies which gate rejected a request.
type Reason string

const (
	ReasonMinuteLimit Reason = "minute_limit"
	ReasonDailyLimit  Reason = "daily_limit"
)

// Outcome is the combined result of both window gates for one request.
type Outcome struct {
	// Allowed is true only when both gates passed.
	Allowed bool

	// Reason is set when Allowed is false.
	Reason Reason

	// Minute and Daily carry the per-window state for usage headers,
	// on accept and reject alike.
	Minute Result
	Daily  Result
}

// Tracker composes the rolling minute gate and the calendar daily gate over
// whichever Counter backend was configured at startup. Both gates must
// pass; increments happen inline with each check, so there is no separate
// commit step and no gap between check and increment.
type Tracker struct {
	provider Provider

	// now drives sentinel reset timestamps; swapped in tests.
	now func() time.Time
}

// NewTracker creates a tracker over the given backend provider.
func NewTracker(p Provider) *Tracker {
	return &Tracker{provider: p, now: time.Now}
}

// Check runs both gates for one subject key.
//
// The minute gate is evaluated first as cheap burst protection. A request
// rejected by the minute gate never increments the daily counter; the daily
// figures in the outcome are then filled by a non-mutating peek so callers
// can still render complete usage headers. The daily gate is skipped
// entirely when the tier's daily limit is the unlimited sentinel.
//
// A non-nil error means the backend failed (infrastructure, not policy);
// callers must treat it as fail-secure.
func (t *Tracker) Check(ctx context.Context, class, tier, key string, limits policy.Limits) (Outcome, error) {
	c := t.provider.For(class, tier)

	minute, err := t.minuteGate(ctx, c, key, limits)
	if err != nil {
		return Outcome{}, err
	}

	if !minute.Allowed {
		return Outcome{
			Allowed: false,
			Reason:  ReasonMinuteLimit,
			Minute:  minute,
			Daily:   t.peekDaily(ctx, c, key, limits),
		}, nil
	}

	daily, err := t.dailyGate(ctx, c, key, limits)
	if err != nil {
		return Outcome{}, err
	}

	if !daily.Allowed {
		return Outcome{
			Allowed: false,
			Reason:  ReasonDailyLimit,
			Minute:  minute,
			Daily:   daily,
		}, nil
	}

	return Outcome{Allowed: true, Minute: minute, Daily: daily}, nil
}

func (t *Tracker) minuteGate(ctx context.Context, c Counter, key string, limits policy.Limits) (Result, error) {
	if limits.UnlimitedMinute() {
		return t.unlimitedResult(KindMinute), nil
	}
	return c.CheckAndIncrement(ctx, key, limits.PerMinute, KindMinute)
}

func (t *Tracker) dailyGate(ctx context.Context, c Counter, key string, limits policy.Limits) (Result, error) {
	if limits.UnlimitedDay() {
		return t.unlimitedResult(KindDaily), nil
	}
	return c.CheckAndIncrement(ctx, key, limits.PerDay, KindDaily)
}

// peekDaily fills daily figures on the minute-reject path. The rejection is
// already decided, so a failing peek degrades to an optimistic snapshot
// instead of surfacing an error.
func (t *Tracker) peekDaily(ctx context.Context, c Counter, key string, limits policy.Limits) Result {
	if limits.UnlimitedDay() {
		return t.unlimitedResult(KindDaily)
	}

	r, err := c.Peek(ctx, key, limits.PerDay, KindDaily)
	if err != nil {
		return Result{
			Allowed:   true,
			Limit:     limits.PerDay,
			Used:      0,
			Remaining: limits.PerDay,
			ResetAt:   nextMidnightUTC(t.now()),
		}
	}
	return r
}

// unlimitedResult is the short-circuit for sentinel limits: nothing is
// counted and the snapshot carries the sentinel through to rendering.
func (t *Tracker) unlimitedResult(kind Kind) Result {
	r := Result{
		Allowed:   true,
		Limit:     policy.Unlimited,
		Remaining: policy.Unlimited,
	}
	if kind == KindDaily {
		r.ResetAt = nextMidnightUTC(t.now())
	} else {
		r.ResetAt = t.now().Add(time.Minute)
	}
	return r
}
