// Package redis provides the Redis-backed window counter for
// horizontally-scaled deployments.
//
// Check-and-increment runs as a single Lua script, so the comparison and
// the increment are one atomic round trip; the adapter never issues a
// check followed by a separate increment. Counts and expiries read back
// from Redis are propagated as-is, since the store is the source of truth
// across all server instances.
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"gatewise-hq/gatewise/pkg/admission/window"
)

// DefaultTimeout bounds every Redis round trip. A store that does not
// answer within this budget is treated as down (fail secure), never waited
// on indefinitely.
const DefaultTimeout = 250 * time.Millisecond

// checkScript atomically compares the window counter against the limit and
// increments only when under it. Rejected requests are not counted.
//
// KEYS[1] = window counter key
// ARGV[1] = limit
// ARGV[2] = window TTL in milliseconds (applied when the key is created)
//
// Returns {allowed (0|1), used, pttl_ms}.
var checkScript = goredis.NewScript(`
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local used = tonumber(redis.call("GET", KEYS[1]) or "0")
if used >= limit then
    return {0, used, redis.call("PTTL", KEYS[1])}
end

used = redis.call("INCR", KEYS[1])
if used == 1 then
    redis.call("PEXPIRE", KEYS[1], ttl)
end
return {1, used, redis.call("PTTL", KEYS[1])}
`)

// Config configures the Redis backend.
type Config struct {
	// Prefix namespaces all keys (default "gatewise:quota:").
	Prefix string

	// Timeout bounds each store round trip (default DefaultTimeout).
	Timeout time.Duration

	// MinuteWindow is the rolling burst window size (default 1 minute).
	MinuteWindow time.Duration
}

// Pool hands out one Limiter per (quota class, tier) pair. Each limiter
// owns a distinct key prefix, keeping class and tier limits isolated.
type Pool struct {
	client goredis.Cmdable
	cfg    Config

	mu       sync.Mutex
	limiters map[string]*Limiter
}

// NewPool creates a limiter pool over a connected Redis client.
func NewPool(client goredis.Cmdable, cfg Config) *Pool {
	if cfg.Prefix == "" {
		cfg.Prefix = "gatewise:quota:"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MinuteWindow == 0 {
		cfg.MinuteWindow = time.Minute
	}
	return &Pool{
		client:   client,
		cfg:      cfg,
		limiters: make(map[string]*Limiter),
	}
}

// For implements window.Provider.
func (p *Pool) For(class, tier string) window.Counter {
	id := class + ":" + tier

	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.limiters[id]
	if !ok {
		l = &Limiter{
			client:       p.client,
			prefix:       p.cfg.Prefix + id + ":",
			timeout:      p.cfg.Timeout,
			minuteWindow: p.cfg.MinuteWindow,
			now:          time.Now,
		}
		p.limiters[id] = l
	}
	return l
}

// Ping probes store health for readiness checks.
func (p *Pool) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Limiter is the window.Counter for one (class, tier) pair.
type Limiter struct {
	client       goredis.Cmdable
	prefix       string
	timeout      time.Duration
	minuteWindow time.Duration

	// now is swapped out by tests.
	now func() time.Time
}

// CheckAndIncrement implements window.Counter.
func (l *Limiter) CheckAndIncrement(ctx context.Context, key string, limit int64, kind window.Kind) (window.Result, error) {
	now := l.now()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	vals, err := checkScript.Run(ctx, l.client,
		[]string{l.keyFor(key, kind)},
		limit, l.windowTTL(kind, now).Milliseconds(),
	).Int64Slice()
	if err != nil {
		return window.Result{}, fmt.Errorf("redis: window check: %w", err)
	}
	if len(vals) != 3 {
		return window.Result{}, fmt.Errorf("redis: window check: malformed reply of %d values", len(vals))
	}

	allowed, used, pttl := vals[0] == 1, vals[1], vals[2]
	return window.Result{
		Allowed:   allowed,
		Limit:     limit,
		Used:      used,
		Remaining: remaining(limit, used),
		ResetAt:   l.resetAt(kind, now, pttl),
	}, nil
}

// Peek implements window.Counter. It reads the counter and its expiry
// without mutating either; the two commands are not atomic relative to each
// other, which is acceptable for an informational snapshot.
func (l *Limiter) Peek(ctx context.Context, key string, limit int64, kind window.Kind) (window.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	full := l.keyFor(key, kind)

	used, err := l.client.Get(ctx, full).Int64()
	if err == goredis.Nil {
		used = 0
	} else if err != nil {
		return window.Result{}, fmt.Errorf("redis: window peek: %w", err)
	}

	pttl := int64(-2)
	if used > 0 {
		d, err := l.client.PTTL(ctx, full).Result()
		if err != nil {
			return window.Result{}, fmt.Errorf("redis: window peek: %w", err)
		}
		pttl = d.Milliseconds()
	}

	now := l.now()
	return window.Result{
		Allowed:   used < limit,
		Limit:     limit,
		Used:      used,
		Remaining: remaining(limit, used),
		ResetAt:   l.resetAt(kind, now, pttl),
	}, nil
}

func (l *Limiter) keyFor(key string, kind window.Kind) string {
	return l.prefix + string(kind) + ":" + key
}

// windowTTL is the expiry applied when a window key is first created:
// the fixed window length for the burst window, the time left until the
// next UTC midnight for the daily window.
func (l *Limiter) windowTTL(kind window.Kind, now time.Time) time.Duration {
	if kind == window.KindDaily {
		return nextMidnightUTC(now).Sub(now)
	}
	return l.minuteWindow
}

// resetAt derives the window expiry from the key's PTTL. Keys without an
// expiry (missing, or rejected before creation) fall back to a locally
// computed instant.
func (l *Limiter) resetAt(kind window.Kind, now time.Time, pttlMillis int64) time.Time {
	if pttlMillis > 0 {
		return now.Add(time.Duration(pttlMillis) * time.Millisecond)
	}
	if kind == window.KindDaily {
		return nextMidnightUTC(now)
	}
	return now.Add(l.minuteWindow)
}

func nextMidnightUTC(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}

func remaining(limit, used int64) int64 {
	if r := limit - used; r > 0 {
		return r
	}
	return 0
}
