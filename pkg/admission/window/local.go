package window

import (
	"context"
	"sync"
	"time"
)

// LocalCounter is the single-process Counter backend.
//
// State lives in one map keyed by "class:tier:subjectKey" and is mutated
// under a single mutex, which makes check-and-increment atomic with respect
// to concurrent requests for the same key. Entries are created lazily on
// first request and removed by a background sweep once both windows have
// expired, bounding memory.
//
// LocalCounter is only a correct enforcement point for single-instance
// deployments; horizontally scaled deployments use the Redis backend.
type LocalCounter struct {
	mu      sync.Mutex
	entries map[string]*localEntry

	minuteWindow  time.Duration
	sweepInterval time.Duration

	done      chan struct{}
	closeOnce sync.Once

	// now is swapped out by tests to drive window expiry.
	now func() time.Time
}

type localEntry struct {
	minute windowState
	daily  windowState
}

type windowState struct {
	count   int64
	resetAt time.Time
}

// LocalConfig configures the local backend.
type LocalConfig struct {
	// MinuteWindow is the rolling burst window size. Default: 1 minute.
	MinuteWindow time.Duration

	// SweepInterval is how often expired entries are removed.
	// Default: 1 minute.
	SweepInterval time.Duration
}

// NewLocalCounter creates a local counter and starts its sweep goroutine.
// Call Close during shutdown to stop the sweep.
func NewLocalCounter(cfg LocalConfig) *LocalCounter {
	if cfg.MinuteWindow == 0 {
		cfg.MinuteWindow = time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = time.Minute
	}

	l := &LocalCounter{
		entries:       make(map[string]*localEntry),
		minuteWindow:  cfg.MinuteWindow,
		sweepInterval: cfg.SweepInterval,
		done:          make(chan struct{}),
		now:           time.Now,
	}

	go l.sweepLoop()

	return l
}

// For implements Provider. The local backend keeps all pairs in one map;
// isolation comes from the key prefix.
func (l *LocalCounter) For(class, tier string) Counter {
	return scopedCounter{counter: l, prefix: class + ":" + tier + ":"}
}

// CheckAndIncrement implements Counter.
func (l *LocalCounter) CheckAndIncrement(_ context.Context, key string, limit int64, kind Kind) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{}
		l.entries[key] = e
	}

	w := e.window(kind)
	l.resetIfExpiredLocked(w, kind, now)

	if w.count >= limit {
		return Result{
			Allowed:   false,
			Limit:     limit,
			Used:      w.count,
			Remaining: 0,
			ResetAt:   w.resetAt,
		}, nil
	}

	w.count++
	return Result{
		Allowed:   true,
		Limit:     limit,
		Used:      w.count,
		Remaining: remainingUnder(limit, w.count),
		ResetAt:   w.resetAt,
	}, nil
}

// Peek implements Counter.
func (l *LocalCounter) Peek(_ context.Context, key string, limit int64, kind Kind) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	var used int64
	resetAt := l.freshResetAt(kind, now)

	if e, ok := l.entries[key]; ok {
		w := e.window(kind)
		// A lazily-expired window reads as empty without being mutated.
		if !now.After(w.resetAt) && !w.resetAt.IsZero() {
			used = w.count
			resetAt = w.resetAt
		}
	}

	return Result{
		Allowed:   used < limit,
		Limit:     limit,
		Used:      used,
		Remaining: remainingUnder(limit, used),
		ResetAt:   resetAt,
	}, nil
}

// Len returns the current number of tracked entries. Exposed for the
// entries gauge and for sweep tests.
func (l *LocalCounter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Close stops the background sweep. Idempotent.
func (l *LocalCounter) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	return nil
}

func (e *localEntry) window(kind Kind) *windowState {
	if kind == KindDaily {
		return &e.daily
	}
	return &e.minute
}

// resetIfExpiredLocked lazily resets an expired window. A zero resetAt
// marks a window that has never seen a request.
func (l *LocalCounter) resetIfExpiredLocked(w *windowState, kind Kind, now time.Time) {
	if w.resetAt.IsZero() || now.After(w.resetAt) {
		w.count = 0
		w.resetAt = l.freshResetAt(kind, now)
	}
}

func (l *LocalCounter) freshResetAt(kind Kind, now time.Time) time.Time {
	if kind == KindDaily {
		return nextMidnightUTC(now)
	}
	return now.Add(l.minuteWindow)
}

func (l *LocalCounter) sweepLoop() {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.done:
			return
		}
	}
}

// sweep drops entries whose both windows are expired. It shares the request
// path's mutex, so correctness never depends on it running.
func (l *LocalCounter) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.entries {
		if now.After(e.minute.resetAt) && now.After(e.daily.resetAt) {
			delete(l.entries, key)
		}
	}
}

// scopedCounter namespaces keys for one (class, tier) pair.
type scopedCounter struct {
	counter *LocalCounter
	prefix  string
}

func (s scopedCounter) CheckAndIncrement(ctx context.Context, key string, limit int64, kind Kind) (Result, error) {
	return s.counter.CheckAndIncrement(ctx, s.prefix+key, limit, kind)
}

func (s scopedCounter) Peek(ctx context.Context, key string, limit int64, kind Kind) (Result, error) {
	return s.counter.Peek(ctx, s.prefix+key, limit, kind)
}
