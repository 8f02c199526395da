package redis

import (
	"testing"
	"time"

	"gatewise-hq/gatewise/pkg/admission/window"
)

var noon = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testLimiter() *Limiter {
	return &Limiter{
		prefix:       "gatewise:quota:search:free:",
		timeout:      DefaultTimeout,
		minuteWindow: time.Minute,
		now:          func() time.Time { return noon },
	}
}

func TestKeyFor(t *testing.T) {
	l := testLimiter()

	got := l.keyFor("user:42", window.KindMinute)
	want := "gatewise:quota:search:free:minute:user:42"
	if got != want {
		t.Errorf("keyFor = %q, want %q", got, want)
	}

	got = l.keyFor("ip:203.0.113.9", window.KindDaily)
	want = "gatewise:quota:search:free:daily:ip:203.0.113.9"
	if got != want {
		t.Errorf("keyFor = %q, want %q", got, want)
	}
}

func TestWindowTTL(t *testing.T) {
	l := testLimiter()

	if got := l.windowTTL(window.KindMinute, noon); got != time.Minute {
		t.Errorf("minute TTL = %v, want 1m", got)
	}

	// Noon UTC leaves 12 hours until midnight.
	if got := l.windowTTL(window.KindDaily, noon); got != 12*time.Hour {
		t.Errorf("daily TTL at noon = %v, want 12h", got)
	}

	lastSecond := time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC)
	if got := l.windowTTL(window.KindDaily, lastSecond); got != time.Second {
		t.Errorf("daily TTL at 23:59:59 = %v, want 1s", got)
	}
}

func TestResetAt(t *testing.T) {
	l := testLimiter()

	// PTTL from the store wins.
	if got := l.resetAt(window.KindMinute, noon, 30_000); !got.Equal(noon.Add(30 * time.Second)) {
		t.Errorf("resetAt from pttl = %v, want noon+30s", got)
	}

	// Missing key (-2) or no expiry (-1) falls back to a local instant.
	if got := l.resetAt(window.KindMinute, noon, -2); !got.Equal(noon.Add(time.Minute)) {
		t.Errorf("minute fallback = %v, want noon+1m", got)
	}
	midnight := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if got := l.resetAt(window.KindDaily, noon, -1); !got.Equal(midnight) {
		t.Errorf("daily fallback = %v, want next midnight", got)
	}
}

func TestPoolForReusesLimiters(t *testing.T) {
	p := NewPool(nil, Config{})

	a := p.For("search", "free")
	b := p.For("search", "free")
	if a != b {
		t.Error("same (class, tier) pair produced distinct limiters")
	}

	c := p.For("ai", "free")
	if a == c {
		t.Error("distinct classes share a limiter")
	}

	al, cl := a.(*Limiter), c.(*Limiter)
	if al.prefix == cl.prefix {
		t.Errorf("distinct classes share key prefix %q", al.prefix)
	}
}

func TestPoolDefaults(t *testing.T) {
	p := NewPool(nil, Config{})
	l := p.For("public", "pro").(*Limiter)

	if l.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", l.timeout, DefaultTimeout)
	}
	if l.minuteWindow != time.Minute {
		t.Errorf("minute window = %v, want 1m", l.minuteWindow)
	}
	if l.prefix != "gatewise:quota:public:pro:" {
		t.Errorf("prefix = %q", l.prefix)
	}
}
