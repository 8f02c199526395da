package tier

import (
	"testing"
	"time"
)

var (
	testNow    = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	activeSub  = Subscription{Status: StatusActive}
	trialSub   = Subscription{Status: StatusTrialing}
	futureEnd  = Subscription{Status: StatusActive, EndDate: testNow.Add(30 * 24 * time.Hour)}
	expiredEnd = Subscription{Status: StatusActive, EndDate: testNow.Add(-time.Hour)}
)

func TestResolve_ValidTiers(t *testing.T) {
	if got := Resolve("pro", activeSub, testNow); got != TierPro {
		t.Errorf("Resolve(pro, active) = %q, want pro", got)
	}
	if got := Resolve("unlimited", activeSub, testNow); got != TierUnlimited {
		t.Errorf("Resolve(unlimited, active) = %q, want unlimited", got)
	}
	if got := Resolve("pro", trialSub, testNow); got != TierPro {
		t.Errorf("Resolve(pro, trialing) = %q, want pro", got)
	}
	if got := Resolve("pro", futureEnd, testNow); got != TierPro {
		t.Errorf("Resolve(pro, future end date) = %q, want pro", got)
	}
	if got := Resolve("free", Subscription{}, testNow); got != TierFree {
		t.Errorf("Resolve(free, no sub) = %q, want free", got)
	}
}

func TestResolve_UnknownInputsFailSecure(t *testing.T) {
	// Anything outside the closed set must resolve to free, even with an
	// active subscription attached.
	inputs := []string{
		"",
		"Pro",
		"PRO",
		"Unlimited",
		"UNLIMITED",
		" pro",
		"pro ",
		"pro\n",
		"\tpro",
		"enterprise",
		"admin",
		"premium",
		"null",
		"undefined",
		"__proto__",
		"constructor",
		"prototype",
		"pro'; DROP TABLE users;--",
		`{"$gt": ""}`,
		"pro\x00",
		"prō",
		"ｐｒｏ",
	}

	for _, raw := range inputs {
		if got := Resolve(raw, activeSub, testNow); got != TierFree {
			t.Errorf("Resolve(%q, active) = %q, want free", raw, got)
		}
	}
}

func TestResolve_SubscriptionDowngrade(t *testing.T) {
	tests := []struct {
		name string
		sub  Subscription
	}{
		{"canceled", Subscription{Status: "canceled"}},
		{"past_due", Subscription{Status: "past_due"}},
		{"incomplete", Subscription{Status: "incomplete"}},
		{"empty status", Subscription{}},
		{"expired end date", expiredEnd},
		{"end date exactly now", Subscription{Status: StatusActive, EndDate: testNow}},
		{"trialing but expired", Subscription{Status: StatusTrialing, EndDate: testNow.Add(-time.Minute)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve("pro", tt.sub, testNow); got != TierFree {
				t.Errorf("Resolve(pro, %+v) = %q, want free", tt.sub, got)
			}
			if got := Resolve("unlimited", tt.sub, testNow); got != TierFree {
				t.Errorf("Resolve(unlimited, %+v) = %q, want free", tt.sub, got)
			}
		})
	}
}

func TestSubscription_Active(t *testing.T) {
	if !activeSub.Active(testNow) {
		t.Error("active subscription without end date should be active")
	}
	if !futureEnd.Active(testNow) {
		t.Error("active subscription ending in the future should be active")
	}
	if expiredEnd.Active(testNow) {
		t.Error("subscription past its end date should be inactive")
	}
	if (Subscription{Status: "canceled"}).Active(testNow) {
		t.Error("canceled subscription should be inactive")
	}
}

func TestResolve_IsTotal(t *testing.T) {
	// Every result must be a member of the closed tier set.
	valid := map[Tier]bool{TierFree: true, TierPro: true, TierUnlimited: true}
	for _, raw := range []string{"", "pro", "unlimited", "free", "garbage", "💥"} {
		got := Resolve(raw, activeSub, testNow)
		if !valid[got] {
			t.Errorf("Resolve(%q) returned %q, outside the tier set", raw, got)
		}
	}
}
