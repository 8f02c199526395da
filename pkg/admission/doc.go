// Package admission decides, for every inbound request, whether it may
// proceed, based on the caller's identity, subscription tier, and two
// independent consumption windows.
//
// # Overview
//
// The gate composes four pieces:
//
//   - policy: static quota tables mapping (tier, class) to window limits
//   - tier: validation of untrusted tier strings (fail-secure to free)
//   - window: the dual-window tracker with local and Redis counter backends
//   - metrics: Prometheus instrumentation of every decision
//
// # Usage
//
//	gate, err := admission.NewGate(admission.GateConfig{
//	    Policy:  policy.Default(),
//	    Backend: window.NewLocalCounter(window.LocalConfig{}),
//	})
//
//	d := gate.Check(ctx, subject, policy.ClassSearch)
//	switch d.Status {
//	case admission.StatusAllowed:
//	    // proceed
//	case admission.StatusDenied:
//	    // 429 with d.Reason and d.RetryAfter
//	case admission.StatusUnavailable:
//	    // 503, never allow
//	}
//
// # Failure policy
//
// Counter backend failures are fail-secure: the request is rejected with
// StatusUnavailable. There is no fallback to a local limiter in distributed
// deployments, since each instance enforcing an independent looser limit
// would silently multiply the effective quota.
//
// # Thread safety
//
// A Gate is safe for concurrent use. Check-and-increment is atomic per
// subject key in both backends, so two simultaneous requests at the limit
// boundary can never both be admitted.
package admission
