package server

import (
	"net"
	"net/http"
	"strings"
	"time"

	"gatewise-hq/gatewise/pkg/admission"
	"gatewise-hq/gatewise/pkg/admission/tier"
)

// Identity headers set by the upstream authentication layer. Requests
// without X-User-ID are treated as anonymous and keyed by client IP.
const (
	HeaderUserID             = "X-User-ID"
	HeaderUserTier           = "X-User-Tier"
	HeaderSubscriptionStatus = "X-Subscription-Status"
	HeaderSubscriptionEnd    = "X-Subscription-End"
)

// SubjectFromRequest builds the admission subject for a request. Anonymous
// callers are identified by the first X-Forwarded-For hop, falling back to
// the connection's remote address.
func SubjectFromRequest(r *http.Request) admission.Subject {
	userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if userID == "" {
		return admission.Subject{
			Kind: admission.SubjectAnonymous,
			IP:   clientIP(r),
		}
	}

	sub := tier.Subscription{
		Status: strings.TrimSpace(r.Header.Get(HeaderSubscriptionStatus)),
	}
	if raw := strings.TrimSpace(r.Header.Get(HeaderSubscriptionEnd)); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			// A garbage end date must not read as "no end date": clearing
			// the status downgrades the subject to the free tier.
			sub.Status = ""
		} else {
			sub.EndDate = end
		}
	}

	return admission.Subject{
		Kind:         admission.SubjectUser,
		UserID:       userID,
		IP:           clientIP(r),
		RawTier:      r.Header.Get(HeaderUserTier),
		Subscription: sub,
	}
}

// clientIP returns the first X-Forwarded-For hop, or the remote address
// host when the header is absent.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := xff
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			first = xff[:idx]
		}
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
