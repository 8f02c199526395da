package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"gatewise-hq/gatewise/pkg/admission"
	"gatewise-hq/gatewise/pkg/admission/policy"
	"gatewise-hq/gatewise/pkg/admission/tier"
	"gatewise-hq/gatewise/pkg/telemetry/logging"
	"gatewise-hq/gatewise/pkg/usagelog"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// HeaderRequestID carries the per-request correlation ID.
const HeaderRequestID = "X-Request-ID"

// RequestIDFromContext returns the request's correlation ID, or "" when the
// request did not pass through RequestID middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestID assigns each request a correlation ID, reusing the caller's
// X-Request-ID when present.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimitedBody is the 429 response payload.
type rateLimitedBody struct {
	Error      string `json:"error"`
	Reason     string `json:"reason"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retryAfter"`
}

// unavailableBody is the 503 response payload.
type unavailableBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Admit gates requests of one quota class. Every response carries the
// current usage headers; denied requests get 429 with a Retry-After hint,
// and counter store failures get 503 rather than an unmetered pass.
func Admit(gate *admission.Gate, class policy.Class, rec *usagelog.Recorder, log *logging.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logging.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub := SubjectFromRequest(r)

			decision := gate.Check(r.Context(), sub, class)
			record(rec, sub, class, decision)
			setUsageHeaders(w, decision.Usage)

			switch decision.Status {
			case admission.StatusAllowed:
				next.ServeHTTP(w, r)

			case admission.StatusDenied:
				retryAfter := int64(decision.RetryAfter / time.Second)
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				writeJSON(w, http.StatusTooManyRequests, rateLimitedBody{
					Error:      "RATE_LIMITED",
					Reason:     string(decision.Reason),
					Message:    deniedMessage(decision),
					RetryAfter: retryAfter,
				})

			default:
				writeJSON(w, http.StatusServiceUnavailable, unavailableBody{
					Error:   "SERVICE_UNAVAILABLE",
					Message: "admission check is temporarily unavailable, please retry",
				})
			}
		})
	}
}

func deniedMessage(d admission.Decision) string {
	msg := "rate limit exceeded"
	if d.Reason == admission.ReasonDailyLimit {
		msg = "daily quota exhausted"
	}
	if d.Tier != tier.TierUnlimited {
		msg += "; upgrade your plan for higher limits"
	}
	return msg
}

func setUsageHeaders(w http.ResponseWriter, u admission.UsageSnapshot) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", admission.FormatLimit(u.Limit))
	h.Set("X-RateLimit-Remaining", admission.FormatLimit(u.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(u.ResetAt.Unix(), 10))
	h.Set("X-RateLimit-Daily-Limit", admission.FormatLimit(u.Daily.Limit))
	h.Set("X-RateLimit-Daily-Remaining", admission.FormatLimit(u.Daily.Remaining))
	h.Set("X-RateLimit-Daily-Reset", strconv.FormatInt(u.Daily.ResetAt.Unix(), 10))
}

func record(rec *usagelog.Recorder, sub admission.Subject, class policy.Class, d admission.Decision) {
	if rec == nil {
		return
	}
	status := "allowed"
	switch d.Status {
	case admission.StatusDenied:
		status = "denied"
	case admission.StatusUnavailable:
		status = "unavailable"
	}
	rec.Record(usagelog.Event{
		SubjectHash: logging.HashSubject(sub.Key()),
		Class:       string(class),
		Tier:        string(d.Tier),
		Status:      status,
		Reason:      string(d.Reason),
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
