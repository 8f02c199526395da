package server

import (
	"net/http"
	"time"
)

// The demo handlers stand in for the protected product endpoints. Each one
// answers only after admission has passed, so their responses double as a
// way to exercise the gate end to end.

func echoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"echo":      r.URL.Query().Get("message"),
			"requestId": RequestIDFromContext(r.Context()),
			"time":      time.Now().UTC().Format(time.RFC3339),
		})
	})
}

func searchHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"query":     r.URL.Query().Get("q"),
			"results":   []string{},
			"requestId": RequestIDFromContext(r.Context()),
		})
	})
}

func aiQueryHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "accepted",
			"requestId": RequestIDFromContext(r.Context()),
		})
	})
}
