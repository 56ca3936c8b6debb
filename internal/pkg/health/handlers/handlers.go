package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// StatusFunc supplies the point-in-time snapshot served by /status.
type StatusFunc func() any

var statusFunc StatusFunc

// SetStatusFunc sets the snapshot source for /status.
func SetStatusFunc(fn StatusFunc) {
	statusFunc = fn
}

// HandlePing handles /ping endpoint
func HandlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong\n"))
}

// HandleHealth handles /health endpoint
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// HandleStatus handles /status endpoint
func HandleStatus(w http.ResponseWriter, r *http.Request) {
	if statusFunc == nil {
		http.Error(w, "status source not configured", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(statusFunc()); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode status: %v", err), http.StatusInternalServerError)
	}
}
