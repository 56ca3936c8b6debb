package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandlePing(t *testing.T) {
	rec := httptest.NewRecorder()
	HandlePing(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "pong\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHandleStatus(t *testing.T) {
	SetStatusFunc(func() any {
		return map[string]any{"running": true, "cycles": 7}
	})
	defer SetStatusFunc(nil)

	rec := httptest.NewRecorder()
	HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["running"] != true {
		t.Errorf("running = %v", got["running"])
	}
	if got["cycles"] != float64(7) {
		t.Errorf("cycles = %v", got["cycles"])
	}
}

func TestHandleStatusUnconfigured(t *testing.T) {
	SetStatusFunc(nil)
	rec := httptest.NewRecorder()
	HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
