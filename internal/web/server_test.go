package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/relay-controller/internal/relay"
	"github.com/sweeney/relay-controller/internal/status"
)

func newServer() (*Server, *status.Tracker) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tracker := status.NewTracker(start, relay.DefaultConfig().Channels, status.Config{
		SettleMs: 50,
		RearmMs:  200,
	})
	return New(":0", tracker), tracker
}

func TestIndexPage(t *testing.T) {
	srv, tracker := newServer()
	tracker.SetChannel(0, true)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.handleIndex(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	html := string(body)

	if !strings.Contains(html, "relay-1") {
		t.Error("page should name channel relay-1")
	}
	if !strings.Contains(html, "GPIO 4") {
		t.Error("page should show output GPIO 4")
	}
	if !strings.Contains(html, `class="on"`) {
		t.Error("channel 0 should render as ON")
	}
}

func TestIndexNotFound(t *testing.T) {
	srv, _ := newServer()

	req := httptest.NewRequest(http.MethodGet, "/bogus", nil)
	rec := httptest.NewRecorder()
	srv.handleIndex(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestJSONEndpoint(t *testing.T) {
	srv, tracker := newServer()
	tracker.SetChannel(1, true)

	req := httptest.NewRequest(http.MethodGet, "/index.json", nil)
	rec := httptest.NewRecorder()
	srv.handleJSON(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Status.Channels[1].State != "ON" {
		t.Errorf("channel 1 state: got %q, want ON", parsed.Status.Channels[1].State)
	}
}
