package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"triarb/internal/bot"
)

type fakeScanner struct {
	status  bot.Status
	stopped bool
}

func (f *fakeScanner) Status() bot.Status { return f.status }
func (f *fakeScanner) Stop()              { f.stopped = true }

func TestStatusHandlerGetStatus(t *testing.T) {
	scanner := &fakeScanner{
		status: bot.Status{
			Mode:          "simulated",
			Running:       true,
			QuoteBalance:  1003.1,
			LoopsTotal:    12,
			LoopsDisabled: 1,
			Cycles:        420,
			LastScan:      time.Unix(1700000000, 0),
		},
	}

	handler := NewStatusHandler(scanner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rr := httptest.NewRecorder()
	handler.GetStatus(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var got bot.Status
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Mode != "simulated" || !got.Running || got.QuoteBalance != 1003.1 || got.Cycles != 420 {
		t.Errorf("unexpected status: %+v", got)
	}
}

func TestStatusHandlerNilScanner(t *testing.T) {
	handler := NewStatusHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rr := httptest.NewRecorder()
	handler.GetStatus(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}
