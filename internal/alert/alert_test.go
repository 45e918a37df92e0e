package alert

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"stormlightlabs.org/mlbedge/internal/config"
	"stormlightlabs.org/mlbedge/internal/core"
)

func prob(v float64) *float64 { return &v }

var testDate = core.NewDate(time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC))

func TestClientDisabledWithoutWebhookURL(t *testing.T) {
	c := NewClient(config.AlertConfig{}, "http://dash", log.New(nil))
	if c.Enabled() {
		t.Fatal("expected client to be disabled without a webhook URL")
	}
	if err := c.Send(t.Context(), testDate, "HR", []core.ModelScore{{ModelScore: 90}}); err != nil {
		t.Fatalf("Send on disabled client must be a no-op, got err: %v", err)
	}
}

func TestSendFiltersByThresholdAndRanks(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.AlertConfig{
		WebhookURL: srv.URL,
		MarketThresholds: map[string]config.AlertThreshold{
			"HR": {Signals: []string{"BET"}, MinScore: 75, MaxRows: 1},
		},
	}
	c := NewClient(cfg, "http://dash", log.New(nil))

	scores := []core.ModelScore{
		{SelectionKey: "a", ModelScore: 80, Signal: core.SignalBet, ModelProb: prob(0.3)},
		{SelectionKey: "b", ModelScore: 90, Signal: core.SignalBet, ModelProb: prob(0.4)},
		{SelectionKey: "c", ModelScore: 95, Signal: core.SignalFade},
		{SelectionKey: "d", ModelScore: 60, Signal: core.SignalBet},
	}

	if err := c.Send(t.Context(), testDate, "HR", scores); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(got.Rows) != 1 {
		t.Fatalf("expected 1 row after MaxRows=1, got %d", len(got.Rows))
	}
	if got.Rows[0].SelectionKey != "b" {
		t.Fatalf("expected highest-scoring BET row 'b', got %s", got.Rows[0].SelectionKey)
	}
}

func TestSendSkipsMarketWithoutThreshold(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	cfg := config.AlertConfig{WebhookURL: srv.URL, MarketThresholds: map[string]config.AlertThreshold{}}
	c := NewClient(cfg, "http://dash", log.New(nil))

	if err := c.Send(t.Context(), testDate, "HR", []core.ModelScore{{ModelScore: 99, Signal: core.SignalBet}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if called {
		t.Fatal("expected no request for a market with no configured threshold")
	}
}
