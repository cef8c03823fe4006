package notifications

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kjannette/binance-dash/internal/models"
	"github.com/rs/zerolog"
)

func captureServer(t *testing.T, received *map[string]string, calls *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, received)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSend_NoWebhook(t *testing.T) {
	s := NewSender("", "TestDash", zerolog.Nop())
	if s.Enabled() {
		t.Fatal("should not be enabled with empty URL")
	}
	s.Send("hello from test")
}

func TestSend_SlackFormat(t *testing.T) {
	var received map[string]string
	calls := 0
	srv := captureServer(t, &received, &calls)

	s := NewSender(srv.URL, "TestDash", zerolog.Nop())
	if !s.Enabled() {
		t.Fatal("should be enabled")
	}

	s.Send("snapshot recorded")

	if received["username"] != "TestDash" {
		t.Fatalf("username: got %s", received["username"])
	}
	if received["text"] != "`[TestDash] snapshot recorded`" {
		t.Fatalf("text: got %q", received["text"])
	}
}

func TestSend_DiscordFormat(t *testing.T) {
	var received map[string]string
	calls := 0
	srv := captureServer(t, &received, &calls)

	// URL containing "discord" triggers Discord format
	s := NewSender(srv.URL+"/discord/webhook", "DashBot", zerolog.Nop())
	s.Send("BTC dropped 6.10% in 24h")

	if received["content"] == "" {
		t.Fatal("content should not be empty for Discord")
	}
	if received["username"] != "DashBot" {
		t.Fatalf("username: got %s", received["username"])
	}
	if _, hasText := received["text"]; hasText {
		t.Fatal("Discord payload should not have 'text' field")
	}
}

func TestSendAlerts(t *testing.T) {
	var received map[string]string
	calls := 0
	srv := captureServer(t, &received, &calls)
	s := NewSender(srv.URL+"/discord", "", zerolog.Nop())

	s.SendAlerts(nil)
	if calls != 0 {
		t.Fatalf("empty alert list should not be sent, got %d calls", calls)
	}

	s.SendAlerts([]models.Alert{
		{Asset: "DOGE", Kind: models.AlertCriticalLoss, Message: "DOGE is down 61.00% from its cost basis"},
		{Asset: "BTC", Kind: models.AlertPriceDrop, Message: "BTC dropped 6.10% in 24h"},
	})
	if calls != 1 {
		t.Fatalf("expected 1 webhook call, got %d", calls)
	}
	content := received["content"]
	if !strings.Contains(content, "2 new alert(s)") || !strings.Contains(content, "DOGE is down") || !strings.Contains(content, "BTC dropped") {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestSend_WebhookError(t *testing.T) {
	s := NewSender("http://localhost:1/bogus", "TestDash", zerolog.Nop())
	// Should not panic, just log the error
	s.Send("this will fail gracefully")
}

func TestDefaultName(t *testing.T) {
	s := NewSender("", "", zerolog.Nop())
	if s.name != "BinanceDashboard" {
		t.Fatalf("expected default name, got %s", s.name)
	}
}
