package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kjannette/binance-dash/internal/httputil"
	"github.com/kjannette/binance-dash/internal/models"
	"github.com/rs/zerolog"
)

const defaultName = "BinanceDashboard"

type Sender struct {
	webhookURL string
	name       string
	httpClient *http.Client
	retry      httputil.RetryConfig
	log        zerolog.Logger
}

func NewSender(webhookURL, name string, log zerolog.Logger) *Sender {
	if name == "" {
		name = defaultName
	}
	l := log.With().Str("component", "notify").Logger()
	return &Sender{
		webhookURL: webhookURL,
		name:       name,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
			Log:         &l,
		},
		log: l,
	}
}

// Send logs msg and posts it to the webhook when one is configured.
// Delivery failures are logged, never returned.
func (s *Sender) Send(msg string) {
	s.log.Info().Str("message", msg).Msg("Notification")

	if s.webhookURL == "" {
		return
	}

	body, err := json.Marshal(s.formatPayload(fmt.Sprintf("[%s] %s", s.name, msg)))
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal notification")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to send notification")
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.log.Warn().Int("status", resp.StatusCode).Msg("Webhook rejected notification")
	}
}

// SendAlerts posts one message listing every alert. Nothing is sent for
// an empty list.
func (s *Sender) SendAlerts(alerts []models.Alert) {
	if len(alerts) == 0 {
		return
	}
	lines := make([]string, 0, len(alerts)+1)
	lines = append(lines, fmt.Sprintf("%d new alert(s):", len(alerts)))
	for _, a := range alerts {
		lines = append(lines, "- "+a.Message)
	}
	s.Send(strings.Join(lines, "\n"))
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.name,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.name,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}
