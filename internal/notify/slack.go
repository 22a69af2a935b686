package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/driftwatch/driftwatch/internal/config"
)

// SlackSink delivers reminder pushes to a Slack outbound bridge.
type SlackSink struct {
	config config.SlackConfig
	client *http.Client
}

func NewSlackSink(cfg config.SlackConfig) *SlackSink {
	return &SlackSink{config: cfg, client: http.DefaultClient}
}

func (s *SlackSink) Name() string { return "slack" }

// Start subscribes the sink to push notifications. Delivery failures are
// logged, never propagated: the reminder row is the source of truth.
func (s *SlackSink) Start(ctx context.Context, bus *Bus) error {
	if !s.config.Enabled {
		return nil
	}
	bus.Subscribe("push", func(n *Notification) {
		if err := s.Send(ctx, n); err != nil {
			slog.Warn("Slack delivery failed",
				"tenant", n.TenantID, "user", n.UserID, "error", err)
		}
	})
	return nil
}

// Send posts the notification to the configured outbound URL.
func (s *SlackSink) Send(ctx context.Context, n *Notification) error {
	if strings.TrimSpace(s.config.OutboundURL) == "" {
		return nil
	}
	body, _ := json.Marshal(map[string]any{
		"channel":   s.config.Channel,
		"tenant_id": n.TenantID,
		"user_id":   n.UserID,
		"text":      fmt.Sprintf("*%s*\n%s", n.Title, n.Body),
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.OutboundURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := strings.TrimSpace(s.config.BotToken); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack outbound bridge status: %d", resp.StatusCode)
	}
	return nil
}
