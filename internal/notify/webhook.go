package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// WebhookSink POSTs notifications as JSON to a configured endpoint.
type WebhookSink struct {
	client *resty.Client
}

// NewWebhookSink creates a sink targeting the given URL.
func NewWebhookSink(url string) *WebhookSink {
	c := resty.New().
		SetBaseURL(url).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)
	return &WebhookSink{client: c}
}

func (s *WebhookSink) Deliver(ctx context.Context, n Notification) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(&n).
		Post("")
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// LogSink writes notifications to the service log. Used when no webhook is
// configured, which keeps local development observable without a receiver.
type LogSink struct {
	Log zerolog.Logger
}

func (s LogSink) Deliver(_ context.Context, n Notification) error {
	s.Log.Info().
		Str("task_id", n.TaskID).
		Str("user_id", n.UserID).
		Str("title", n.Title).
		Time("notify_at", n.NotifyAtUTC).
		Int("lead_minutes", n.LeadMinutes).
		Msg("notification fired")
	return nil
}
