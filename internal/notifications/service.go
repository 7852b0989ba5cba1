// Package notifications pushes campaign lifecycle events to an ntfy topic.
// With no topic configured every notification is a no-op, so callers never
// guard the calls.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"herald/internal/config"
)

const userAgent = "herald/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyCampaignCompleted(ctx context.Context, event string, generated, failures int) error
	NotifyCampaignFailed(ctx context.Context, event, stage, reason string) error
	NotifyMessagesSent(ctx context.Context, event string, count int64) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.Topic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyCampaignCompleted(ctx context.Context, event string, generated, failures int) error {
	event = strings.TrimSpace(event)
	message := fmt.Sprintf("Campaign complete: %s (%d messages drafted)", event, generated)
	if failures > 0 {
		message = fmt.Sprintf("Campaign complete: %s (%d drafted, %d failed)", event, generated, failures)
	}
	data := payload{
		title:    "Herald - Campaign Complete",
		message:  message,
		tags:     []string{"herald", "campaign", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCampaignFailed(ctx context.Context, event, stage, reason string) error {
	event = strings.TrimSpace(event)
	var builder strings.Builder
	builder.WriteString("Campaign failed: ")
	builder.WriteString(event)
	if stage = strings.TrimSpace(stage); stage != "" {
		builder.WriteString(" during ")
		builder.WriteString(stage)
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		builder.WriteString(": ")
		builder.WriteString(reason)
	}
	data := payload{
		title:    "Herald - Campaign Failed",
		message:  builder.String(),
		tags:     []string{"herald", "campaign", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyMessagesSent(ctx context.Context, event string, count int64) error {
	event = strings.TrimSpace(event)
	data := payload{
		title:   "Herald - Messages Sent",
		message: fmt.Sprintf("Sent %d approved message(s) for %s", count, event),
		tags:    []string{"herald", "send", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Herald - Test",
		message:  "Notification system test",
		tags:     []string{"herald", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyCampaignCompleted(context.Context, string, int, int) error { return nil }
func (noopService) NotifyCampaignFailed(context.Context, string, string, string) error {
	return nil
}
func (noopService) NotifyMessagesSent(context.Context, string, int64) error { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
