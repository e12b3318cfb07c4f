package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"folio/internal/config"
)

const userAgent = "Folio-Go/0.1.0"

// Event names a notification-worthy milestone.
type Event string

const (
	EventExportCompleted  Event = "export_completed"
	EventExportFailed     Event = "export_failed"
	EventExportsAbandoned Event = "exports_abandoned"
	EventTest             Event = "test"
)

// Payload carries event fields such as title, format, url, error and count.
type Payload map[string]any

// Service publishes events. Events it has no message for are ignored.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	title := payload.text("title", "untitled book")
	exportFormat := payload.text("format", "unknown")
	switch event {
	case EventExportCompleted:
		body := fmt.Sprintf("📘 %s export ready: %s", exportFormat, title)
		if url := payload.text("url", ""); url != "" {
			body += "\n" + url
		}
		return message{
			title: "Folio - Export Ready",
			body:  body,
			tags:  []string{"folio", "export", "completed"},
		}, true
	case EventExportFailed:
		return message{
			title:    "Folio - Export Failed",
			body:     fmt.Sprintf("❌ %s export failed for %s: %s", exportFormat, title, payload.text("error", "unknown")),
			tags:     []string{"folio", "export", "failed"},
			priority: "high",
		}, true
	case EventExportsAbandoned:
		return message{
			title: "Folio - Exports Abandoned",
			body:  fmt.Sprintf("⚠️ %s export(s) abandoned by a stopped worker", payload.text("count", "0")),
			tags:  []string{"folio", "worker", "abandoned"},
		}, true
	case EventTest:
		return message{
			title:    "Folio - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"folio", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key, fallback string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return fallback
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return fallback
	}
	return s
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
