package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ttm/internal/config"
)

const userAgent = "ttm/0.1.0"

// Event names a notification-worthy tracker milestone.
type Event string

const (
	EventTimerStarted    Event = "timer_started"
	EventTimerStopped    Event = "timer_stopped"
	EventAllStopped      Event = "all_stopped"
	EventRestoreConflict Event = "restore_conflict"
	EventTest            Event = "test"
)

// Payload carries event details keyed by field name.
type Payload map[string]any

func (p Payload) str(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Service defines the notification surface exposed to the tracker.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventTimerStarted:    cfg.Notifications.TimerStarted,
			EventTimerStopped:    cfg.Notifications.TimerStopped,
			EventAllStopped:      cfg.Notifications.TimerStopped,
			EventRestoreConflict: true,
			EventTest:            true,
		},
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
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventTimerStarted:
		return message{
			title: "ttm - Timer Started",
			body:  fmt.Sprintf("▶ %s", orUnknown(payload.str("project"))),
			tags:  []string{"ttm", "timer", "started"},
		}, true
	case EventTimerStopped:
		body := fmt.Sprintf("⏹ %s", orUnknown(payload.str("project")))
		if elapsed := payload.str("elapsed"); elapsed != "" {
			body += " after " + elapsed
		}
		if today := payload.str("today"); today != "" {
			body += fmt.Sprintf("\nToday: %s", today)
		}
		return message{
			title: "ttm - Timer Stopped",
			body:  body,
			tags:  []string{"ttm", "timer", "stopped"},
		}, true
	case EventAllStopped:
		return message{
			title: "ttm - All Timers Stopped",
			body:  fmt.Sprintf("Stopped %s running timer(s)", orDefault(payload.str("count"), "0")),
			tags:  []string{"ttm", "timer", "stopped"},
		}, true
	case EventRestoreConflict:
		return message{
			title:    "ttm - Duplicate Running Entries",
			body:     fmt.Sprintf("%s has %s extra open entries after restart", orUnknown(payload.str("project")), orDefault(payload.str("extra"), "some")),
			tags:     []string{"ttm", "restore", "warning"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "ttm - Test",
			body:     "Notification system test",
			tags:     []string{"ttm", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func orUnknown(value string) string {
	return orDefault(value, "Unknown")
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n.client == nil {
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
