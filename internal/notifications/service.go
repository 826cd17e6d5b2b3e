package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"marquee/internal/config"
)

const userAgent = "Marquee/0.1.0"

// Service defines the notification surface exposed to the sign worker.
type Service interface {
	NotifySignConnected(ctx context.Context, address string, downtime time.Duration) error
	NotifySignLost(ctx context.Context, address string, cause error) error
	NotifyJobFailed(ctx context.Context, name string, cause error) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		connection:  cfg.Notifications.Connection,
		errors:      cfg.Notifications.Errors,
		dedupWindow: time.Duration(cfg.Notifications.DedupWindow) * time.Second,
		lastSent:    make(map[string]time.Time),
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	connection  bool
	errors      bool
	dedupWindow time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func (n *ntfyService) NotifySignConnected(ctx context.Context, address string, downtime time.Duration) error {
	if !n.connection {
		return nil
	}
	address = strings.TrimSpace(address)
	message := fmt.Sprintf("Sign connected: %s", address)
	if downtime > 0 {
		message = fmt.Sprintf("Sign reconnected: %s (down %s)", address, downtime.Round(time.Second))
	}
	data := payload{
		title:   "Marquee - Connected",
		message: message,
		tags:    []string{"marquee", "sign", "connected"},
	}
	return n.send(ctx, "sign_connected", data)
}

func (n *ntfyService) NotifySignLost(ctx context.Context, address string, cause error) error {
	if !n.connection {
		return nil
	}
	address = strings.TrimSpace(address)
	message := fmt.Sprintf("Sign unreachable: %s", address)
	if cause != nil {
		message = fmt.Sprintf("Sign unreachable: %s (%s)", address, strings.TrimSpace(cause.Error()))
	}
	data := payload{
		title:    "Marquee - Connection Lost",
		message:  message,
		tags:     []string{"marquee", "sign", "lost"},
		priority: "high",
	}
	return n.send(ctx, "sign_lost", data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, name string, cause error) error {
	if !n.errors {
		return nil
	}
	name = strings.TrimSpace(name)
	var builder strings.Builder
	builder.WriteString("Job failed")
	if name != "" {
		builder.WriteString(": ")
		builder.WriteString(name)
	}
	if cause != nil {
		builder.WriteString(" (")
		builder.WriteString(strings.TrimSpace(cause.Error()))
		builder.WriteString(")")
	}
	data := payload{
		title:   "Marquee - Job Failed",
		message: builder.String(),
		tags:    []string{"marquee", "job", "failed"},
	}
	return n.send(ctx, "job_failed", data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Marquee - Error",
		message:  builder.String(),
		tags:     []string{"marquee", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, "error", data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Marquee - Test",
		message:  "Notification system test",
		tags:     []string{"marquee", "test"},
		priority: "low",
	}
	return n.send(ctx, "", data)
}

// shouldSend suppresses repeats of the same event kind inside the dedup
// window so a flapping sign does not flood the topic.
func (n *ntfyService) shouldSend(kind string) bool {
	if kind == "" || n.dedupWindow <= 0 {
		return true
	}
	now := time.Now()
	n.mu.Lock()
	defer n.mu.Unlock()
	if last, ok := n.lastSent[kind]; ok && now.Sub(last) < n.dedupWindow {
		return false
	}
	n.lastSent[kind] = now
	return true
}

func (n *ntfyService) send(ctx context.Context, kind string, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	if !n.shouldSend(kind) {
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

// NewNoopService returns a Service that drops every notification.
func NewNoopService() Service { return noopService{} }

func (noopService) NotifySignConnected(context.Context, string, time.Duration) error { return nil }
func (noopService) NotifySignLost(context.Context, string, error) error              { return nil }
func (noopService) NotifyJobFailed(context.Context, string, error) error             { return nil }
func (noopService) NotifyError(context.Context, error, string) error                 { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
