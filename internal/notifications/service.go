package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"chunkvtt/internal/config"
)

const userAgent = "chunkvtt/0.1.0"

// Event identifies a job milestone worth notifying about.
type Event string

const (
	EventJobCompleted Event = "job_completed"
	EventError        Event = "error"
	EventTest         Event = "test"
)

// Payload carries event fields. Keys per event:
//   - job_completed: source, output, captions (int), duration (seconds, float64), resumed (bool)
//   - error: context, error
type Payload map[string]any

// Service defines the notification surface exposed to the job runner.
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
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		completion: cfg.Notifications.Completion,
		errors:     cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	completion bool
	errors     bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	var msg message
	switch event {
	case EventJobCompleted:
		if !n.completion {
			return nil
		}
		msg = completedMessage(payload)
	case EventError:
		if !n.errors {
			return nil
		}
		msg = errorMessage(payload)
	case EventTest:
		msg = message{
			title:    "chunkvtt - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"chunkvtt", "test"},
			priority: "low",
		}
	default:
		return nil
	}
	return n.send(ctx, msg)
}

func completedMessage(payload Payload) message {
	source := filepath.Base(payload.text("source"))
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Transcribed %s", source)
	details := make([]string, 0, 2)
	if count, ok := payload["captions"].(int); ok {
		details = append(details, fmt.Sprintf("%s captions", humanize.Comma(int64(count))))
	}
	if seconds, ok := payload["duration"].(float64); ok && seconds > 0 {
		details = append(details, (time.Duration(seconds) * time.Second).Round(time.Second).String())
	}
	if len(details) > 0 {
		b.WriteString(" (" + strings.Join(details, ", ") + ")")
	}
	if output := payload.text("output"); output != "" {
		b.WriteString("\nOutput: " + output)
	}
	if resumed, _ := payload["resumed"].(bool); resumed {
		b.WriteString("\nResumed from a previous run")
	}
	return message{
		title:    "chunkvtt - Transcription Complete",
		body:     b.String(),
		tags:     []string{"chunkvtt", "transcribe", "completed"},
		priority: "high",
	}
}

func errorMessage(payload Payload) message {
	var b strings.Builder
	b.WriteString("❌ Error")
	if label := payload.text("context"); label != "" {
		b.WriteString(" with ")
		b.WriteString(label)
	}
	b.WriteString(": ")
	if text := payload.text("error"); text != "" {
		b.WriteString(text)
	} else {
		b.WriteString("unknown")
	}
	return message{
		title:    "chunkvtt - Error",
		body:     b.String(),
		tags:     []string{"chunkvtt", "error", "alert"},
		priority: "high",
	}
}

func (p Payload) text(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
