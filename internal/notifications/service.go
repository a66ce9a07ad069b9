package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"planreel/internal/config"
)

const userAgent = "planreel/0.1.0"

// ChapterEvent summarizes one finished chapter.
type ChapterEvent struct {
	ChapterID   int
	Title       string
	OK          bool
	Summary     string
	Missing     int
	Deliverable string
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyChapterComplete(ctx context.Context, event ChapterEvent) error
	NotifyRunComplete(ctx context.Context, passed, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		onlyFailures: cfg.Notifications.OnlyFailures,
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", userAgent),
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	onlyFailures bool
	client       *resty.Client
}

func (n *ntfyService) NotifyChapterComplete(ctx context.Context, event ChapterEvent) error {
	if event.OK && n.onlyFailures {
		return nil
	}
	title := strings.TrimSpace(event.Title)
	if title == "" {
		title = "untitled"
	}
	data := payload{
		title:   fmt.Sprintf("planreel - Chapter %02d ready", event.ChapterID),
		message: fmt.Sprintf("✅ Chapter %02d (%s) passed", event.ChapterID, title),
		tags:    []string{"planreel", "chapter", "completed"},
	}
	if event.Deliverable != "" {
		data.message += "\nFile: " + event.Deliverable
	}
	if !event.OK {
		data.title = fmt.Sprintf("planreel - Chapter %02d needs review", event.ChapterID)
		data.message = fmt.Sprintf("⚠️ Chapter %02d (%s) needs review", event.ChapterID, title)
		if event.Missing > 0 {
			data.message += fmt.Sprintf("\nMissing assets: %d", event.Missing)
		}
		data.tags = []string{"planreel", "chapter", "review"}
		data.priority = "high"
	}
	if summary := strings.TrimSpace(event.Summary); summary != "" {
		data.message += "\n" + summary
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunComplete(ctx context.Context, passed, failed int, duration time.Duration) error {
	if failed == 0 && n.onlyFailures {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var message string
	var title string
	if failed == 0 {
		title = "planreel - Run Complete"
		message = fmt.Sprintf("Run complete: %d chapters passed in %s", passed, durationText)
	} else {
		title = "planreel - Run Complete (with failures)"
		message = fmt.Sprintf("Run complete: %d passed, %d need review in %s", passed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"planreel", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
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
		title:    "planreel - Error",
		message:  builder.String(),
		tags:     []string{"planreel", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "planreel - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"planreel", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain; charset=utf-8").
		SetBody(data.message)
	if data.title != "" {
		req.SetHeader("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.SetHeader("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.SetHeader("Priority", data.priority)
	}

	resp, err := req.Post(n.endpoint)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	if resp.StatusCode() >= 300 {
		body := strings.TrimSpace(string(resp.Body()))
		if len(body) > 2048 {
			body = body[:2048]
		}
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode(), body)
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyChapterComplete(context.Context, ChapterEvent) error        { return nil }
func (noopService) NotifyRunComplete(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                 { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
