package notification

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/gookit/color"

	"osc-console/contract"
	"osc-console/domain"
)

var (
	_ contract.Notifier = (*ConsoleNotifier)(nil)
	_ contract.Notifier = (*LogNotifier)(nil)
)

// ConsoleNotifier prints notifications on a terminal. A request identical to
// the last one shown under the same correlation id is skipped.
type ConsoleNotifier struct {
	mu      sync.Mutex
	out     io.Writer
	colours bool
	last    map[string]domain.Notification
}

func NewConsoleNotifier(out io.Writer, colours bool) *ConsoleNotifier {
	return &ConsoleNotifier{out: out, colours: colours, last: make(map[string]domain.Notification)}
}

func (c *ConsoleNotifier) Notify(_ context.Context, n domain.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.last[n.ID]; ok && prev.Title == n.Title && prev.Body == n.Body && prev.Subtitle == n.Subtitle {
		return nil
	}
	c.last[n.ID] = n

	header := fmt.Sprintf(" %s ", n.Title)
	if c.colours {
		header = c.style(n.Category).Render(header)
	}
	var b strings.Builder
	if n.Sound {
		b.WriteString("\a")
	}
	b.WriteString(header)
	if n.Subtitle != "" {
		fmt.Fprintf(&b, " %s", n.Subtitle)
	}
	fmt.Fprintf(&b, "\n  %s\n", n.Body)
	if len(n.Actions) > 0 {
		actions := make([]string, 0, len(n.Actions))
		for _, a := range n.Actions {
			actions = append(actions, string(a))
		}
		fmt.Fprintf(&b, "  actions: %s\n", strings.Join(actions, ", "))
	}
	_, err := io.WriteString(c.out, b.String())
	return err
}

func (c *ConsoleNotifier) style(category domain.NotificationCategory) color.Style {
	switch category {
	case domain.CategoryHandRaise:
		return color.New(color.BgBlack, color.FgYellow)
	case domain.CategoryParticipantLeave:
		return color.New(color.BgBlack, color.FgRed)
	case domain.CategoryChatMessage:
		return color.New(color.BgBlack, color.FgCyan)
	default:
		return color.New(color.BgBlack, color.FgGreen)
	}
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(ctx context.Context, n domain.Notification) error {
	l.log.InfoContext(ctx, n.Title,
		"id", n.ID,
		"category", n.Category,
		"subtitle", n.Subtitle,
		"body", n.Body,
		"participant", n.ParticipantName,
		"actions", n.Actions)
	return nil
}
