// Package notify gates, debounces and fans out status changes to
// notification channels such as desktop banners, the terminal bell and a
// tmux pane badge.
package notify

import (
	"context"
	"time"

	"github.com/dotcommander/ocn/internal/models"
)

// NotificationEvent is what a Notifier delivers. Type is idle, prompting or error.
type NotificationEvent struct {
	Type      models.Status `json:"type"`
	Project   string        `json:"project"`
	Directory string        `json:"directory"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
}

// Notifier delivers a NotificationEvent to one channel. Errors are logged by
// the Hub and otherwise ignored.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, ev NotificationEvent) error
}

// Messages shown to the user.
const (
	msgCompleted = "Session completed"
	msgPrompting = "Needs input"
	msgErrored   = "Session errored"
)

// toNotification translates a DomainEvent and applies the per-status enable
// flags. ok is false for busy events and disabled statuses.
func toNotification(ev models.DomainEvent, cfg HubConfig) (NotificationEvent, bool) {
	n := NotificationEvent{
		Type:      ev.Status,
		Project:   ev.Project,
		Directory: ev.Directory,
		Timestamp: ev.Timestamp,
	}

	switch ev.Status {
	case models.StatusIdle:
		if !cfg.OnIdle {
			return NotificationEvent{}, false
		}
		n.Message = msgCompleted
	case models.StatusPrompting:
		if !cfg.OnPrompt {
			return NotificationEvent{}, false
		}
		n.Message = withDetail(msgPrompting, ev.PermissionTitle)
	case models.StatusError:
		if !cfg.OnError {
			return NotificationEvent{}, false
		}
		n.Message = withDetail(msgErrored, ev.ErrorMessage)
	default:
		return NotificationEvent{}, false
	}
	return n, true
}

func withDetail(base, detail string) string {
	if detail == "" {
		return base
	}
	return base + ": " + detail
}
