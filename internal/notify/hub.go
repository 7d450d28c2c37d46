package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dotcommander/ocn/internal/models"
)

// DefaultTimeout bounds a single notifier call.
const DefaultTimeout = 5 * time.Second

// HubConfig holds the gating flags and timing for a Hub.
type HubConfig struct {
	OnIdle   bool
	OnPrompt bool
	OnError  bool
	// Debounce is the minimum gap between two dispatched notifications,
	// shared across all statuses. Zero disables debouncing.
	Debounce time.Duration
	// Timeout bounds each notifier call. Zero disables the bound.
	Timeout time.Duration
}

// Hub decides whether a DomainEvent becomes a notification and dispatches it
// to every configured Notifier. It is owned by one event stream and is not
// safe for concurrent Notify calls.
type Hub struct {
	cfg       HubConfig
	notifiers []Notifier
	now       func() time.Time
	log       *slog.Logger

	// lastNotified is zero at construction so the first event always passes.
	lastNotified time.Time
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithClock overrides the clock used for debouncing.
func WithClock(now func() time.Time) HubOption {
	return func(h *Hub) { h.now = now }
}

// WithLogger sets the logger for drop reasons and notifier failures.
func WithLogger(l *slog.Logger) HubOption {
	return func(h *Hub) { h.log = l }
}

// NewHub returns a Hub dispatching to notifiers. The slice is copied.
func NewHub(cfg HubConfig, notifiers []Notifier, opts ...HubOption) *Hub {
	h := &Hub{
		cfg:       cfg,
		notifiers: append([]Notifier(nil), notifiers...),
		now:       time.Now,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Notifiers returns the configured notifier names.
func (h *Hub) Notifiers() []string {
	names := make([]string, 0, len(h.notifiers))
	for _, n := range h.notifiers {
		names = append(names, n.Name())
	}
	return names
}

// Notify runs ev through the pipeline: busy and sub-task events are dropped,
// the event is translated and checked against its enable flag, then the
// shared debounce window is applied. An accepted event is delivered to all
// notifiers concurrently and Notify returns once every call has settled.
// Notifier failures are logged, never returned.
func (h *Hub) Notify(ctx context.Context, ev models.DomainEvent) {
	if ev.Status == models.StatusBusy {
		return
	}
	if ev.IsSubtask {
		h.log.Debug("notification dropped", "reason", "subtask", "session", ev.SessionID)
		return
	}

	n, ok := toNotification(ev, h.cfg)
	if !ok {
		h.log.Debug("notification dropped", "reason", "disabled", "status", ev.Status)
		return
	}

	now := h.now()
	if !h.lastNotified.IsZero() && now.Sub(h.lastNotified) < h.cfg.Debounce {
		h.log.Debug("notification dropped", "reason", "debounce", "status", ev.Status)
		return
	}
	h.lastNotified = now

	h.dispatch(ctx, n)
}

func (h *Hub) dispatch(ctx context.Context, n NotificationEvent) {
	var g errgroup.Group
	for _, notifier := range h.notifiers {
		notifier := notifier
		g.Go(func() error {
			if err := h.call(ctx, notifier, n); err != nil {
				h.log.Warn("notifier failed", "notifier", notifier.Name(), "type", n.Type, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (h *Hub) call(ctx context.Context, notifier Notifier, n NotificationEvent) (err error) {
	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panicked: %v", r)
		}
	}()
	return notifier.Notify(ctx, n)
}
