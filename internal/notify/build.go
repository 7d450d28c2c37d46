package notify

import (
	"context"
	"io"
	"os"

	"github.com/dotcommander/ocn/internal/app"
)

// Clearer is implemented by notifiers that leave visible state behind, such
// as the tmux pane badge, and can remove it when the instance goes away.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Executable is implemented by notifiers that shell out, so callers can
// check the binary is installed.
type Executable interface {
	Binary() string
}

// HubConfigFrom derives hub gating and timing from the loaded configuration.
func HubConfigFrom(cfg app.Config) HubConfig {
	return HubConfig{
		OnIdle:   cfg.Notify.Desktop.OnIdle,
		OnPrompt: cfg.Notify.Desktop.OnPrompt,
		OnError:  cfg.Notify.Desktop.OnError,
		Debounce: cfg.Debounce(),
		Timeout:  cfg.NotifyTimeout(),
	}
}

// BuildNotifiers returns the enabled notifiers in a fixed order: desktop,
// bell, tmux pane. term receives the bell; the tmux badge targets $TMUX_PANE.
func BuildNotifiers(cfg app.NotifyConfig, runner Runner, term io.Writer) []Notifier {
	var out []Notifier
	if cfg.Desktop.Enabled {
		out = append(out, NewDesktop(runner))
	}
	if cfg.Bell.Enabled {
		out = append(out, NewBell(term))
	}
	if cfg.TmuxPane.Enabled {
		out = append(out, NewTmuxPane(runner, os.Getenv("TMUX_PANE")))
	}
	return out
}

// Clear asks every notifier implementing Clearer to remove its state.
// Failures are logged.
func (h *Hub) Clear(ctx context.Context) {
	for _, n := range h.notifiers {
		c, ok := n.(Clearer)
		if !ok {
			continue
		}
		if err := c.Clear(ctx); err != nil {
			h.log.Debug("notifier clear failed", "notifier", n.Name(), "error", err)
		}
	}
}
