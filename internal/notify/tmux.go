package notify

import (
	"context"
	"fmt"

	"github.com/dotcommander/ocn/internal/models"
)

// PaneOption is the tmux user option holding the pane badge.
const PaneOption = "@ocn_pane_status"

const badgeBackground = "#1a1b26"

type badgeLabel struct {
	text  string
	color string
}

var badgeLabels = map[models.Status]badgeLabel{ //nolint:gochecknoglobals // read-only label table
	models.StatusIdle:      {text: "IDLE", color: "#9ece6a"},
	models.StatusPrompting: {text: "WAIT", color: "#f7768e"},
	models.StatusError:     {text: "ERR", color: "#f7768e"},
}

// TmuxPane sets a status badge on the tmux pane the instance runs in.
type TmuxPane struct {
	runner Runner
	pane   string
}

// NewTmuxPane returns a TmuxPane notifier. pane is a tmux target such as the
// value of $TMUX_PANE; empty targets the current pane.
func NewTmuxPane(runner Runner, pane string) *TmuxPane {
	return &TmuxPane{runner: runner, pane: pane}
}

// Name implements Notifier.
func (t *TmuxPane) Name() string { return "tmux_pane" }

// Binary is the executable Notify and Clear run.
func (t *TmuxPane) Binary() string { return "tmux" }

// Notify sets the pane badge for ev.Type.
func (t *TmuxPane) Notify(ctx context.Context, ev NotificationEvent) error {
	badge, ok := Badge(ev.Type)
	if !ok {
		return fmt.Errorf("no pane badge for status %q", ev.Type)
	}
	return t.runner.Run(ctx, t.Binary(), t.args(badge)...)
}

// Clear unsets the pane badge.
func (t *TmuxPane) Clear(ctx context.Context) error {
	args := []string{"set-option", "-p", "-u"}
	if t.pane != "" {
		args = append(args, "-t", t.pane)
	}
	args = append(args, PaneOption)
	return t.runner.Run(ctx, t.Binary(), args...)
}

func (t *TmuxPane) args(badge string) []string {
	args := []string{"set-option", "-p"}
	if t.pane != "" {
		args = append(args, "-t", t.pane)
	}
	return append(args, PaneOption, badge)
}

// Badge renders the tmux format string for a status. Busy has no badge.
func Badge(status models.Status) (string, bool) {
	label, ok := badgeLabels[status]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("#[fg=%s,bg=%s,bold] %s #[fg=%s,bg=%s]",
		badgeBackground, label.color, label.text, label.color, badgeBackground), true
}
