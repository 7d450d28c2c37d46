package notify

import (
	"context"
	"fmt"
	"runtime"
	"strings"
)

const desktopTitle = "opencode"

// Desktop shows a desktop banner: osascript on macOS, notify-send elsewhere.
type Desktop struct {
	runner Runner
	goos   string
}

// NewDesktop returns a Desktop notifier for the running platform.
func NewDesktop(runner Runner) *Desktop {
	return &Desktop{runner: runner, goos: runtime.GOOS}
}

// Name implements Notifier.
func (d *Desktop) Name() string { return "desktop" }

// Binary is the executable Notify runs on this platform.
func (d *Desktop) Binary() string {
	if d.goos == "darwin" {
		return "osascript"
	}
	return "notify-send"
}

// Notify shows ev.Message with the project as subtitle.
func (d *Desktop) Notify(ctx context.Context, ev NotificationEvent) error {
	if d.goos == "darwin" {
		return d.runner.Run(ctx, d.Binary(), "-e", appleScript(ev))
	}

	summary := desktopTitle
	if ev.Project != "" {
		summary = fmt.Sprintf("%s (%s)", desktopTitle, ev.Project)
	}
	return d.runner.Run(ctx, d.Binary(), "--app-name=ocn", summary, ev.Message)
}

func appleScript(ev NotificationEvent) string {
	return fmt.Sprintf(`display notification "%s" with title "%s" subtitle "%s"`,
		escapeAppleScript(ev.Message), escapeAppleScript(desktopTitle), escapeAppleScript(ev.Project))
}

var appleScriptEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`) //nolint:gochecknoglobals // stateless replacer

func escapeAppleScript(s string) string {
	return appleScriptEscaper.Replace(s)
}
