package notify

import (
	"context"
	"io"
	"os"
)

// Bell rings the terminal bell.
type Bell struct {
	w io.Writer
}

// NewBell returns a Bell writing to w.
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

// Name implements Notifier.
func (b *Bell) Name() string { return "bell" }

// Notify writes a BEL character.
func (b *Bell) Notify(_ context.Context, _ NotificationEvent) error {
	_, err := b.w.Write([]byte{'\a'})
	return err
}

// Terminal returns the controlling terminal for writing, or stderr when there
// is none. The plugin bridge owns stdin and stdout, so the bell cannot go there.
// closeFn releases the terminal; it is a no-op for stderr.
func Terminal() (w io.Writer, closeFn func() error) {
	return openTerminal("/dev/tty")
}

func openTerminal(path string) (io.Writer, func() error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0) //nolint:gosec // G304: fixed device path
	if err != nil {
		return os.Stderr, func() error { return nil }
	}
	return f, f.Close
}
