package notify

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external command. Exec-based notifiers go through it so
// tests can record invocations instead of spawning processes.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with os/exec. The context deadline kills the child.
type ExecRunner struct{}

// Run executes name with args, discarding stdout. Stderr is captured (capped)
// into the returned error.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context expired before exec: %w", err)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // G204: name is one of the fixed notifier binaries
	stderrW := &limitedWriter{maxBytes: 1024}
	cmd.Stderr = stderrW

	if err := cmd.Run(); err != nil {
		stderrMsg := strings.TrimSpace(stderrW.buf.String())
		if stderrW.buf.Len() >= stderrW.maxBytes {
			stderrMsg += " (truncated)"
		}
		return fmt.Errorf("%s failed: %w (stderr: %s)", name, err, stderrMsg)
	}
	return nil
}

// limitedWriter caps writes at maxBytes, silently discarding overflow.
type limitedWriter struct {
	buf      bytes.Buffer
	maxBytes int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	originalLen := len(p)
	remaining := w.maxBytes - w.buf.Len()
	if remaining <= 0 {
		return originalLen, nil
	}
	if len(p) > remaining {
		p = p[:remaining]
	}
	w.buf.Write(p)
	return originalLen, nil
}
