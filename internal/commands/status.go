package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dotcommander/ocn/internal/models"
	"github.com/dotcommander/ocn/internal/output"
	"github.com/dotcommander/ocn/internal/state"
	"github.com/dotcommander/ocn/internal/status"
	"github.com/dotcommander/ocn/internal/watch"
)

const (
	formatJSON = "json"
	formatTmux = "tmux"
)

// NewStatusCmd prints an aggregate of every live instance.
func NewStatusCmd() *cobra.Command {
	var (
		format  string
		theme   string
		watchIt bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize the status of running OpenCode instances",
		Long: "Reads the instance state directory and prints a JSON summary, or a tmux " +
			"status-line segment with --format tmux. Records of dead processes are ignored.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatJSON && format != formatTmux {
				return cmdErr(fmt.Errorf("unknown format %q (supported: %s, %s)", format, formatJSON, formatTmux))
			}
			cfg, _ := loadConfig()
			if theme == "" {
				theme = cfg.Theme
			}

			r := statusRenderer{
				store:  state.New(cfg.StateDir),
				alive:  state.ProcessAlive,
				format: format,
				theme:  theme,
				out:    cmd.OutOrStdout(),
			}
			if !watchIt {
				return cmdErr(r.render())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cmdErr(r.watch(ctx))
		},
	}
	cmd.Flags().StringVar(&format, "format", formatJSON, "Output format: json or tmux")
	cmd.Flags().StringVar(&theme, "theme", "", fmt.Sprintf("tmux colour theme %v (default: theme from config)", status.ThemeNames()))
	cmd.Flags().BoolVar(&watchIt, "watch", false, "Re-print whenever the state directory changes")

	return cmd
}

type statusRenderer struct {
	store  *state.Store
	alive  func(pid int) bool
	format string
	theme  string
	out    io.Writer
}

func (r statusRenderer) live() ([]models.InstanceState, error) {
	states, err := r.store.ReadAll()
	if err != nil {
		return nil, err
	}
	live := states[:0]
	for _, st := range states {
		if r.alive(st.PID) {
			live = append(live, st)
		}
	}
	return live, nil
}

func (r statusRenderer) render() error {
	states, err := r.live()
	if err != nil {
		return err
	}
	if r.format == formatTmux {
		_, err = fmt.Fprintln(r.out, status.RenderTmux(states, r.theme))
		return err
	}
	return output.PrintWith(output.To(r.out), output.Success(status.Summarize(states)))
}

// watch renders once, then again after every debounced change until ctx ends.
func (r statusRenderer) watch(ctx context.Context) error {
	w, err := watch.New(watch.Config{Dir: r.store.Dir()})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	changes, err := w.Start()
	if err != nil {
		return err
	}
	if err := r.render(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if err := r.render(); err != nil {
				return err
			}
		}
	}
}
