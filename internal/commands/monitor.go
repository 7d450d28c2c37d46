package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dotcommander/ocn/internal/adapter"
	"github.com/dotcommander/ocn/internal/app"
	"github.com/dotcommander/ocn/internal/journal"
	"github.com/dotcommander/ocn/internal/models"
	"github.com/dotcommander/ocn/internal/monitor"
	"github.com/dotcommander/ocn/internal/notify"
	"github.com/dotcommander/ocn/internal/source"
	"github.com/dotcommander/ocn/internal/state"
)

// shutdownTimeout bounds cleanup (state removal, tmux badge) after the
// source stops.
const shutdownTimeout = 3 * time.Second

const unknownProject = "unknown"

// monitorFlags are shared by every command that runs a monitor.
type monitorFlags struct {
	pid       int
	directory string
	project   string
}

func (f *monitorFlags) flagSet(defaultPID int, pidUsage string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("monitor", pflag.ContinueOnError)
	fs.IntVar(&f.pid, "pid", defaultPID, pidUsage)
	fs.StringVar(&f.directory, "directory", "", "Project directory (default: current directory)")
	fs.StringVar(&f.project, "project", "", "Project name (default: directory base name)")
	return fs
}

// context resolves the flags into the adapter context for src.
func (f *monitorFlags) context(src models.Source) (adapter.Context, error) {
	dir := f.directory
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return adapter.Context{}, err
		}
		dir = wd
	}
	project := f.project
	if project == "" {
		project = projectName(dir)
	}
	if f.pid <= 0 {
		return adapter.Context{}, errors.New("--pid must be a positive process id")
	}
	return adapter.Context{Directory: dir, ProjectName: project, PID: f.pid, Source: src}, nil
}

// projectName is the last path element of dir, or "unknown".
func projectName(dir string) string {
	base := filepath.Base(filepath.Clean(dir))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return unknownProject
	}
	return base
}

// runMonitor wires a monitor to src and blocks until src finishes or the
// process is interrupted. Event-processing failures never end the command.
func runMonitor(cmd *cobra.Command, src source.Source, mctx adapter.Context) error {
	cfg, _ := loadConfig()
	log := slog.Default().With("source", src.Name())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	term, closeTerm := notify.Terminal()
	defer func() { _ = closeTerm() }()
	notifiers := notify.BuildNotifiers(cfg.Notify, notify.ExecRunner{}, term)
	hub := notify.NewHub(notify.HubConfigFrom(cfg), notifiers, notify.WithLogger(log))

	opts := monitor.Options{
		InstanceID: strconv.Itoa(mctx.PID),
		Context:    mctx,
		Store:      state.New(cfg.StateDir, state.WithLogger(log)),
		Hub:        hub,
		Retention:  cfg.Retention(),
		Logger:     log,
	}
	if j := openJournal(ctx, cfg, log); j != nil {
		defer func() { _ = j.Close() }()
		opts.Journal = j
	}

	m, err := monitor.New(opts)
	if err != nil {
		return cmdErr(err)
	}
	log.Debug("notifiers enabled", "notifiers", hub.Notifiers(), "config", app.SettingsSource())

	m.Start(ctx)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		m.Close(closeCtx)
		log.Info("stopped", "instance", opts.InstanceID)
	}()

	if err := src.Run(ctx, m.Handle); err != nil {
		return cmdErr(err)
	}
	return nil
}

// openJournal opens the history database when enabled. Failure disables
// history for this run.
func openJournal(ctx context.Context, cfg app.Config, log *slog.Logger) *journal.Journal {
	if !cfg.History.Enabled {
		return nil
	}
	j, err := journal.Open(ctx, cfg.History.Path)
	if err != nil {
		log.Warn("history disabled", "path", cfg.History.Path, "error", err)
		return nil
	}
	return j
}
