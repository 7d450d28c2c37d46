package commands

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/dotcommander/ocn/internal/app"
	"github.com/dotcommander/ocn/internal/commands/hookcmd"
	"github.com/dotcommander/ocn/internal/journal"
	"github.com/dotcommander/ocn/internal/notify"
	"github.com/dotcommander/ocn/internal/output"
)

type notifierCheck struct {
	Name   string `json:"name"`
	Binary string `json:"binary,omitempty"`
	Found  bool   `json:"found"`
}

// NewDoctorCmd checks configuration, storage and notifier prerequisites.
func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, state directory, history and notifiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgErr := app.LoadSettings()

			type resp struct {
				ConfigSource  string          `json:"config_source"`
				ConfigErr     string          `json:"config_error,omitempty"`
				StateDir      string          `json:"state_dir"`
				StateDirOK    bool            `json:"state_dir_ok"`
				StateDirErr   string          `json:"state_dir_error,omitempty"`
				HistoryPath   string          `json:"history_path,omitempty"`
				HistoryOK     bool            `json:"history_ok"`
				HistoryErr    string          `json:"history_error,omitempty"`
				SchemaVersion int64           `json:"schema_version,omitempty"`
				Notifiers     []notifierCheck `json:"notifiers"`
				PluginPath    string          `json:"plugin_path,omitempty"`
				PluginStatus  string          `json:"plugin_status"`
				Hint          string          `json:"hint,omitempty"`
			}
			r := resp{
				ConfigSource: app.SettingsSource(),
				StateDir:     cfg.StateDir,
				Notifiers:    checkNotifiers(cfg.Notify),
			}
			if r.ConfigSource == "" {
				r.ConfigSource = "defaults"
			}
			if cfgErr != nil {
				r.ConfigErr = cfgErr.Error()
			}

			if err := checkWritable(cfg.StateDir); err != nil {
				r.StateDirErr = err.Error()
			} else {
				r.StateDirOK = true
			}

			if cfg.History.Enabled {
				r.HistoryPath = cfg.History.Path
				j, err := journal.Open(cmd.Context(), cfg.History.Path)
				if err == nil {
					r.SchemaVersion, err = j.SchemaVersion()
					_ = j.Close()
				}
				if err != nil {
					r.HistoryErr = err.Error()
				} else {
					r.HistoryOK = true
				}
			}

			if path, err := hookcmd.PluginPath(); err == nil {
				r.PluginPath = path
				r.PluginStatus = hookcmd.PluginStatus(path)
			} else {
				r.PluginStatus = "missing"
			}

			switch {
			case !r.StateDirOK:
				r.Hint = "Set state_dir or --state-dir to a writable location."
			case r.PluginStatus != "current":
				r.Hint = "Run 'ocn hook install' and restart OpenCode."
			}

			return output.PrintWith(output.To(cmd.OutOrStdout()), output.Success(r))
		},
	}
}

func checkNotifiers(cfg app.NotifyConfig) []notifierCheck {
	notifiers := notify.BuildNotifiers(cfg, notify.ExecRunner{}, io.Discard)
	checks := make([]notifierCheck, 0, len(notifiers))
	for _, n := range notifiers {
		c := notifierCheck{Name: n.Name(), Found: true}
		if e, ok := n.(notify.Executable); ok {
			c.Binary = e.Binary()
			_, err := exec.LookPath(c.Binary)
			c.Found = err == nil
		}
		checks = append(checks, c)
	}
	return checks
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	f, err := os.CreateTemp(dir, ".doctor-*.tmp")
	if err != nil {
		return fmt.Errorf("state dir not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
