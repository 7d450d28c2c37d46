package commands

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotcommander/ocn/internal/app"
	"github.com/dotcommander/ocn/internal/commands/hookcmd"
	"github.com/dotcommander/ocn/internal/output"
)

// Execute runs the CLI application.
func Execute(version string) error {
	level := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	root := newRootCmd(version, level)
	err := root.Execute()
	if err != nil {
		var pe printedError
		if !errors.As(err, &pe) {
			slog.Error("command failed", "error", err.Error())
		}
	}
	return err
}

func newRootCmd(version string, level *slog.LevelVar) *cobra.Command {
	root := &cobra.Command{
		Use:           "ocn",
		Short:         "Status tracking and notifications for OpenCode instances",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if showVersion {
				type resp struct {
					Version string `json:"version"`
				}
				return output.PrintWith(output.To(cmd.OutOrStdout()), output.Success(resp{Version: version}))
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug || envTrue("OCN_DEBUG") {
				level.Set(slog.LevelDebug)
			}

			if err := app.EnsureConfigDir(); err != nil {
				// Not fatal: monitors still report status without a config dir.
				slog.Warn("ensure config dir failed", "error", err)
			}

			configPath, _ := cmd.Flags().GetString("config")
			stateDir, _ := cmd.Flags().GetString("state-dir")
			app.SetConfigPathOverride(configPath)
			app.SetStateDirOverride(stateDir)
			app.ResetSettings()

			return nil
		},
	}

	root.PersistentFlags().String("config", "", "Config file (default: $OCN_CONFIG, then ~/.config/ocn/config.yaml)")
	root.PersistentFlags().String("state-dir", "", "Override state directory (default: $OCN_STATE_DIR, then config)")
	root.PersistentFlags().Bool("debug", false, "Enable debug logging (also $OCN_DEBUG=1)")
	root.Flags().BoolP("version", "v", false, "version for ocn")

	root.AddCommand(NewPluginCmd())
	root.AddCommand(NewStreamCmd())
	root.AddCommand(NewStatusCmd())
	root.AddCommand(NewCleanupCmd())
	root.AddCommand(NewHistoryCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(NewDoctorCmd())
	root.AddCommand(hookcmd.NewHookCmd())

	return root
}

func envTrue(key string) bool {
	v := os.Getenv(key)
	return v == "1" || v == "true"
}

// loadConfig returns the effective configuration. An unusable config file is
// logged and replaced by defaults; callers decide whether that is fatal.
func loadConfig() (app.Config, error) {
	cfg, err := app.LoadSettings()
	if err != nil {
		slog.Warn("config rejected, using defaults", "error", err)
	}
	return cfg, err
}
