package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dotcommander/ocn/internal/models"
	"github.com/dotcommander/ocn/internal/source"
)

// NewPluginCmd runs a monitor fed by JSON lines on stdin, as written by the
// OpenCode bridge plugin.
func NewPluginCmd() *cobra.Command {
	var flags monitorFlags

	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Track an OpenCode instance from events on stdin",
		Long: "Reads one JSON event per line from stdin and keeps the instance state file, " +
			"history and notifications up to date. Exits on EOF, SIGINT or SIGTERM.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mctx, err := flags.context(models.SourcePlugin)
			if err != nil {
				return cmdErr(err)
			}
			src := &source.Plugin{Reader: cmd.InOrStdin()}
			return runMonitor(cmd, src, mctx)
		},
	}
	cmd.Flags().AddFlagSet(flags.flagSet(os.Getppid(), "OpenCode process id (default: parent process)"))

	return cmd
}
