package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dotcommander/ocn/internal/models"
	"github.com/dotcommander/ocn/internal/source"
)

// NewStreamCmd runs a monitor fed by an OpenCode server's event stream.
func NewStreamCmd() *cobra.Command {
	var (
		flags monitorFlags
		url   string
	)

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Track an OpenCode server through its /event stream",
		Long: "Subscribes to the server-sent event stream of a running OpenCode server and " +
			"reconnects with backoff when it drops. Exits on SIGINT or SIGTERM.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mctx, err := flags.context(models.SourceStream)
			if err != nil {
				return cmdErr(err)
			}
			if url == "" {
				cfg, _ := loadConfig()
				url = cfg.Stream.URL
			}
			src := &source.Stream{URL: url}
			return runMonitor(cmd, src, mctx)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "OpenCode server URL (default: stream.url from config)")
	cmd.Flags().AddFlagSet(flags.flagSet(os.Getpid(), "Process id owning the state record (default: this process)"))

	return cmd
}
