package commands

import (
	"github.com/spf13/cobra"

	"github.com/dotcommander/ocn/internal/output"
	"github.com/dotcommander/ocn/internal/state"
)

// NewCleanupCmd removes records left behind by instances that died without
// cleaning up.
func NewCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove state records of dead OpenCode instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return cmdErr(err)
			}
			store := state.New(cfg.StateDir)
			removed, err := store.CleanupStale()
			if err != nil {
				return cmdErr(err)
			}

			type resp struct {
				StateDir string `json:"state_dir"`
				Removed  int    `json:"removed"`
			}
			return output.PrintWith(output.To(cmd.OutOrStdout()), output.Success(resp{StateDir: store.Dir(), Removed: removed}))
		},
	}
}
