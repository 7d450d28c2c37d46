package commands

import (
	"github.com/spf13/cobra"

	"github.com/dotcommander/ocn/internal/app"
	"github.com/dotcommander/ocn/internal/output"
)

// NewConfigCmd prints the effective configuration and where it came from.
func NewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long:  "Prints the merged configuration after defaults, config file and overrides. Fails if the config file is invalid.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadSettings()
			if err != nil {
				return cmdErr(err)
			}

			type resp struct {
				Source string     `json:"source"`
				Config app.Config `json:"config"`
			}
			source := app.SettingsSource()
			if source == "" {
				source = "defaults"
			}
			return output.PrintWith(output.To(cmd.OutOrStdout()), output.Success(resp{Source: source, Config: cfg}))
		},
	}
}
