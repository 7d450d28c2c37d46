package commands

import (
	"github.com/spf13/cobra"

	"github.com/dotcommander/ocn/internal/journal"
	"github.com/dotcommander/ocn/internal/models"
	"github.com/dotcommander/ocn/internal/output"
)

// NewHistoryCmd lists recorded status transitions, newest first.
func NewHistoryCmd() *cobra.Command {
	var (
		instance string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded status transitions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return cmdErr(err)
			}

			j, err := journal.Open(cmd.Context(), cfg.History.Path)
			if err != nil {
				return cmdErr(err)
			}
			defer func() { _ = j.Close() }()

			transitions, err := j.List(cmd.Context(), journal.ListParams{InstanceID: instance, Limit: limit})
			if err != nil {
				return cmdErr(err)
			}

			type resp struct {
				Path        string              `json:"path"`
				Transitions []models.Transition `json:"transitions"`
			}
			return output.PrintWith(output.To(cmd.OutOrStdout()), output.Success(resp{Path: j.Path(), Transitions: transitions}))
		},
	}
	cmd.Flags().StringVar(&instance, "instance", "", "Only show transitions of this instance id")
	cmd.Flags().IntVar(&limit, "limit", journal.DefaultListLimit, "Maximum number of rows")

	return cmd
}
