package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/core/domain"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build [task]",
		Short: "Run the production pipeline, or a single task and its dependencies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.runOptions(domain.ProfileProduction)
			if err != nil {
				return err
			}
			var task string
			if len(args) == 1 {
				task = args[0]
			}
			return c.app.Build(cmd.Context(), task, opts)
		},
	}
}
