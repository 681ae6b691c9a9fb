package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/core/domain"
)

func (c *CLI) newTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List the tasks of a profile with their dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := c.runOptions(domain.ProfileProduction)
			if err != nil {
				return err
			}
			return c.app.Tasks(cmd.Context(), app.TasksOptions{
				ConfigPath: opts.ConfigPath,
				Profile:    opts.Profile,
			})
		},
	}
}
