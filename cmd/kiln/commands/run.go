package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/core/domain"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [tasks...]",
		Short: "Run specified tasks",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			opts, err := c.runOptions(domain.ProfileProduction)
			if err != nil {
				return err
			}
			opts.NoDeps, _ = cmd.Flags().GetBool(flagNoDeps)
			return c.app.Run(cmd.Context(), args, opts)
		},
	}
	cmd.Flags().Bool(flagNoDeps, false, "Run only the named tasks, without their dependencies")
	return cmd
}
