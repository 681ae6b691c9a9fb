package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
)

func (c *CLI) newDevCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Build the development pipeline, serve it with live reload, and rebuild on change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Dev(cmd.Context(), app.DevOptions{
				ConfigPath: c.v.GetString(flagConfig),
				Jobs:       c.v.GetInt(flagJobs),
				Host:       c.v.GetString(flagHost),
				Port:       c.v.GetInt(flagPort),
			})
		},
	}
	cmd.Flags().String(flagHost, "", "Dev server host (default: from kiln.yaml or localhost)")
	cmd.Flags().Int(flagPort, 0, "Dev server port (default: from kiln.yaml or 3000)")
	_ = c.v.BindPFlag(flagHost, cmd.Flags().Lookup(flagHost))
	_ = c.v.BindPFlag(flagPort, cmd.Flags().Lookup(flagPort))
	return cmd
}
