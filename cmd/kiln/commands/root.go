// Package commands implements the CLI commands for the kiln asset pipeline.
package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.trai.ch/kiln/internal/adapters/detector"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/build"
	"go.trai.ch/kiln/internal/core/domain"
)

// EnvPrefix prefixes the environment variables bound to flags, e.g. KILN_PROFILE.
const EnvPrefix = "KILN"

// Flag names shared across commands.
const (
	flagConfig     = "config"
	flagProfile    = "profile"
	flagJobs       = "jobs"
	flagOutputMode = "output-mode"
	flagCI         = "ci"
	flagHost       = "host"
	flagPort       = "port"
	flagNoDeps     = "no-deps"
)

// CLI represents the command line interface for kiln.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
	v       *viper.Viper
}

// Application represents the application logic interface.
type Application interface {
	Build(ctx context.Context, task string, opts app.RunOptions) error
	Run(ctx context.Context, targets []string, opts app.RunOptions) error
	Dev(ctx context.Context, opts app.DevOptions) error
	Tasks(ctx context.Context, opts app.TasksOptions) error
	Clean(ctx context.Context, configPath string) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "kiln",
		Short:         "A task-graph build tool for front-end assets",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.StringP(flagConfig, "c", "", "Path to kiln.yaml (default: discovered from the working directory)")
	flags.StringP(flagProfile, "p", "", "Build profile: production or development")
	flags.IntP(flagJobs, "j", 0, "Maximum concurrent transforms (default: number of CPUs)")
	flags.StringP(flagOutputMode, "o", "auto", "Output mode: auto, tui, or linear")
	flags.Bool(flagCI, false, "Use linear output mode (shorthand for --output-mode=linear)")
	for _, name := range []string{flagConfig, flagProfile, flagJobs, flagOutputMode, flagCI} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
		v:       v,
	}

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newDevCmd())
	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newTasksCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// runOptions collects the persistent flags. fallback is the profile used when none is given.
func (c *CLI) runOptions(fallback domain.Profile) (app.RunOptions, error) {
	profile := fallback
	if name := c.v.GetString(flagProfile); name != "" {
		p, err := domain.ParseProfile(name)
		if err != nil {
			return app.RunOptions{}, err
		}
		profile = p
	}

	modeFlag := c.v.GetString(flagOutputMode)
	// --ci overrides output-mode to linear.
	if c.v.GetBool(flagCI) {
		modeFlag = "linear"
	}
	mode, err := detector.ParseMode(modeFlag)
	if err != nil {
		return app.RunOptions{}, err
	}

	return app.RunOptions{
		ConfigPath: c.v.GetString(flagConfig),
		Profile:    profile,
		Jobs:       c.v.GetInt(flagJobs),
		OutputMode: mode,
	}, nil
}
