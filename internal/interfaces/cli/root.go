// Package cli defines the macroconf command tree: the root command with the
// global configuration and logging flags, the generate command running the
// conformer search, and version.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/macroconf/internal/config"
	"github.com/turtacn/macroconf/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the global flags.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// appContext carries the initialized dependencies into subcommands.
type appContext struct {
	cfg *config.Config
	log logging.Logger
}

// NewRootCommand builds the macroconf command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	app := &appContext{}

	cmd := &cobra.Command{
		Use:   "macroconf",
		Short: "Macrocycle conformer ensemble generator",
		Long: "macroconf generates diverse low-energy 3D conformer ensembles for\n" +
			"macrocyclic molecules: candidates are embedded under ring-closure and\n" +
			"stereo constraints, relaxed with a molecular-mechanics force field, and\n" +
			"filtered by pairwise ring RMSD and an energy window.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initApp(cmd, opts, app)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file (default: environment + built-in defaults)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format: console or json")

	cmd.AddCommand(newGenerateCommand(app))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

// initApp loads configuration and builds the logger before any subcommand
// runs.
func initApp(cmd *cobra.Command, opts *rootOptions, app *appContext) error {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}

	log, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}

	app.cfg = cfg
	app.log = log
	return nil
}

// Execute runs the command tree and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
