/*
PURPOSE:
  Defines the root Cobra command for the curve-fitter CLI.
  Handles global flags, config loading and logger setup.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config.

  Implementation-discovered:
  - Needs to expose an Execute() function for main.go.
  - Config is loaded once in PersistentPreRunE so every subcommand sees the
    same file, environment overrides and logger settings.
  - Ctrl-C cancels the command context; long fits stop at the next check.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/curve-fitter/main.go
  - Calls: Child commands (fit, generate, functions, algorithms)
  - Modifies: output.Logger, appCfg.

ERROR HANDLING:
  - Returns error to main.go for exit code handling.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Keep Run logic in subcommands, Root is usually empty or helps.

USAGE:
  Called by main.go.

SELF-HEALING INSTRUCTIONS:
  - If adding new global flags, add them to init().

RELATED FILES:
  - cmd/curve-fitter/main.go
  - internal/cli/session.go

MAINTENANCE:
  - Update when adding global configuration options.
*/

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daryltucker/curve-fitter/internal/config"
	"github.com/daryltucker/curve-fitter/internal/output"
)

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile   string
	logLevel  string
	logFormat string

	// appCfg is the configuration loaded for the running command.
	appCfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "curve-fitter",
		Short: "Fit parametric models to 2-D data with global and local optimizers",
		Long: `curve-fitter fits built-in or user-defined models to x/y data using
Differential Evolution, Basin Hopping, SHGO, Dual Annealing or Least Squares,
and reports R², RMSE and MAE for every fit. Use 'fit --help' for options.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if logFormat != "" {
				cfg.LogFormat = logFormat
			}
			if err := output.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
				return err
			}
			appCfg = cfg
			return nil
		},
	}
)

// Execute executes the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./curvefit.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
}
