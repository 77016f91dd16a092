/*
PURPOSE:
  Defines the 'algorithms' subcommand.
  Lists the supported optimizers with a description and the settings a fit
  would use after config and environment overrides.

REQUIREMENTS:
  User-specified:
  - List available algorithms.

  Implementation-discovered:
  - Useful validation step before a long comparison run: shows exactly
    which tolerances and budgets are in effect.

ARCHITECTURE INTEGRATION:
  - Calls: engine.Algorithms(), engine.ParseAlgorithm()
  - Uses: appCfg.Algorithms

ERROR HANDLING:
  - Unknown algorithm names return model.ErrUnknownAlgorithm.

IMPLEMENTATION RULES:
  - Simple output to stdout. Settings are printed as YAML so they can be
    pasted into a config file.

USAGE:
  curve-fitter algorithms
  curve-fitter algorithms lsq

RELATED FILES:
  - internal/engine/algorithms.go
  - internal/config/algorithms.go
*/

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/daryltucker/curve-fitter/internal/config"
	"github.com/daryltucker/curve-fitter/internal/engine"
)

var algorithmsCmd = &cobra.Command{
	Use:   "algorithms [NAME...]",
	Short: "List optimizers and their effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		algos := engine.Algorithms()
		if len(args) > 0 {
			var err error
			if algos, err = selectAlgorithms(args, false); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		for i, a := range algos {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%s\n  %s\n", a, a.Description())

			settings, err := yaml.Marshal(section(a, appCfg.Algorithms))
			if err != nil {
				return err
			}
			for _, line := range strings.Split(strings.TrimRight(string(settings), "\n"), "\n") {
				fmt.Fprintf(out, "    %s\n", line)
			}
		}
		return nil
	},
}

// section returns the config block that tunes a.
func section(a engine.Algorithm, o config.Algorithms) any {
	switch a {
	case engine.DifferentialEvolution:
		return o.DifferentialEvolution
	case engine.BasinHopping:
		return o.BasinHopping
	case engine.SHGO:
		return o.SHGO
	case engine.DualAnnealing:
		return o.DualAnnealing
	case engine.LeastSquares:
		return o.LeastSquares
	}
	return nil
}

func init() {
	rootCmd.AddCommand(algorithmsCmd)
}
