/*
PURPOSE:
  Defines the 'fit' subcommand.
  Fits one model with one optimizer, or compares several optimizers on the
  same data, and reports parameters and fit quality.

REQUIREMENTS:
  User-specified:
  - Fit loaded (CSV) or synthetic data.
  - Select the algorithm and override its bounds / initial guess.
  - Report R², RMSE, MAE and, for synthetic data, the error against the
    true parameters.

  Implementation-discovered:
  - Need to load config first.
  - Apply flag overrides to config, then validate again.
  - Results are saved to CSV and JSON Lines like every other run artifact.

ARCHITECTURE INTEGRATION:
  - Calls: engine.Dispatcher.Fit / Compare, report.Compute
  - Uses: internal/config, internal/dataset, internal/output

ERROR HANDLING:
  - A single-algorithm failure is returned (exit code 1).
  - In comparisons a failing algorithm is reported and recorded, the rest
    still run.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Logic: Load Config -> Override -> Data -> Dispatch -> Report -> Save.

USAGE:
  curve-fitter fit -f "Power Law" -a "Least Squares"
  curve-fitter fit -f Quadratic --data points.csv --all

SELF-HEALING INSTRUCTIONS:
  - Check flag names match Config struct fields generally.

RELATED FILES:
  - internal/cli/root.go
  - internal/engine/dispatcher.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/daryltucker/curve-fitter/internal/config"
	"github.com/daryltucker/curve-fitter/internal/engine"
	"github.com/daryltucker/curve-fitter/internal/model"
	"github.com/daryltucker/curve-fitter/internal/output"
	"github.com/daryltucker/curve-fitter/internal/report"
)

// Files written to the output directory by 'fit'.
const (
	resultsCSV  = "fit_results.csv"
	resultsJSON = "fit_results.jsonl"
	curveCSV    = "fitted_curve.csv"
)

var (
	fitFunction   string
	fitAlgorithms []string
	fitAll        bool
	fitData       string
	fitPoints     int
	fitNoise      float64
	fitSeed       int64
	fitBounds     string
	fitX0         string
	fitStrict     bool
	fitOutputDir  string
	fitNoSave     bool
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit a model to data",
	Long: `Fits a model to x/y data with one or more optimizers.

Data comes from a CSV file (--data, first two numeric columns) or is generated
from the model's true parameters with Gaussian noise. Bounds apply to
Differential Evolution, SHGO and Dual Annealing; the initial guess applies to
Basin Hopping and Least Squares. Lists shorter or longer than the model's
parameter count are padded (bounds 0:10, guess 1) or truncated with a
warning, or rejected with --strict.

Results are saved as fit_results.csv, fit_results.jsonl and fitted_curve.csv
in the output directory.`,
	Example: `  # Fit synthetic power-law data with Least Squares
  curve-fitter fit -f "Power Law" -a lsq

  # Compare every optimizer on a CSV file
  curve-fitter fit -f Quadratic --data points.csv --all -o ./results

  # Custom bounds for a global optimizer, reproducible run
  curve-fitter fit -f Exponential -a de --bounds 0:5,0:2,-1:3 --seed 42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *appCfg
		if err := applyFitOverrides(cmd, &cfg); err != nil {
			return err
		}

		algos, err := selectAlgorithms(fitAlgorithms, fitAll)
		if err != nil {
			return err
		}

		s, err := openSession(&cfg)
		if err != nil {
			return err
		}
		desc, fn, err := s.catalog.Lookup(fitFunction)
		if err != nil {
			return err
		}

		dm := s.datasets()
		source := "synthetic"
		if fitData != "" {
			if err := dm.LoadFile(fitData); err != nil {
				return err
			}
			source = fitData
		} else if _, _, _, err := dm.GenerateSynthetic(desc, fn, cfg.Synthetic.NumPoints, cfg.Synthetic.NoiseLevel); err != nil {
			return err
		}
		x, y := dm.Data()
		truth := dm.TrueParams()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Function: %s (%s)\n", desc.Name, desc.Equation)
		fmt.Fprintf(out, "Data: %d points (%s)\n", len(x), source)

		opts := cfg.Algorithms
		req := engine.Request{Function: desc.Name, X: x, Y: y, Options: &opts}

		var outcomes []engine.Outcome
		if len(algos) == 1 {
			req.Algorithm = string(algos[0])
			res, err := s.dispatcher.Fit(cmd.Context(), req)
			if err != nil {
				return err
			}
			outcomes = []engine.Outcome{{Algorithm: algos[0], Result: res}}
		} else {
			outcomes, err = s.dispatcher.Compare(cmd.Context(), req, algos, cfg.Workers)
			if err != nil {
				return err
			}
		}

		scored := make([]scoredOutcome, len(outcomes))
		for i, o := range outcomes {
			scored[i] = score(o, desc, fn, x, y, truth)
			printOutcome(out, scored[i])
		}
		if len(scored) > 1 {
			printComparison(out, scored)
		}

		if fitNoSave {
			return nil
		}
		return saveResults(cfg.OutputDir, desc, x, y, truth, scored)
	},
}

// scoredOutcome is an outcome plus its quality metrics.
type scoredOutcome struct {
	engine.Outcome
	Metrics *report.Metrics
}

func applyFitOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.SetSeed(fitSeed)
	}
	if flags.Changed("points") {
		cfg.Synthetic.NumPoints = fitPoints
	}
	if flags.Changed("noise") {
		cfg.Synthetic.NoiseLevel = fitNoise
	}
	if fitOutputDir != "" {
		cfg.OutputDir = fitOutputDir
	}
	if fitStrict {
		cfg.Algorithms.StrictLengths = true
	}

	if fitBounds != "" {
		bounds, err := engine.ParseBounds(fitBounds)
		if err != nil {
			return fmt.Errorf("--bounds: %w", err)
		}
		cfg.Algorithms.DifferentialEvolution.Bounds = bounds
		cfg.Algorithms.SHGO.Bounds = bounds
		cfg.Algorithms.DualAnnealing.Bounds = bounds
	}
	if fitX0 != "" {
		x0, err := engine.ParseFloats(fitX0)
		if err != nil {
			return fmt.Errorf("--x0: %w", err)
		}
		cfg.Algorithms.BasinHopping.X0 = x0
		cfg.Algorithms.LeastSquares.X0 = x0
	}
	return cfg.Validate()
}

// selectAlgorithms resolves the requested optimizers, every one when all is set.
func selectAlgorithms(names []string, all bool) ([]engine.Algorithm, error) {
	if all {
		return engine.Algorithms(), nil
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no algorithm selected", model.ErrUnknownAlgorithm)
	}

	seen := make(map[engine.Algorithm]bool)
	var algos []engine.Algorithm
	for _, name := range names {
		a, err := engine.ParseAlgorithm(name)
		if err != nil {
			return nil, err
		}
		if seen[a] {
			continue
		}
		seen[a] = true
		algos = append(algos, a)
	}
	return algos, nil
}

func score(o engine.Outcome, desc model.Descriptor, fn model.Func, x, y, truth []float64) scoredOutcome {
	s := scoredOutcome{Outcome: o}
	if o.Err != nil || o.Result == nil {
		return s
	}
	m, err := report.Compute(report.Input{
		Params:     o.Result.Params,
		TrueParams: truth,
		ParamNames: desc.ParamNames,
		X:          x,
		Y:          y,
		Eval:       fn,
	})
	if err != nil {
		output.Logger.Warn("Could not score fit", "algorithm", o.Algorithm, "error", err)
		return s
	}
	s.Metrics = m
	return s
}

func printOutcome(w io.Writer, s scoredOutcome) {
	fmt.Fprintf(w, "\n== %s ==\n", s.Algorithm)
	if s.Err != nil {
		fmt.Fprintf(w, "  failed: %v\n", s.Err)
		return
	}

	r := s.Result
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, v := range r.Params {
		line := fmt.Sprintf("  %s\t= %.6g", paramName(r.ParamNames, i), v)
		if s.Metrics != nil && i < len(s.Metrics.Differences) {
			d := s.Metrics.Differences[i]
			line += fmt.Sprintf("\t(true %.6g, diff %+.3g)", d.True, d.Diff)
		}
		fmt.Fprintln(tw, line)
	}
	tw.Flush()

	if s.Metrics != nil {
		fmt.Fprintf(w, "  R² = %.6f  RMSE = %.6g  MAE = %.6g  %s\n", s.Metrics.R2, s.Metrics.RMSE, s.Metrics.MAE, s.Metrics.Quality)
	}
	diag := r.Diagnostics
	fmt.Fprintf(w, "  success=%t iterations=%d evaluations=%d cost=%.6g time=%s\n",
		diag.Success, diag.Iterations, diag.FuncEvals, diag.Cost, r.Duration.Round(time.Millisecond))
	if diag.LocalMinima > 0 {
		fmt.Fprintf(w, "  local minima found: %d\n", diag.LocalMinima)
	}
	if diag.Message != "" {
		fmt.Fprintf(w, "  %s\n", diag.Message)
	}
}

func printComparison(w io.Writer, scored []scoredOutcome) {
	fmt.Fprintln(w, "\nComparison (best first):")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ALGORITHM\tCOST\tR²\tRMSE\tTIME")
	for _, s := range scored {
		if s.Err != nil {
			fmt.Fprintf(tw, "  %s\t-\t-\t-\tfailed\n", s.Algorithm)
			continue
		}
		r2, rmse := "-", "-"
		if s.Metrics != nil {
			r2 = fmt.Sprintf("%.6f", s.Metrics.R2)
			rmse = fmt.Sprintf("%.6g", s.Metrics.RMSE)
		}
		fmt.Fprintf(tw, "  %s\t%.6g\t%s\t%s\t%s\n", s.Algorithm, s.Result.Diagnostics.Cost, r2, rmse, s.Result.Duration.Round(time.Millisecond))
	}
	tw.Flush()
}

// saveResults writes the summary CSV, the JSON Lines records and the curve
// of the best successful fit.
func saveResults(dir string, desc model.Descriptor, x, y, truth []float64, scored []scoredOutcome) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	csvPath := filepath.Join(dir, resultsCSV)
	csvWriter, err := output.NewCSVWriter(csvPath)
	if err != nil {
		return fmt.Errorf("failed to init CSV writer at %s: %w", csvPath, err)
	}
	defer csvWriter.Close()

	jsonPath := filepath.Join(dir, resultsJSON)
	jsonWriter, err := output.NewJSONWriter(jsonPath)
	if err != nil {
		return fmt.Errorf("failed to init JSON writer at %s: %w", jsonPath, err)
	}
	defer jsonWriter.Close()

	var errs []error
	var best *scoredOutcome
	for i := range scored {
		s := &scored[i]
		res := s.Result
		rec := output.Record{Result: res, Metrics: s.Metrics, TrueParams: truth}
		if s.Err != nil {
			res = &model.FitResult{Algorithm: string(s.Algorithm), Function: desc.Name, ParamNames: desc.ParamNames}
			rec = output.Record{Result: res, TrueParams: truth, Error: s.Err.Error()}
		} else if best == nil && s.Metrics != nil {
			best = s
		}

		if err := csvWriter.Write(res, s.Metrics, s.Err); err != nil {
			output.Logger.Error("Failed to write result to CSV", "algorithm", s.Algorithm, "error", err)
			errs = append(errs, err)
		}
		if err := jsonWriter.Write(rec); err != nil {
			output.Logger.Error("Failed to write result to JSON", "algorithm", s.Algorithm, "error", err)
			errs = append(errs, err)
		}
	}

	if best != nil {
		curvePath := filepath.Join(dir, curveCSV)
		if err := output.WriteDataset(curvePath, x, y, best.Metrics.Predicted); err != nil {
			errs = append(errs, fmt.Errorf("failed to write %s: %w", curvePath, err))
		}
	}

	output.Logger.Info("Results saved", "dir", dir, "fits", len(scored))
	return errors.Join(errs...)
}

func paramName(names []string, i int) string {
	if i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("p%d", i)
}

func init() {
	rootCmd.AddCommand(fitCmd)

	names := make([]string, 0, len(engine.Algorithms()))
	for _, a := range engine.Algorithms() {
		names = append(names, string(a))
	}

	fitCmd.Flags().StringVarP(&fitFunction, "function", "f", "Linear", "Model to fit (see 'functions list')")
	fitCmd.Flags().StringSliceVarP(&fitAlgorithms, "algorithm", "a", []string{string(engine.LeastSquares)},
		"Optimizer(s) to run, comma-separated: "+strings.Join(names, ", "))
	fitCmd.Flags().BoolVar(&fitAll, "all", false, "Compare every optimizer")
	fitCmd.Flags().StringVar(&fitData, "data", "", "CSV file with x,y columns (default: synthetic data)")
	fitCmd.Flags().IntVar(&fitPoints, "points", 0, "Number of synthetic points (overrides config)")
	fitCmd.Flags().Float64Var(&fitNoise, "noise", 0, "Synthetic noise level as a fraction of the curve's range (overrides config)")
	fitCmd.Flags().Int64Var(&fitSeed, "seed", 0, "Seed for synthetic data and stochastic optimizers")
	fitCmd.Flags().StringVar(&fitBounds, "bounds", "", "Parameter bounds, e.g. 0:10,-1:1 or [0,10],[-1,1]")
	fitCmd.Flags().StringVar(&fitX0, "x0", "", "Initial guess, e.g. 1,0.5,2")
	fitCmd.Flags().BoolVar(&fitStrict, "strict", false, "Reject bounds/guesses whose length differs from the parameter count")
	fitCmd.Flags().StringVarP(&fitOutputDir, "output-dir", "o", "", "Output directory for results (CSV/JSON)")
	fitCmd.Flags().BoolVar(&fitNoSave, "no-save", false, "Print results without writing files")
}
