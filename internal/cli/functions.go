package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/daryltucker/curve-fitter/internal/engine"
	"github.com/daryltucker/curve-fitter/internal/model"
	"github.com/daryltucker/curve-fitter/internal/output"
)

var (
	fnParams     []string
	fnEvalX      string
	fnEvalParams string
)

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List and manage fit models",
}

var functionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in and custom models",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(appCfg)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tKIND\tPARAMS\tEQUATION")
		for _, name := range s.catalog.Names() {
			desc, _, err := s.catalog.Lookup(name)
			if err != nil {
				continue
			}
			kind := "custom"
			if _, ok := s.registry.Model(name); ok {
				kind = "built-in"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, kind, strings.Join(desc.ParamNames, ","), desc.Equation)
		}
		return tw.Flush()
	},
}

var functionsAddCmd = &cobra.Command{
	Use:   "add NAME EXPRESSION",
	Short: "Define or replace a custom model",
	Long: `Compiles EXPRESSION over x and the declared parameters, checks that it
evaluates at x = 1 with the initial values, and saves it to the store.

Parameters are given as --param name[=initial][:description]; the initial
value defaults to 1. Operators: + - * / ** (or ^), parentheses, and the
functions sin, cos, exp and log.`,
	Example: `  curve-fitter functions add Gaussian "a * exp(-((x - mu) ** 2) / (2 * s ** 2))" \
    -p a=1:amplitude -p mu=5:centre -p s=1:width`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, expression := strings.TrimSpace(args[0]), args[1]

		s, err := openSession(appCfg)
		if err != nil {
			return err
		}
		if err := s.writableStore(); err != nil {
			return err
		}
		if _, ok := s.registry.Model(name); ok {
			return fmt.Errorf("%w: %q is a built-in model", model.ErrFunctionExists, name)
		}

		params := make([]model.Param, 0, len(fnParams))
		for _, raw := range fnParams {
			p, err := parseParam(raw)
			if err != nil {
				return err
			}
			params = append(params, p)
		}

		_, replaced := s.custom.Function(name)
		if err := s.custom.Add(name, expression, params); err != nil {
			return err
		}
		verb := "Added"
		if replaced {
			verb = "Replaced"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s custom function %s (stored in %s)\n", verb, name, s.custom.Path())
		return nil
	},
}

var functionsRemoveCmd = &cobra.Command{
	Use:     "remove NAME",
	Aliases: []string{"rm"},
	Short:   "Delete a custom model",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(appCfg)
		if err != nil {
			return err
		}
		if err := s.writableStore(); err != nil {
			return err
		}
		removed, err := s.custom.Remove(args[0])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%w: no custom function %q", model.ErrUnknownFunction, args[0])
		}
		output.Logger.Info("Removed custom function", "name", args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "Removed custom function %s\n", args[0])
		return nil
	},
}

var functionsEvalCmd = &cobra.Command{
	Use:   "eval NAME",
	Short: "Evaluate a model at given x values",
	Long: `Evaluates a model and prints x,y pairs. Parameters default to a custom
function's initial values, or to 1 for built-ins.`,
	Example: `  curve-fitter functions eval "Power Law" --x 1,2,4 --params 2,0.5,1`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(appCfg)
		if err != nil {
			return err
		}
		desc, fn, err := s.catalog.Lookup(args[0])
		if err != nil {
			return err
		}

		x, err := engine.ParseFloats(fnEvalX)
		if err != nil {
			return fmt.Errorf("--x: %w", err)
		}
		if len(x) == 0 {
			return fmt.Errorf("%w: --x needs at least one value", model.ErrInvalidData)
		}

		params, err := engine.ParseFloats(fnEvalParams)
		if err != nil {
			return fmt.Errorf("--params: %w", err)
		}
		if params == nil {
			params = defaultParams(s, desc)
		}
		if len(params) != desc.ParamCount() {
			return fmt.Errorf("%w: %s takes %d parameters, got %d", model.ErrInvalidConfig, desc.Name, desc.ParamCount(), len(params))
		}

		y, err := engine.Predict(fn, params, x)
		if err != nil {
			return err
		}
		return output.EncodeDataset(cmd.OutOrStdout(), x, y, nil)
	},
}

func defaultParams(s *session, desc model.Descriptor) []float64 {
	if f, ok := s.custom.Function(desc.Name); ok {
		if _, builtin := s.registry.Model(desc.Name); !builtin {
			return f.InitialValues()
		}
	}
	params := make([]float64, desc.ParamCount())
	for i := range params {
		params[i] = engine.DefaultGuess
	}
	return params
}

// parseParam reads name[=initial][:description].
func parseParam(raw string) (model.Param, error) {
	head, desc, _ := strings.Cut(raw, ":")
	name, initial, hasInit := strings.Cut(head, "=")

	p := model.Param{Name: strings.TrimSpace(name), InitValue: engine.DefaultGuess, Desc: strings.TrimSpace(desc)}
	if p.Name == "" {
		return model.Param{}, fmt.Errorf("%w: empty parameter name in %q", model.ErrInvalidConfig, raw)
	}
	if hasInit {
		v, err := strconv.ParseFloat(strings.TrimSpace(initial), 64)
		if err != nil {
			return model.Param{}, fmt.Errorf("%w: initial value of %s: %v", model.ErrInvalidConfig, p.Name, err)
		}
		p.InitValue = v
	}
	return p, nil
}

func init() {
	functionsAddCmd.Flags().StringArrayVarP(&fnParams, "param", "p", nil, "Parameter as name[=initial][:description], repeatable")
	functionsEvalCmd.Flags().StringVar(&fnEvalX, "x", "1", "x values, comma-separated")
	functionsEvalCmd.Flags().StringVar(&fnEvalParams, "params", "", "Parameter values, comma-separated")

	functionsCmd.AddCommand(functionsListCmd, functionsAddCmd, functionsRemoveCmd, functionsEvalCmd)
	rootCmd.AddCommand(functionsCmd)
}
