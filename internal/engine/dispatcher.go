/*
PURPOSE:
  Fitting dispatcher. Resolves a model by name, builds the objective over
  the current sample and runs one of the five optimizers against it.

REQUIREMENTS:
  User-specified:
  - Algorithms: Differential Evolution, Basin Hopping, SHGO, Dual Annealing,
    Least Squares, each with its documented defaults.
  - Unknown function names fail before any optimizer runs.
  - Optimizer failures surface to the caller, never a partial result.

  Implementation-discovered:
  - The descriptor travels with the evaluator; arity is never recovered by
    inspecting the callable.
  - Bounds/guess lengths are coerced with a warning unless StrictLengths.
  - Every optimizer checks ctx between outer iterations.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: internal/functions (via Resolver), internal/config, internal/output
  - Dependencies: gonum (optimize, mat, diff/fd, floats, stat)

ERROR HANDLING:
  - model.ErrUnknownAlgorithm / ErrUnknownFunction / ErrInvalidData /
    ErrInvalidConfig for bad requests.
  - *OptimizerError for anything the solver itself reports, including
    cancellation and panics.

IMPLEMENTATION RULES:
  - One Dispatcher per process, shared by every command.
  - Objective errors become finite penalties; they never abort a solver.

USAGE:
  d := engine.New(catalog)
  res, err := d.Fit(ctx, engine.Request{Algorithm: "lsq", Function: "Linear", X: x, Y: y})

SELF-HEALING INSTRUCTIONS:
  - New optimizer: add the Algorithm constant, its config section and a
    case in FitModel.

RELATED FILES:
  - internal/engine/runner.go
  - internal/config/algorithms.go

MAINTENANCE:
  - Keep Algorithms() order in sync with listings and docs.
*/

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/daryltucker/curve-fitter/internal/dataset"
	"github.com/daryltucker/curve-fitter/internal/model"
	"github.com/daryltucker/curve-fitter/internal/output"
)

// Resolver finds a model's descriptor and evaluator by name.
type Resolver interface {
	Lookup(name string) (model.Descriptor, model.Func, error)
}

// OptimizerError wraps a failure reported by a solver.
type OptimizerError struct {
	Algorithm Algorithm
	Function  string
	Err       error
}

func (e *OptimizerError) Error() string {
	return fmt.Sprintf("%s failed fitting %s: %v", e.Algorithm, e.Function, e.Err)
}

func (e *OptimizerError) Unwrap() error {
	return e.Err
}

// Request is one fitting job.
type Request struct {
	Algorithm string
	Function  string
	X, Y      []float64
	// Options overrides the dispatcher defaults when non-nil.
	Options *Options
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDefaults sets the options used by requests that carry none.
func WithDefaults(o Options) Option {
	return func(d *Dispatcher) { d.defaults = o }
}

// WithClock replaces time.Now for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// Dispatcher runs fits against models from its catalog.
type Dispatcher struct {
	catalog  Resolver
	defaults Options
	now      func() time.Time
}

// New creates a Dispatcher over catalog.
func New(catalog Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		catalog:  catalog,
		defaults: DefaultOptions(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Defaults returns the options applied to requests without their own.
func (d *Dispatcher) Defaults() Options {
	return d.defaults
}

// Fit resolves the algorithm and function, validates the sample, and fits.
func (d *Dispatcher) Fit(ctx context.Context, req Request) (*model.FitResult, error) {
	algo, err := ParseAlgorithm(req.Algorithm)
	if err != nil {
		return nil, err
	}
	desc, fn, err := d.catalog.Lookup(req.Function)
	if err != nil {
		return nil, err
	}
	if err := dataset.Validate(req.X, req.Y); err != nil {
		return nil, err
	}
	return d.FitModel(ctx, algo, desc, fn, req.X, req.Y, d.options(req))
}

func (d *Dispatcher) options(req Request) Options {
	if req.Options != nil {
		return *req.Options
	}
	return d.defaults
}

// FitModel fits a model the caller already resolved.
func (d *Dispatcher) FitModel(ctx context.Context, algo Algorithm, desc model.Descriptor, fn model.Func, x, y []float64, opts Options) (res *model.FitResult, err error) {
	if !algo.Known() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownAlgorithm, algo)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: %q has no evaluator", model.ErrUnknownFunction, desc.Name)
	}
	if err := dataset.Validate(x, y); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
	}
	n := desc.ParamCount()
	if n == 0 {
		return nil, fmt.Errorf("%w: %q has no parameters to fit", model.ErrInvalidConfig, desc.Name)
	}

	started := d.now()
	output.Logger.Debug("Starting fit", "algorithm", algo, "function", desc.Name, "params", n, "points", len(x))

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &OptimizerError{Algorithm: algo, Function: desc.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	sol, err := d.run(ctx, algo, n, fn, x, y, opts)
	if err != nil {
		if isConfigError(err) {
			return nil, err
		}
		return nil, &OptimizerError{Algorithm: algo, Function: desc.Name, Err: err}
	}

	if len(sol.x) != n {
		return nil, &OptimizerError{Algorithm: algo, Function: desc.Name,
			Err: fmt.Errorf("solver returned %d parameters, want %d", len(sol.x), n)}
	}
	for _, v := range sol.x {
		if !finite(v) {
			return nil, &OptimizerError{Algorithm: algo, Function: desc.Name,
				Err: fmt.Errorf("solver returned non-finite parameters %v", sol.x)}
		}
	}

	cost := SumSquares(fn, x, y)(sol.x)
	res = &model.FitResult{
		Algorithm:  string(algo),
		Function:   desc.Name,
		Params:     sol.x,
		ParamNames: append([]string(nil), desc.ParamNames...),
		Diagnostics: model.Diagnostics{
			Success:     sol.success,
			Message:     sol.message,
			Iterations:  sol.nit,
			FuncEvals:   sol.nfev,
			Cost:        cost,
			LocalMinima: sol.localMinima,
		},
		Started:  started,
		Duration: d.now().Sub(started),
	}

	output.Logger.Info("Fit complete",
		"algorithm", algo,
		"function", desc.Name,
		"cost", cost,
		"success", sol.success,
		"evals", sol.nfev,
		"duration", res.Duration,
	)
	return res, nil
}

func (d *Dispatcher) run(ctx context.Context, algo Algorithm, n int, fn model.Func, x, y []float64, opts Options) (*solution, error) {
	strict := opts.StrictLengths
	f := SumSquares(fn, x, y)

	switch algo {
	case DifferentialEvolution:
		bounds, err := normalizeBounds(opts.DifferentialEvolution.Bounds, n, strict, "differential_evolution.bounds")
		if err != nil {
			return nil, err
		}
		return differentialEvolution(ctx, f, bounds, opts.DifferentialEvolution)

	case BasinHopping:
		x0, err := normalizeGuess(opts.BasinHopping.X0, n, strict, "basin_hopping.x0")
		if err != nil {
			return nil, err
		}
		return basinHopping(ctx, f, x0, opts.BasinHopping)

	case SHGO:
		bounds, err := normalizeBounds(opts.SHGO.Bounds, n, strict, "shgo.bounds")
		if err != nil {
			return nil, err
		}
		return shgo(ctx, f, bounds, opts.SHGO)

	case DualAnnealing:
		bounds, err := normalizeBounds(opts.DualAnnealing.Bounds, n, strict, "dual_annealing.bounds")
		if err != nil {
			return nil, err
		}
		return dualAnnealing(ctx, f, bounds, opts.DualAnnealing)

	case LeastSquares:
		ls := opts.LeastSquares
		x0, err := normalizeGuess(ls.X0, n, strict, "least_squares.x0")
		if err != nil {
			return nil, err
		}
		lower, err := normalizeLimits(ls.Lower, n, negInf, strict, "least_squares.lower")
		if err != nil {
			return nil, err
		}
		upper, err := normalizeLimits(ls.Upper, n, posInf, strict, "least_squares.upper")
		if err != nil {
			return nil, err
		}
		return leastSquares(ctx, Residuals(fn, x, y), len(y), x0, lower, upper, ls)
	}
	return nil, fmt.Errorf("%w: %q", model.ErrUnknownAlgorithm, algo)
}

// Predict evaluates fn at x with fitted params.
func Predict(fn model.Func, params, x []float64) ([]float64, error) {
	y, err := fn(x, params...)
	if err != nil {
		return nil, err
	}
	if len(y) != len(x) {
		return nil, fmt.Errorf("%w: evaluator returned %d values for %d points", model.ErrInvalidData, len(y), len(x))
	}
	return y, nil
}
