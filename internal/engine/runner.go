/*
PURPOSE:
  High-level runner that fits one model with several algorithms on the
  same sample and ranks the outcomes.

REQUIREMENTS:
  User-specified:
  - Compare every algorithm against the same data.

  Implementation-discovered:
  - Algorithms are independent; run them concurrently with a bounded
    worker count.
  - One failing algorithm must not abort the others.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli (fit --all)
  - Uses: internal/engine Dispatcher, golang.org/x/sync/errgroup

ERROR HANDLING:
  - Request-level problems (unknown function, bad data) abort before any
    algorithm starts.
  - Per-algorithm failures are recorded in Outcome.Err (resilience).
  - Cancellation of ctx aborts the whole comparison.

IMPLEMENTATION RULES:
  - Evaluators are pure, so sharing them across goroutines is safe.
  - Each optimizer owns its random source.

USAGE:
  outcomes, err := d.Compare(ctx, req, nil, 4)

RELATED FILES:
  - internal/engine/dispatcher.go
*/

package engine

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/daryltucker/curve-fitter/internal/dataset"
	"github.com/daryltucker/curve-fitter/internal/model"
	"github.com/daryltucker/curve-fitter/internal/output"
)

// Outcome is one algorithm's result in a comparison.
type Outcome struct {
	Algorithm Algorithm
	Result    *model.FitResult
	Err       error
}

// Compare fits req.Function with each of algos (all when empty), at most
// workers at a time. Outcomes are sorted by final cost; failures go last in
// their original order.
func (d *Dispatcher) Compare(ctx context.Context, req Request, algos []Algorithm, workers int) ([]Outcome, error) {
	if len(algos) == 0 {
		algos = Algorithms()
	}
	for _, a := range algos {
		if !a.Known() {
			return nil, fmt.Errorf("%w: %q", model.ErrUnknownAlgorithm, a)
		}
	}
	desc, fn, err := d.catalog.Lookup(req.Function)
	if err != nil {
		return nil, err
	}
	if err := dataset.Validate(req.X, req.Y); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	opts := d.options(req)

	outcomes := make([]Outcome, len(algos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, algo := range algos {
		i, algo := i, algo
		g.Go(func() error {
			output.Logger.Info("Running algorithm", "algorithm", algo, "function", desc.Name)
			res, err := d.FitModel(gctx, algo, desc, fn, req.X, req.Y, opts)
			if err != nil {
				output.Logger.Error("Algorithm failed", "algorithm", algo, "error", err)
			}
			outcomes[i] = Outcome{Algorithm: algo, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(outcomes, func(i, j int) bool {
		a, b := outcomes[i], outcomes[j]
		if (a.Err == nil) != (b.Err == nil) {
			return a.Err == nil
		}
		if a.Err != nil {
			return false
		}
		return a.Result.Diagnostics.Cost < b.Result.Diagnostics.Cost
	})
	return outcomes, nil
}
