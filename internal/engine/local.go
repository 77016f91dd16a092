package engine

import (
	"context"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/optimize"
)

// solution is what every optimizer hands back to the dispatcher.
type solution struct {
	x           []float64
	fun         float64
	nit         int
	nfev        int
	success     bool
	message     string
	localMinima int
}

// localBudget is the evaluation allowance of one local minimisation.
func localBudget(n int) int {
	return 200 * (n + 1)
}

type localResult struct {
	x      []float64
	f      float64
	nfev   int
	status optimize.Status
}

// localMinimize runs Nelder-Mead from x0. With bounds, every trial point is
// projected into the box before evaluation and the returned location is
// projected too.
func localMinimize(ctx context.Context, f func([]float64) float64, x0 []float64, bounds [][2]float64, maxEvals int) (*localResult, error) {
	start := append([]float64(nil), x0...)
	clip(start, bounds)

	work := make([]float64, len(x0))
	p := optimize.Problem{
		Func: func(x []float64) float64 {
			if bounds == nil {
				return f(x)
			}
			copy(work, x)
			clip(work, bounds)
			return f(work)
		},
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 50,
		},
	}

	res, err := optimize.Minimize(p, start, settings, &optimize.NelderMead{})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	x := append([]float64(nil), res.X...)
	clip(x, bounds)
	return &localResult{x: x, f: res.F, nfev: res.FuncEvaluations, status: res.Status}, nil
}

// clip projects x into bounds in place. Nil bounds leave x untouched.
func clip(x []float64, bounds [][2]float64) {
	if bounds == nil {
		return
	}
	for i := range x {
		if x[i] < bounds[i][0] {
			x[i] = bounds[i][0]
		} else if x[i] > bounds[i][1] {
			x[i] = bounds[i][1]
		}
	}
}

// newRand seeds a private source; zero picks a time-based seed.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// uniformIn draws a point uniformly from the box.
func uniformIn(rng *rand.Rand, bounds [][2]float64) []float64 {
	x := make([]float64, len(bounds))
	for i, b := range bounds {
		x[i] = b[0] + rng.Float64()*(b[1]-b[0])
	}
	return x
}
