package engine

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"github.com/daryltucker/curve-fitter/internal/config"
)

const (
	visitTailLimit = 1e8
	visitMinBound  = 1e-10
	// notImprovedMax forces a local search after this many chains without a
	// new best.
	notImprovedMax = 1000
)

var errMaxFun = errors.New("maximum number of function calls reached")

// annealer holds the state of one generalised simulated annealing run.
type annealer struct {
	rng    *rand.Rand
	obj    *counter
	bounds [][2]float64
	cfg    config.DualAnnealing

	cur, best   []float64
	curF, bestF float64
	notImproved int

	// visiting distribution constants, fixed by qv
	factor2, factor3, factor5, factor6 float64
}

func newAnnealer(f func([]float64) float64, bounds [][2]float64, cfg config.DualAnnealing) *annealer {
	qv := cfg.Visit
	a := &annealer{
		rng:    newRand(cfg.Seed),
		obj:    &counter{f: f},
		bounds: bounds,
		cfg:    cfg,
	}
	a.factor2 = math.Exp((4.0 - qv) * math.Log(qv-1.0))
	a.factor3 = math.Exp((2.0 - qv) * math.Log(2.0) / (qv - 1.0))
	a.factor5 = 1.0/(qv-1.0) - 0.5
	d1 := 2.0 - a.factor5
	lg, _ := math.Lgamma(d1)
	a.factor6 = math.Pi * (1.0 - a.factor5) / math.Sin(math.Pi*(1.0-a.factor5)) / math.Exp(lg)
	return a
}

func (a *annealer) eval(x []float64) (float64, error) {
	if a.obj.nfev >= a.cfg.MaxFun {
		return 0, errMaxFun
	}
	return a.obj.eval(x), nil
}

// restart moves the chain to a fresh uniform point.
func (a *annealer) restart() error {
	x := uniformIn(a.rng, a.bounds)
	f, err := a.eval(x)
	if err != nil {
		return err
	}
	a.cur, a.curF = x, f
	if a.best == nil || f < a.bestF {
		a.best, a.bestF = append([]float64(nil), x...), f
	}
	return nil
}

// visitStep draws n distorted Cauchy-Lorentz steps at the given temperature.
func (a *annealer) visitStep(temperature float64, n int) []float64 {
	qv := a.cfg.Visit
	factor1 := math.Exp(math.Log(temperature) / (qv - 1.0))
	factor4 := math.Sqrt(math.Pi) * factor1 * a.factor2 / (a.factor3 * (3.0 - qv))
	sigma := math.Exp(-(qv - 1.0) * math.Log(a.factor6/factor4) / (3.0 - qv))

	out := make([]float64, n)
	for i := range out {
		x := sigma * a.rng.NormFloat64()
		y := a.rng.NormFloat64()
		den := math.Exp((qv - 1.0) * math.Log(math.Abs(y)) / (3.0 - qv))
		v := x / den
		if v > visitTailLimit {
			v = visitTailLimit * a.rng.Float64()
		} else if v < -visitTailLimit {
			v = -visitTailLimit * a.rng.Float64()
		}
		out[i] = v
	}
	return out
}

// wrap folds a coordinate back into its bound by periodicity.
func (a *annealer) wrap(v float64, k int) float64 {
	lo, hi := a.bounds[k][0], a.bounds[k][1]
	width := hi - lo
	if width == 0 {
		return lo
	}
	v = math.Mod(math.Mod(v-lo, width)+width, width) + lo
	if math.Abs(v-lo) < visitMinBound {
		v += visitMinBound
	}
	return v
}

// visit proposes the next point: step < dim moves every coordinate, larger
// steps move coordinate step − dim only.
func (a *annealer) visit(step int, temperature float64) []float64 {
	n := len(a.cur)
	x := append([]float64(nil), a.cur...)
	if step < n {
		for k, v := range a.visitStep(temperature, n) {
			x[k] = a.wrap(x[k]+v, k)
		}
		return x
	}
	k := step - n
	x[k] = a.wrap(x[k]+a.visitStep(temperature, 1)[0], k)
	return x
}

// chain runs one Markov chain of 2·dim proposals and reports whether the
// global best improved.
func (a *annealer) chain(iter int, temperature float64) (bool, error) {
	n := len(a.cur)
	tempStep := temperature / float64(iter+1)
	improved := iter == 0
	a.notImproved++

	for j := 0; j < 2*n; j++ {
		x := a.visit(j, temperature)
		f, err := a.eval(x)
		if err != nil {
			return improved, err
		}
		if f < a.curF {
			a.cur, a.curF = x, f
			if f < a.bestF {
				a.best, a.bestF = append([]float64(nil), x...), f
				improved = true
				a.notImproved = 0
			}
			continue
		}

		qa := a.cfg.Accept
		p := 1.0 - (1.0-qa)*(f-a.curF)/tempStep
		var accept float64
		if p > 0 {
			accept = math.Exp(math.Log(p) / (1.0 - qa))
		}
		if a.rng.Float64() <= accept {
			a.cur, a.curF = x, f
		}
	}
	return improved, nil
}

// localSearch polishes the best point and resets the chain there on success.
func (a *annealer) localSearch(ctx context.Context) error {
	budget := a.cfg.MaxFun - a.obj.nfev
	if budget <= 0 {
		return errMaxFun
	}
	if lb := localBudget(len(a.best)); lb < budget {
		budget = lb
	}
	res, err := localMinimize(ctx, a.obj.eval, a.best, a.bounds, budget)
	if err != nil {
		return err
	}
	if res.f < a.bestF {
		a.best, a.bestF = res.x, res.f
		a.cur, a.curF = append([]float64(nil), res.x...), res.f
		a.notImproved = 0
	}
	return nil
}

// dualAnnealing minimises f over the box by generalised simulated annealing
// with visiting parameter cfg.Visit and acceptance parameter cfg.Accept.
// The temperature follows T0·(2^(qv−1)−1)/((t+1)^(qv−1)−1) and the chain
// restarts from a random point once T drops below T0·cfg.RestartTempRatio.
func dualAnnealing(ctx context.Context, f func([]float64) float64, bounds [][2]float64, cfg config.DualAnnealing) (*solution, error) {
	a := newAnnealer(f, bounds, cfg)
	qv := cfg.Visit
	t1 := math.Exp((qv-1.0)*math.Log(2.0)) - 1.0
	restartTemp := cfg.InitialTemp * cfg.RestartTempRatio

	sol := &solution{success: true, message: "Maximum number of iteration reached"}
	finish := func(err error) (*solution, error) {
		if errors.Is(err, errMaxFun) {
			sol.success = false
			sol.message = "Maximum number of function call reached during annealing"
		} else if err != nil {
			return nil, err
		}
		sol.x, sol.fun, sol.nfev = a.best, a.bestF, a.obj.nfev
		return sol, nil
	}

	if err := a.restart(); err != nil {
		return finish(err)
	}

	iteration := 0
	for iteration < cfg.MaxIter {
		for i := 0; i < cfg.MaxIter && iteration < cfg.MaxIter; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			s := float64(i) + 2.0
			t2 := math.Exp((qv-1.0)*math.Log(s)) - 1.0
			temperature := cfg.InitialTemp * t1 / t2
			if temperature < restartTemp {
				if err := a.restart(); err != nil {
					return finish(err)
				}
				break
			}

			improved, err := a.chain(i, temperature)
			if err != nil {
				return finish(err)
			}
			if !cfg.NoLocalSearch && (improved || a.notImproved >= notImprovedMax) {
				if err := a.localSearch(ctx); err != nil {
					return finish(err)
				}
			}
			iteration++
			sol.nit = iteration
		}
	}
	return finish(nil)
}
