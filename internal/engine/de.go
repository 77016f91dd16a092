package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/daryltucker/curve-fitter/internal/config"
	"github.com/daryltucker/curve-fitter/internal/model"
)

// deStrategy pairs a mutation rule with its crossover scheme.
type deStrategy struct {
	mutate  func(d *deState, i int) []float64
	samples int // distinct population members drawn besides i
	exp     bool
}

var deStrategies = map[string]struct {
	mutate  func(d *deState, i int) []float64
	samples int
}{
	"best1":          {(*deState).best1, 2},
	"rand1":          {(*deState).rand1, 3},
	"rand2":          {(*deState).rand2, 5},
	"best2":          {(*deState).best2, 4},
	"currenttobest1": {(*deState).currentToBest1, 2},
	"randtobest1":    {(*deState).randToBest1, 3},
}

func parseStrategy(name string) (deStrategy, error) {
	var exp bool
	base, ok := strings.CutSuffix(name, "bin")
	if !ok {
		base, ok = strings.CutSuffix(name, "exp")
		exp = true
	}
	if ok {
		if s, found := deStrategies[base]; found {
			return deStrategy{mutate: s.mutate, samples: s.samples, exp: exp}, nil
		}
	}
	return deStrategy{}, fmt.Errorf("%w: unknown differential evolution strategy %q", model.ErrInvalidConfig, name)
}

type deState struct {
	rng      *rand.Rand
	pop      [][]float64
	energies []float64
	best     int
	scale    float64
	picks    []int
}

// pick draws k distinct indices different from i into d.picks.
func (d *deState) pick(i, k int) []int {
	d.picks = d.picks[:0]
	for len(d.picks) < k {
		j := d.rng.Intn(len(d.pop))
		if j == i || containsInt(d.picks, j) {
			continue
		}
		d.picks = append(d.picks, j)
	}
	return d.picks
}

func (d *deState) combine(base []float64, plus, minus [][]float64) []float64 {
	out := append([]float64(nil), base...)
	for k := range out {
		var diff float64
		for _, p := range plus {
			diff += p[k]
		}
		for _, m := range minus {
			diff -= m[k]
		}
		out[k] += d.scale * diff
	}
	return out
}

func (d *deState) best1(i int) []float64 {
	r := d.pick(i, 2)
	return d.combine(d.pop[d.best], [][]float64{d.pop[r[0]]}, [][]float64{d.pop[r[1]]})
}

func (d *deState) rand1(i int) []float64 {
	r := d.pick(i, 3)
	return d.combine(d.pop[r[0]], [][]float64{d.pop[r[1]]}, [][]float64{d.pop[r[2]]})
}

func (d *deState) rand2(i int) []float64 {
	r := d.pick(i, 5)
	return d.combine(d.pop[r[0]], [][]float64{d.pop[r[1]], d.pop[r[2]]}, [][]float64{d.pop[r[3]], d.pop[r[4]]})
}

func (d *deState) best2(i int) []float64 {
	r := d.pick(i, 4)
	return d.combine(d.pop[d.best], [][]float64{d.pop[r[0]], d.pop[r[1]]}, [][]float64{d.pop[r[2]], d.pop[r[3]]})
}

func (d *deState) currentToBest1(i int) []float64 {
	r := d.pick(i, 2)
	return d.combine(d.pop[i], [][]float64{d.pop[d.best], d.pop[r[0]]}, [][]float64{d.pop[i], d.pop[r[1]]})
}

func (d *deState) randToBest1(i int) []float64 {
	r := d.pick(i, 3)
	return d.combine(d.pop[r[0]], [][]float64{d.pop[d.best], d.pop[r[1]]}, [][]float64{d.pop[r[0]], d.pop[r[2]]})
}

// crossover mixes the mutant into a copy of the current member.
func (d *deState) crossover(current, mutant []float64, cr float64, exp bool) []float64 {
	n := len(current)
	trial := append([]float64(nil), current...)
	fill := d.rng.Intn(n)
	if !exp {
		for k := 0; k < n; k++ {
			if k == fill || d.rng.Float64() < cr {
				trial[k] = mutant[k]
			}
		}
		return trial
	}
	for l := 0; l < n; l++ {
		trial[fill] = mutant[fill]
		fill = (fill + 1) % n
		if d.rng.Float64() >= cr {
			break
		}
	}
	return trial
}

// differentialEvolution minimises f over the box with the classic DE/x/y/z
// strategies. Out-of-box mutant coordinates are redrawn uniformly.
func differentialEvolution(ctx context.Context, f func([]float64) float64, bounds [][2]float64, cfg config.DifferentialEvolution) (*solution, error) {
	strategy, err := parseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	n := len(bounds)
	size := cfg.PopSize * n
	if size < strategy.samples+1 {
		size = strategy.samples + 1
	}
	if size < 5 {
		size = 5
	}

	obj := &counter{f: f}
	d := &deState{
		rng:   newRand(cfg.Seed),
		scale: cfg.Mutation,
	}
	d.pop = latinHypercube(bounds, size, newSource(cfg.Seed))
	d.energies = make([]float64, size)
	for i, p := range d.pop {
		d.energies[i] = obj.eval(p)
	}
	d.best = floats.MinIdx(d.energies)

	sol := &solution{message: "Maximum number of iterations has been exceeded."}
	for gen := 1; gen <= cfg.MaxIter; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sol.nit = gen

		for i := range d.pop {
			mutant := strategy.mutate(d, i)
			trial := d.crossover(d.pop[i], mutant, cfg.Recombination, strategy.exp)
			for k, b := range bounds {
				if trial[k] < b[0] || trial[k] > b[1] {
					trial[k] = b[0] + d.rng.Float64()*(b[1]-b[0])
				}
			}
			e := obj.eval(trial)
			if e <= d.energies[i] {
				d.pop[i] = trial
				d.energies[i] = e
				if e < d.energies[d.best] {
					d.best = i
				}
			}
		}

		mean, std := stat.MeanStdDev(d.energies, nil)
		if std <= cfg.Atol+cfg.Tol*math.Abs(mean) {
			sol.success = true
			sol.message = "Optimization terminated successfully."
			break
		}
	}

	sol.x = append([]float64(nil), d.pop[d.best]...)
	sol.fun = d.energies[d.best]

	if cfg.Polish {
		res, err := localMinimize(ctx, obj.eval, sol.x, bounds, localBudget(n))
		if err != nil {
			return nil, err
		}
		if res.f < sol.fun {
			sol.x, sol.fun = res.x, res.f
		}
	}

	sol.nfev = obj.nfev
	return sol, nil
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
