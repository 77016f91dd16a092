package engine

import (
	"context"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"

	"github.com/daryltucker/curve-fitter/internal/config"
)

// minimaTolerance merges local minima closer than this in unit-box
// coordinates.
const minimaTolerance = 1e-6

// shgoSeed fixes the Halton scrambling so repeated runs sample the same
// points.
const shgoSeed = 1

type sample struct {
	x    []float64 // in bounds
	unit []float64 // scaled to [0, 1]
	f    float64
}

// shgo samples the box with a scrambled Halton sequence, keeps every sample
// that is no higher than its 2·dim nearest neighbours, and minimises locally
// from each of them, lowest first.
func shgo(ctx context.Context, f func([]float64) float64, bounds [][2]float64, cfg config.SHGO) (*solution, error) {
	n := len(bounds)
	obj := &counter{f: f}
	points := haltonPoints(bounds, cfg.N*cfg.Iters, rand.NewSource(shgoSeed))

	samples := make([]sample, 0, len(points))
	for it := 0; it < cfg.Iters; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, x := range points[it*cfg.N : (it+1)*cfg.N] {
			samples = append(samples, sample{x: x, unit: toUnit(x, bounds), f: obj.eval(x)})
		}
	}

	candidates := minimiserCandidates(samples, 2*n)
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].f < candidates[j].f })

	var minima [][]float64
	sol := &solution{nit: cfg.Iters}
	sol.fun = samples[0].f
	sol.x = append([]float64(nil), samples[0].x...)
	for _, s := range samples {
		if s.f < sol.fun {
			sol.fun, sol.x = s.f, append([]float64(nil), s.x...)
		}
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := localMinimize(ctx, obj.eval, c.x, bounds, localBudget(n))
		if err != nil {
			return nil, err
		}
		unit := toUnit(res.x, bounds)
		if !nearAny(minima, unit) {
			minima = append(minima, unit)
		}
		if res.f < sol.fun {
			sol.fun, sol.x = res.f, res.x
		}
	}

	sol.localMinima = len(minima)
	sol.nfev = obj.nfev
	sol.success = len(minima) > 0
	if sol.success {
		sol.message = "Optimization terminated successfully."
	} else {
		sol.message = "Failed to find a feasible minimizer point."
	}
	return sol, nil
}

// minimiserCandidates returns samples whose value does not exceed any of
// their k nearest neighbours.
func minimiserCandidates(samples []sample, k int) []sample {
	if k > len(samples)-1 {
		k = len(samples) - 1
	}
	type neighbour struct {
		dist float64
		idx  int
	}

	var out []sample
	nb := make([]neighbour, 0, len(samples))
	for i, s := range samples {
		if s.f >= ObjectivePenalty {
			continue
		}
		nb = nb[:0]
		for j, t := range samples {
			if j != i {
				nb = append(nb, neighbour{floats.Distance(s.unit, t.unit, 2), j})
			}
		}
		sort.Slice(nb, func(a, b int) bool { return nb[a].dist < nb[b].dist })

		lowest := true
		for _, v := range nb[:k] {
			if samples[v.idx].f < s.f {
				lowest = false
				break
			}
		}
		if lowest {
			out = append(out, s)
		}
	}
	return out
}

func toUnit(x []float64, bounds [][2]float64) []float64 {
	u := make([]float64, len(x))
	for k, b := range bounds {
		if w := b[1] - b[0]; w > 0 {
			u[k] = (x[k] - b[0]) / w
		}
	}
	return u
}

func nearAny(points [][]float64, p []float64) bool {
	for _, q := range points {
		if floats.Distance(p, q, 2) < minimaTolerance {
			return true
		}
	}
	return false
}
