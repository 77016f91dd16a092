package engine

import (
	"context"
	"math"

	"github.com/daryltucker/curve-fitter/internal/config"
)

const (
	hopTargetAcceptance = 0.5
	hopStepFactor       = 0.9
)

// basinHopping alternates random displacement with unbounded local
// minimisation and accepts hops by the Metropolis criterion at temperature
// cfg.T. The step size adapts every cfg.Interval hops toward a 50%
// acceptance rate.
func basinHopping(ctx context.Context, f func([]float64) float64, x0 []float64, cfg config.BasinHopping) (*solution, error) {
	n := len(x0)
	obj := &counter{f: f}
	rng := newRand(cfg.Seed)

	res, err := localMinimize(ctx, obj.eval, x0, nil, localBudget(n))
	if err != nil {
		return nil, err
	}
	x, fx := res.x, res.f
	bestX, bestF := append([]float64(nil), x...), fx

	step := cfg.StepSize
	trials, accepted := 0, 0
	for hop := 1; hop <= cfg.NIter; hop++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		trial := append([]float64(nil), x...)
		for k := range trial {
			trial[k] += step * (2*rng.Float64() - 1)
		}
		res, err := localMinimize(ctx, obj.eval, trial, nil, localBudget(n))
		if err != nil {
			return nil, err
		}

		accept := res.f < fx
		if !accept && cfg.T > 0 {
			accept = rng.Float64() < math.Exp(-(res.f-fx)/cfg.T)
		}
		trials++
		if accept {
			accepted++
			x, fx = res.x, res.f
		}
		if res.f < bestF {
			bestX, bestF = append([]float64(nil), res.x...), res.f
		}

		if hop%cfg.Interval == 0 {
			if float64(accepted)/float64(trials) > hopTargetAcceptance {
				step /= hopStepFactor
			} else {
				step *= hopStepFactor
			}
			trials, accepted = 0, 0
		}
	}

	return &solution{
		x:       bestX,
		fun:     bestF,
		nit:     cfg.NIter,
		nfev:    obj.nfev,
		success: true,
		message: "requested number of basinhopping iterations completed successfully",
	}, nil
}
