package engine

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/daryltucker/curve-fitter/internal/config"
	"github.com/daryltucker/curve-fitter/internal/model"
)

const (
	lmInitialDamping = 1e-3
	lmMinDamping     = 1e-12
	lmMaxDamping     = 1e16
)

const stallMessage = "Damping limit reached without reducing the cost."


// leastSquares minimises ½‖r(p)‖² with Levenberg-Marquardt steps on a
// central-difference Jacobian. Bounded methods ("trf", "dogbox") project
// every step into [lower, upper]; "lm" refuses finite bounds.
func leastSquares(ctx context.Context, r func(dst, p []float64), m int, x0, lower, upper []float64, cfg config.LeastSquares) (*solution, error) {
	n := len(x0)
	bounded := false
	for i := range lower {
		if math.IsNaN(lower[i]) || math.IsNaN(upper[i]) || lower[i] > upper[i] {
			return nil, fmt.Errorf("%w: bounds [%v, %v] for parameter %d are invalid", model.ErrInvalidConfig, lower[i], upper[i], i)
		}
		if !math.IsInf(lower[i], -1) || !math.IsInf(upper[i], 1) {
			bounded = true
		}
	}

	var bounds [][2]float64
	switch cfg.Method {
	case "trf", "dogbox":
		if bounded {
			bounds = make([][2]float64, n)
			for i := range bounds {
				bounds[i] = [2]float64{lower[i], upper[i]}
			}
		}
	case "lm":
		if bounded {
			return nil, fmt.Errorf("%w: method 'lm' does not support bounds", model.ErrInvalidConfig)
		}
		if m < n {
			return nil, fmt.Errorf("%w: method 'lm' needs at least as many residuals (%d) as parameters (%d)", model.ErrInvalidConfig, m, n)
		}
	default:
		return nil, fmt.Errorf("%w: unknown least squares method %q", model.ErrInvalidConfig, cfg.Method)
	}

	maxNFev := cfg.MaxNFev
	if maxNFev == 0 {
		maxNFev = 100 * n
	}

	x := append([]float64(nil), x0...)
	clip(x, bounds)

	res := make([]float64, m)
	trialRes := make([]float64, m)
	nfev, njev := 1, 0
	r(res, x)
	cost := 0.5 * floats.Dot(res, res)

	jac := mat.NewDense(m, n, nil)
	var jtj mat.SymDense
	grad := mat.NewVecDense(n, nil)
	step := mat.NewVecDense(n, nil)
	var chol mat.Cholesky

	sol := &solution{message: "The maximum number of function evaluations is exceeded."}
	lambda := lmInitialDamping
	trial := make([]float64, n)

outer:
	for nfev < maxNFev {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sol.nit++

		h := 1e-6 * math.Max(1, floats.Norm(x, math.Inf(1)))
		fd.Jacobian(jac, r, x, &fd.JacobianSettings{Formula: fd.Central, Step: h})
		njev++

		// grad = Jᵀr
		grad.MulVec(jac.T(), mat.NewVecDense(m, res))
		if mat.Norm(grad, math.Inf(1)) < cfg.GTol {
			sol.success = true
			sol.message = "`gtol` termination condition is satisfied."
			break
		}
		jtj.SymOuterK(1, jac.T())

		for {
			if nfev >= maxNFev {
				break outer
			}

			damped := mat.NewSymDense(n, nil)
			damped.CopySym(&jtj)
			for i := 0; i < n; i++ {
				d := jtj.At(i, i)
				if d < 1e-12 {
					d = 1e-12
				}
				damped.SetSym(i, i, d+lambda*d)
			}

			ok := chol.Factorize(damped)
			if ok {
				ok = chol.SolveVecTo(step, grad) == nil
			}
			if !ok {
				lambda *= 10
				if lambda > lmMaxDamping {
					return nil, fmt.Errorf("normal equations are singular at %v", x)
				}
				continue
			}

			for i := range trial {
				trial[i] = x[i] - step.AtVec(i)
			}
			clip(trial, bounds)

			r(trialRes, trial)
			nfev++
			trialCost := 0.5 * floats.Dot(trialRes, trialRes)

			if trialCost < cost {
				dF := cost - trialCost
				dx := floats.Distance(trial, x, 2)
				copy(x, trial)
				copy(res, trialRes)
				prev := cost
				cost = trialCost
				lambda = math.Max(lambda/10, lmMinDamping)

				ftolHit := dF < cfg.FTol*prev
				xtolHit := dx < cfg.XTol*(cfg.XTol+floats.Norm(x, 2))
				switch {
				case ftolHit && xtolHit:
					sol.success = true
					sol.message = "Both `ftol` and `xtol` termination conditions are satisfied."
					break outer
				case ftolHit:
					sol.success = true
					sol.message = "`ftol` termination condition is satisfied."
					break outer
				case xtolHit:
					sol.success = true
					sol.message = "`xtol` termination condition is satisfied."
					break outer
				}
				break
			}

			lambda *= 10
			if lambda > lmMaxDamping {
				// No damping finds a lower cost but the gradient is not
				// small, so this is a stall rather than convergence.
				sol.message = stallMessage
				break outer
			}
		}
	}

	sol.x = x
	sol.fun = 2 * cost
	sol.nfev = nfev + 2*n*njev
	return sol, nil
}
