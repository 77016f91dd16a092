package engine

import (
	"fmt"
	"math"

	"github.com/daryltucker/curve-fitter/internal/model"
	"github.com/daryltucker/curve-fitter/internal/output"
)

// Penalties substituted for failed or non-finite evaluations. Both are finite
// so every optimizer keeps ordering candidates.
const (
	ObjectivePenalty = 1e300
	ResidualPenalty  = 1e100
)

// SumSquares builds the scalar objective Σ(y − fn(x, p))². Evaluator errors
// and panics, wrong-length output and non-finite sums all yield ObjectivePenalty.
// The first substitution per objective is logged at debug level.
func SumSquares(fn model.Func, x, y []float64) func(p []float64) float64 {
	var logged bool
	penalty := func(p []float64, reason any) float64 {
		if !logged {
			logged = true
			output.Logger.Debug("Objective penalty substituted", "params", p, "reason", reason)
		}
		return ObjectivePenalty
	}
	return func(p []float64) float64 {
		pred, err := evaluate(fn, x, p)
		if err != nil {
			return penalty(p, err)
		}
		if len(pred) != len(y) {
			return penalty(p, fmt.Sprintf("%d values for %d samples", len(pred), len(y)))
		}
		var sum float64
		for i, v := range pred {
			d := y[i] - v
			sum += d * d
		}
		if math.IsNaN(sum) || math.IsInf(sum, 0) {
			return penalty(p, "non-finite sum")
		}
		return sum
	}
}

// Residuals builds the vector objective dst[i] = y[i] − fn(x, p)[i]. A failed
// evaluation fills dst with ResidualPenalty; individual non-finite entries
// are replaced the same way.
func Residuals(fn model.Func, x, y []float64) func(dst, p []float64) {
	return func(dst, p []float64) {
		pred, err := evaluate(fn, x, p)
		if err != nil || len(pred) != len(y) {
			for i := range dst {
				dst[i] = ResidualPenalty
			}
			return
		}
		for i, v := range pred {
			d := y[i] - v
			if math.IsNaN(d) || math.IsInf(d, 0) {
				d = ResidualPenalty
			}
			dst[i] = d
		}
	}
}

// evaluate calls fn, turning a panic into an error.
func evaluate(fn model.Func, x, p []float64) (pred []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluator panicked: %v", r)
		}
	}()
	return fn(x, p...)
}

// counter counts objective evaluations. Each fit owns one, so no locking.
type counter struct {
	f    func([]float64) float64
	nfev int
}

func (c *counter) eval(p []float64) float64 {
	c.nfev++
	return c.f(p)
}
