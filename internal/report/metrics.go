/*
PURPOSE:
  Computes fit-quality statistics comparing a fitted curve to its data,
  independent of the algorithm that produced the fit.

REQUIREMENTS:
  User-specified:
  - R², RMSE, MAE and a qualitative R² bucket.
  - R² is exactly 1 when every y is identical.
  - Per-parameter fitted − true differences when true params are known.

  Implementation-discovered:
  - Rendering (HTML, text, JSON) belongs to the caller; this package only
    returns a structured record.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli, internal/output (record shape)
  - Uses: gonum floats/stat

ERROR HANDLING:
  - model.ErrInvalidData for empty or mismatched samples.
  - Evaluator errors are returned unchanged.

USAGE:
  m, err := report.Compute(report.Input{Params: p, X: x, Y: y, Eval: f})
*/

package report

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/daryltucker/curve-fitter/internal/model"
)

// Input is everything needed to score one fit.
type Input struct {
	Params     []float64
	TrueParams []float64 // optional
	ParamNames []string  // optional; p0, p1, ... when absent
	X, Y       []float64
	Eval       model.Func
}

// ParamDiff compares one fitted parameter with its known true value.
type ParamDiff struct {
	Name   string  `json:"name"`
	Fitted float64 `json:"fitted"`
	True   float64 `json:"true"`
	Diff   float64 `json:"diff"`
}

// Metrics is the structured fit-quality record.
type Metrics struct {
	R2          float64     `json:"r2"`
	RMSE        float64     `json:"rmse"`
	MAE         float64     `json:"mae"`
	SSRes       float64     `json:"ss_res"`
	SSTot       float64     `json:"ss_tot"`
	Quality     string      `json:"quality"`
	Predicted   []float64   `json:"-"`
	Differences []ParamDiff `json:"differences,omitempty"`
}

// MarshalJSON writes non-finite statistics as null, which encoding/json
// would otherwise reject.
func (m Metrics) MarshalJSON() ([]byte, error) {
	type plain Metrics
	return json.Marshal(struct {
		plain
		R2    *float64 `json:"r2"`
		RMSE  *float64 `json:"rmse"`
		MAE   *float64 `json:"mae"`
		SSRes *float64 `json:"ss_res"`
		SSTot *float64 `json:"ss_tot"`
	}{plain(m), finiteOrNil(m.R2), finiteOrNil(m.RMSE), finiteOrNil(m.MAE), finiteOrNil(m.SSRes), finiteOrNil(m.SSTot)})
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Compute scores in.Params against the samples.
func Compute(in Input) (*Metrics, error) {
	if len(in.X) == 0 || len(in.X) != len(in.Y) {
		return nil, fmt.Errorf("%w: %d x values, %d y values", model.ErrInvalidData, len(in.X), len(in.Y))
	}
	if in.Eval == nil {
		return nil, fmt.Errorf("%w: no evaluator", model.ErrInvalidConfig)
	}

	pred, err := in.Eval(in.X, in.Params...)
	if err != nil {
		return nil, err
	}
	if len(pred) != len(in.Y) {
		return nil, fmt.Errorf("%w: evaluator returned %d values for %d samples", model.ErrInvalidData, len(pred), len(in.Y))
	}

	n := float64(len(in.Y))
	resid := make([]float64, len(in.Y))
	floats.SubTo(resid, in.Y, pred)

	ssRes := floats.Dot(resid, resid)
	mean := stat.Mean(in.Y, nil)
	ssTot := 0.0
	for _, y := range in.Y {
		ssTot += (y - mean) * (y - mean)
	}

	r2 := 1.0
	if ssTot != 0 {
		r2 = 1 - ssRes/ssTot
	}

	m := &Metrics{
		R2:        r2,
		RMSE:      math.Sqrt(ssRes / n),
		MAE:       floats.Norm(resid, 1) / n,
		SSRes:     ssRes,
		SSTot:     ssTot,
		Quality:   Interpret(r2),
		Predicted: pred,
	}

	if in.TrueParams != nil {
		m.Differences = Differences(in.Params, in.TrueParams, in.ParamNames)
	}
	return m, nil
}

// Differences pairs fitted and true values over the shorter of the two.
func Differences(fitted, truth []float64, names []string) []ParamDiff {
	n := min(len(fitted), len(truth))
	out := make([]ParamDiff, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("p%d", i)
		if i < len(names) {
			name = names[i]
		}
		out[i] = ParamDiff{
			Name:   name,
			Fitted: fitted[i],
			True:   truth[i],
			Diff:   fitted[i] - truth[i],
		}
	}
	return out
}

// Interpret buckets an R² value.
func Interpret(r2 float64) string {
	switch {
	case r2 > 0.95:
		return "Excellent fit"
	case r2 > 0.9:
		return "Very good fit"
	case r2 > 0.8:
		return "Good fit"
	case r2 > 0.6:
		return "Moderate fit"
	case r2 > 0.3:
		return "Poor fit"
	default:
		return "Very poor fit"
	}
}
