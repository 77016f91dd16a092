package report

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/curve-fitter/internal/model"
)

func linear(xs []float64, p ...float64) ([]float64, error) {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = p[0]*x + p[1]
	}
	return out, nil
}

func TestCompute_PerfectFit(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{1, 3, 5, 7}

	m, err := Compute(Input{Params: []float64{2, 1}, X: x, Y: y, Eval: linear})
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.R2)
	assert.Equal(t, 0.0, m.RMSE)
	assert.Equal(t, 0.0, m.MAE)
	assert.Equal(t, "Excellent fit", m.Quality)
	assert.Equal(t, y, m.Predicted)
	assert.Nil(t, m.Differences)
}

func TestCompute_KnownResiduals(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{1, 3, 5, 7}

	// Predictions 0, 2, 4, 6: every residual is 1.
	m, err := Compute(Input{Params: []float64{2, 0}, X: x, Y: y, Eval: linear})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.RMSE, 1e-12)
	assert.InDelta(t, 1.0, m.MAE, 1e-12)
	assert.InDelta(t, 4.0, m.SSRes, 1e-12)
	assert.InDelta(t, 20.0, m.SSTot, 1e-12)
	assert.InDelta(t, 0.8, m.R2, 1e-12)
	assert.Equal(t, Interpret(m.R2), m.Quality)
}

func TestCompute_ConstantY(t *testing.T) {
	x := []float64{0, 1, 2}
	y := []float64{4, 4, 4}

	m, err := Compute(Input{Params: []float64{1, 0}, X: x, Y: y, Eval: linear})
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.R2)
	assert.False(t, math.IsNaN(m.R2))
	assert.Greater(t, m.RMSE, 0.0)
}

func TestCompute_TrueParamDifferences(t *testing.T) {
	x := []float64{0, 1}
	y := []float64{1, 3.5}

	m, err := Compute(Input{
		Params:     []float64{2.4, 1.1},
		TrueParams: []float64{2.5, 1.0},
		ParamNames: []string{"a", "b"},
		X:          x, Y: y, Eval: linear,
	})
	require.NoError(t, err)
	require.Len(t, m.Differences, 2)
	assert.Equal(t, "a", m.Differences[0].Name)
	assert.InDelta(t, -0.1, m.Differences[0].Diff, 1e-12)
	assert.InDelta(t, 0.1, m.Differences[1].Diff, 1e-12)

	diffs := Differences([]float64{1, 2, 3}, []float64{1, 1}, nil)
	require.Len(t, diffs, 2)
	assert.Equal(t, "p1", diffs[1].Name)
	assert.Equal(t, 1.0, diffs[1].Diff)
}

func TestCompute_InvalidInput(t *testing.T) {
	_, err := Compute(Input{Params: []float64{1, 0}, X: []float64{1}, Y: []float64{1, 2}, Eval: linear})
	assert.ErrorIs(t, err, model.ErrInvalidData)

	_, err = Compute(Input{Params: []float64{1, 0}, Eval: linear})
	assert.ErrorIs(t, err, model.ErrInvalidData)

	boom := errors.New("boom")
	_, err = Compute(Input{
		X: []float64{1}, Y: []float64{1},
		Eval: func([]float64, ...float64) ([]float64, error) { return nil, boom },
	})
	assert.ErrorIs(t, err, boom)
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		r2   float64
		want string
	}{
		{1, "Excellent fit"},
		{0.96, "Excellent fit"},
		{0.95, "Very good fit"},
		{0.91, "Very good fit"},
		{0.85, "Good fit"},
		{0.8, "Moderate fit"},
		{0.7, "Moderate fit"},
		{0.5, "Poor fit"},
		{0.3, "Very poor fit"},
		{-2, "Very poor fit"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Interpret(tt.r2), "r2=%v", tt.r2)
	}
}

func TestMetricsJSONNonFinite(t *testing.T) {
	overflow := func(xs []float64, p ...float64) ([]float64, error) {
		out := make([]float64, len(xs))
		for i, x := range xs {
			out[i] = math.Exp(p[0] * x)
		}
		return out, nil
	}
	m, err := Compute(Input{Params: []float64{1000}, X: []float64{1, 2, 3}, Y: []float64{1, 2, 3}, Eval: overflow})
	require.NoError(t, err)
	require.True(t, math.IsInf(m.SSRes, 1))
	assert.Equal(t, "Very poor fit", m.Quality)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Nil(t, got["r2"])
	assert.Nil(t, got["rmse"])
	assert.Nil(t, got["ss_res"])
	assert.Equal(t, 2.0, got["ss_tot"])
	assert.Equal(t, "Very poor fit", got["quality"])
	assert.NotContains(t, got, "Predicted")

	finite, err := json.Marshal(Metrics{R2: 0.5, Quality: "Very poor fit"})
	require.NoError(t, err)
	assert.Contains(t, string(finite), `"r2":0.5`)
}
