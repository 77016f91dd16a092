package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/curve-fitter/internal/model"
)

func TestParseAlgorithm(t *testing.T) {
	for in, want := range map[string]Algorithm{
		"Differential Evolution": DifferentialEvolution,
		"differential evolution": DifferentialEvolution,
		"de":                     DifferentialEvolution,
		"basinhopping":           BasinHopping,
		" Basin Hopping ":        BasinHopping,
		"SHGO":                   SHGO,
		"shgo":                   SHGO,
		"dual_annealing":         DualAnnealing,
		"least_squares":          LeastSquares,
		"LSQ":                    LeastSquares,
	} {
		got, err := ParseAlgorithm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseAlgorithm("Gradient Descent")
	assert.ErrorIs(t, err, model.ErrUnknownAlgorithm)
}

func TestAlgorithmsOrder(t *testing.T) {
	assert.Equal(t, []Algorithm{DifferentialEvolution, BasinHopping, SHGO, DualAnnealing, LeastSquares}, Algorithms())
	for _, a := range Algorithms() {
		assert.True(t, a.Known())
		assert.NotEqual(t, "No description available.", a.Description())
	}
	assert.False(t, Algorithm("Simplex").Known())
}

func TestNormalizeBounds(t *testing.T) {
	const n = 3
	short := [][2]float64{{1, 2}, {3, 4}}
	long := [][2]float64{{1, 2}, {3, 4}, {5, 6}, {7, 8}, {9, 10}}

	got, err := normalizeBounds(short, n, false, "bounds")
	require.NoError(t, err)
	assert.Equal(t, [][2]float64{{1, 2}, {3, 4}, {0, 10}}, got)

	got, err = normalizeBounds(long, n, false, "bounds")
	require.NoError(t, err)
	assert.Equal(t, [][2]float64{{1, 2}, {3, 4}, {5, 6}}, got)

	got, err = normalizeBounds(nil, n, true, "bounds")
	require.NoError(t, err)
	assert.Len(t, got, n)

	_, err = normalizeBounds(short, n, true, "bounds")
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
	_, err = normalizeBounds(long, n, true, "bounds")
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	_, err = normalizeBounds([][2]float64{{2, 1}}, 1, false, "bounds")
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
	_, err = normalizeBounds([][2]float64{{0, math.Inf(1)}}, 1, false, "bounds")
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestNormalizeGuess(t *testing.T) {
	got, err := normalizeGuess([]float64{5}, 3, false, "x0")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 1, 1}, got)

	got, err = normalizeGuess([]float64{5, 6, 7, 8}, 2, false, "x0")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6}, got)

	got, err = normalizeGuess(nil, 2, true, "x0")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, got)

	_, err = normalizeGuess([]float64{5}, 3, true, "x0")
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
	_, err = normalizeGuess([]float64{math.NaN()}, 1, false, "x0")
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestNormalizeLimits(t *testing.T) {
	got, err := normalizeLimits(nil, 2, negInf, false, "lower")
	require.NoError(t, err)
	assert.Equal(t, []float64{negInf, negInf}, got)

	got, err = normalizeLimits([]float64{0}, 3, negInf, true, "lower")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, got)

	got, err = normalizeLimits([]float64{0, 1}, 3, posInf, false, "upper")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, posInf}, got)

	_, err = normalizeLimits([]float64{0, 1}, 3, posInf, true, "upper")
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestParseBounds(t *testing.T) {
	want := [][2]float64{{0, 10}, {-1.5, 2}}
	for _, in := range []string{
		"0:10,-1.5:2",
		" 0 : 10 , -1.5:2 ",
		"[0,10],[-1.5,2]",
		"[[0, 10], [-1.5, 2]]",
		"(0,10),(-1.5,2)",
	} {
		got, err := ParseBounds(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	got, err := ParseBounds("")
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, in := range []string{"0-10", "a:1", "1:b", "5:1"} {
		_, err := ParseBounds(in)
		assert.ErrorIs(t, err, model.ErrInvalidConfig, in)
	}
}

func TestParseFloats(t *testing.T) {
	got, err := ParseFloats("1, 2.5,-3e2")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5, -300}, got)

	got, err = ParseFloats("[1,2]")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got)

	got, err = ParseFloats("  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseFloats("1,,2")
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}
