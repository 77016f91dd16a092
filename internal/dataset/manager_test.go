package dataset

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"github.com/daryltucker/curve-fitter/internal/model"
)

var linearDesc = model.Descriptor{Name: "Linear", Equation: "y = a*x + b", ParamNames: []string{"a", "b"}}

func linear(xs []float64, p ...float64) ([]float64, error) {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = p[0]*x + p[1]
	}
	return out, nil
}

func TestManager_SetData(t *testing.T) {
	m := New(WithSeed(1))
	assert.False(t, m.HasData())

	require.NoError(t, m.SetData([]float64{1, 2}, []float64{3, 4}))
	assert.True(t, m.HasData())
	assert.Nil(t, m.TrueParams())

	x, y := m.Data()
	assert.Equal(t, []float64{1, 2}, x)
	assert.Equal(t, []float64{3, 4}, y)

	// Callers cannot mutate the stored sample through returned slices.
	x[0] = 100
	x2, _ := m.Data()
	assert.Equal(t, 1.0, x2[0])
}

func TestManager_SetDataRejectsBadSamples(t *testing.T) {
	m := New(WithSeed(1))
	require.NoError(t, m.SetData([]float64{1}, []float64{2}))

	for name, tc := range map[string][2][]float64{
		"mismatch": {{1, 2}, {1}},
		"empty":    {{}, {}},
		"nan":      {{1, math.NaN()}, {1, 2}},
		"inf":      {{1, 2}, {1, math.Inf(1)}},
	} {
		err := m.SetData(tc[0], tc[1])
		assert.ErrorIs(t, err, model.ErrInvalidData, name)
	}

	// Failed updates keep the previous sample.
	x, y := m.Data()
	assert.Equal(t, []float64{1}, x)
	assert.Equal(t, []float64{2}, y)
}

func TestManager_SetDataClearsTrueParams(t *testing.T) {
	m := New(WithSeed(7))
	_, _, truth, err := m.GenerateSynthetic(linearDesc, linear, 10, 0.05)
	require.NoError(t, err)
	require.NotNil(t, truth)

	require.NoError(t, m.SetData([]float64{1, 2}, []float64{1, 2}))
	assert.Nil(t, m.TrueParams())
}

func TestManager_GenerateSynthetic(t *testing.T) {
	m := New(WithSeed(42))

	x, y, truth, err := m.GenerateSynthetic(linearDesc, linear, 50, 0.05)
	require.NoError(t, err)
	require.Len(t, x, 50)
	require.Len(t, y, 50)
	assert.Equal(t, []float64{2.5, 1.0}, truth)

	assert.InDelta(t, 0.1, x[0], 1e-12)
	assert.InDelta(t, 10.0, x[49], 1e-12)
	for i := 1; i < len(x); i++ {
		assert.Greater(t, x[i], x[i-1])
	}

	// Residual spread ≈ 5% of the clean range (2.5 × 9.9).
	resid := make([]float64, len(x))
	for i := range x {
		resid[i] = y[i] - (2.5*x[i] + 1)
	}
	sd := stat.StdDev(resid, nil)
	assert.InDelta(t, 0.05*2.5*9.9, sd, 0.6)

	assert.Equal(t, truth, m.TrueParams())
	sx, sy := m.Data()
	assert.Equal(t, x, sx)
	assert.Equal(t, y, sy)
}

func TestManager_GenerateSyntheticIsSeeded(t *testing.T) {
	_, y1, _, err := New(WithSeed(3)).GenerateSynthetic(linearDesc, linear, 20, 0.1)
	require.NoError(t, err)
	_, y2, _, err := New(WithSource(rand.NewSource(3))).GenerateSynthetic(linearDesc, linear, 20, 0.1)
	require.NoError(t, err)
	assert.Equal(t, y1, y2)
}

func TestManager_GenerateSyntheticNoiseIsCentred(t *testing.T) {
	x, y, _, err := New(WithSeed(11)).GenerateSynthetic(linearDesc, linear, 2000, 0.1)
	require.NoError(t, err)

	resid := make([]float64, len(x))
	for i := range x {
		resid[i] = y[i] - (2.5*x[i] + 1)
	}
	mean, sd := stat.MeanStdDev(resid, nil)
	sigma := 0.1 * 2.5 * 9.9
	assert.InDelta(t, 0, mean, 4*sigma/math.Sqrt(2000))
	assert.InDelta(t, sigma, sd, 0.1*sigma)

	_, other, _, err := New(WithSeed(12)).GenerateSynthetic(linearDesc, linear, 2000, 0.1)
	require.NoError(t, err)
	assert.NotEqual(t, y, other)
}

func TestManager_GenerateSyntheticZeroNoise(t *testing.T) {
	m := New(WithSeed(1), WithDomain(0, 10))
	x, y, _, err := m.GenerateSynthetic(linearDesc, linear, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2.5, 5, 7.5, 10}, x)
	for i := range x {
		assert.InDelta(t, 2.5*x[i]+1, y[i], 1e-12)
	}
}

func TestManager_GenerateSyntheticInvalid(t *testing.T) {
	m := New(WithSeed(1))

	_, _, _, err := m.GenerateSynthetic(linearDesc, linear, 0, 0.05)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	_, _, _, err = m.GenerateSynthetic(linearDesc, linear, 10, -1)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	_, _, _, err = m.GenerateSynthetic(linearDesc, nil, 10, 0.05)
	assert.ErrorIs(t, err, model.ErrUnknownFunction)

	assert.False(t, m.HasData())
}

func TestTrueParamsFor(t *testing.T) {
	assert.Equal(t, []float64{2.0, 0.5, 1.0, 1.5, 0.5, 2.0}, TrueParamsFor("Triple Power Law", 6))
	assert.Equal(t, []float64{1, 1, 1, 1}, TrueParamsFor("Custom Sigmoid", 4))
	assert.Equal(t, []float64{1, 1, 1}, TrueParamsFor("Unknown", 0))
	assert.Equal(t, []float64{1, 1, 1}, TrueParamsFor("Linear", 3), "arity mismatch falls back")

	p := TrueParamsFor("Linear", 2)
	p[0] = 99
	assert.Equal(t, 2.5, TrueParamsFor("Linear", 2)[0])
}

func TestLinspace(t *testing.T) {
	assert.Nil(t, Linspace(0, 1, 0))
	assert.Equal(t, []float64{3}, Linspace(3, 9, 1))
	assert.Equal(t, []float64{0, 0.5, 1}, Linspace(0, 1, 3))
}

func TestReadCSV(t *testing.T) {
	src := "time,signal,extra\n0.1, 1.5, a\n0.2,2.5,b\n\n# trailing comment\n0.3,3.5\n"
	x, y, header, err := ReadCSV(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"time", "signal"}, header)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, x)
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, y)

	x, _, header, err = ReadCSV(strings.NewReader("1,2\n3,4\n"))
	require.NoError(t, err)
	assert.Nil(t, header)
	assert.Equal(t, []float64{1, 3}, x)
}

func TestReadCSVErrors(t *testing.T) {
	for name, src := range map[string]string{
		"single column": "1\n2\n",
		"header only":   "x,y\n",
		"bad row":       "x,y\n1,2\nthree,4\n",
		"empty":         "",
	} {
		_, _, _, err := ReadCSV(strings.NewReader(src))
		assert.ErrorIs(t, err, model.ErrInvalidData, name)
	}
}

func TestManager_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("x,y\n1,2\n2,4\n"), 0644))

	m := New(WithSeed(1))
	require.NoError(t, m.LoadFile(path))
	assert.Equal(t, 2, m.Len())

	err := m.LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
	assert.Equal(t, 2, m.Len())
}
