package engine

import (
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/samplemv"
)

// newSource seeds a gonum sampling source; zero picks a time-based seed.
func newSource(seed int64) rand.Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.NewSource(uint64(seed))
}

// boxUniform is the uniform distribution over the bounds box.
func boxUniform(bounds [][2]float64, src rand.Source) *distmv.Uniform {
	bnds := make([]r1.Interval, len(bounds))
	for k, b := range bounds {
		bnds[k] = r1.Interval{Min: b[0], Max: b[1]}
	}
	return distmv.NewUniform(bnds, src)
}

// haltonPoints draws n scrambled Halton points inside the box.
func haltonPoints(bounds [][2]float64, n int, src rand.Source) [][]float64 {
	batch := mat.NewDense(n, len(bounds), nil)
	samplemv.Halton{Kind: samplemv.Owen, Q: boxUniform(bounds, src), Src: src}.Sample(batch)
	return rows(batch)
}

// latinHypercube places n points so every dimension's range is split into
// n strata with exactly one point in each.
func latinHypercube(bounds [][2]float64, n int, src rand.Source) [][]float64 {
	batch := mat.NewDense(n, len(bounds), nil)
	samplemv.LatinHypercube{Q: boxUniform(bounds, src), Src: src}.Sample(batch)
	return rows(batch)
}

func rows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = append([]float64(nil), m.RawRowView(i)...)
	}
	return out
}
