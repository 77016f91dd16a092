package config

import (
	"fmt"
	"math"
)

// Algorithms carries the tuning knobs of every optimizer.
type Algorithms struct {
	// StrictLengths turns bounds/guess length mismatches into errors instead
	// of padding or truncating them.
	StrictLengths         bool                  `yaml:"strict_lengths"`
	DifferentialEvolution DifferentialEvolution `yaml:"differential_evolution"`
	BasinHopping          BasinHopping          `yaml:"basin_hopping"`
	SHGO                  SHGO                  `yaml:"shgo"`
	DualAnnealing         DualAnnealing         `yaml:"dual_annealing"`
	LeastSquares          LeastSquares          `yaml:"least_squares"`
}

// DifferentialEvolution configures the evolutionary global search.
type DifferentialEvolution struct {
	Bounds        [][2]float64 `yaml:"bounds"`
	Strategy      string       `yaml:"strategy"`
	PopSize       int          `yaml:"popsize"`
	Tol           float64      `yaml:"tol"`
	Atol          float64      `yaml:"atol"`
	Mutation      float64      `yaml:"mutation"`
	Recombination float64      `yaml:"recombination"`
	MaxIter       int          `yaml:"maxiter"`
	Polish        bool         `yaml:"polish"`
	Seed          int64        `yaml:"seed"`
}

// BasinHopping configures the restart-with-local-minimisation search.
type BasinHopping struct {
	X0       []float64 `yaml:"x0"`
	NIter    int       `yaml:"niter"`
	T        float64   `yaml:"T"`
	StepSize float64   `yaml:"stepsize"`
	// Interval is how many hops pass between step-size adjustments
	Interval int   `yaml:"interval"`
	Seed     int64 `yaml:"seed"`
}

// SHGO configures the sampling global search.
type SHGO struct {
	Bounds [][2]float64 `yaml:"bounds"`
	N      int          `yaml:"n"`
	Iters  int          `yaml:"iters"`
}

// DualAnnealing configures generalised simulated annealing.
type DualAnnealing struct {
	Bounds           [][2]float64 `yaml:"bounds"`
	MaxIter          int          `yaml:"maxiter"`
	InitialTemp      float64      `yaml:"initial_temp"`
	RestartTempRatio float64      `yaml:"restart_temp_ratio"`
	Visit            float64      `yaml:"visit"`
	Accept           float64      `yaml:"accept"`
	MaxFun           int          `yaml:"maxfun"`
	NoLocalSearch    bool         `yaml:"no_local_search"`
	Seed             int64        `yaml:"seed"`
}

// LeastSquares configures the bounded nonlinear least-squares solver.
// Lower/Upper hold one value per parameter, or a single value applied to all.
type LeastSquares struct {
	X0      []float64 `yaml:"x0"`
	Method  string    `yaml:"method"`
	Lower   []float64 `yaml:"lower"`
	Upper   []float64 `yaml:"upper"`
	FTol    float64   `yaml:"ftol"`
	XTol    float64   `yaml:"xtol"`
	GTol    float64   `yaml:"gtol"`
	MaxNFev int       `yaml:"max_nfev"` // 0 means 100 × parameter count
}

// DefaultAlgorithms returns the documented optimizer defaults. Bounds and
// initial guesses are left empty and filled per model at dispatch time with
// (0, 10) and 1.0 respectively.
func DefaultAlgorithms() Algorithms {
	return Algorithms{
		DifferentialEvolution: DifferentialEvolution{
			Strategy:      "best1bin",
			PopSize:       15,
			Tol:           0.01,
			Mutation:      0.8,
			Recombination: 0.7,
			MaxIter:       1000,
			Polish:        true,
		},
		BasinHopping: BasinHopping{
			NIter:    100,
			T:        1.0,
			StepSize: 0.5,
			Interval: 50,
		},
		SHGO: SHGO{
			N:     100,
			Iters: 1,
		},
		DualAnnealing: DualAnnealing{
			MaxIter:          1000,
			InitialTemp:      5230.0,
			RestartTempRatio: 2e-5,
			Visit:            2.62,
			Accept:           -5.0,
			MaxFun:           10_000_000,
		},
		LeastSquares: LeastSquares{
			Method: "trf",
			Lower:  []float64{math.Inf(-1)},
			Upper:  []float64{math.Inf(1)},
			FTol:   1e-8,
			XTol:   1e-8,
			GTol:   1e-8,
		},
	}
}

// Validate checks ranges that do not depend on the model being fitted.
func (a Algorithms) Validate() error {
	de := a.DifferentialEvolution
	if de.PopSize < 1 {
		return fmt.Errorf("differential_evolution.popsize must be at least 1, got %d", de.PopSize)
	}
	if de.MaxIter < 1 {
		return fmt.Errorf("differential_evolution.maxiter must be at least 1, got %d", de.MaxIter)
	}
	if de.Mutation < 0 || de.Mutation > 2 {
		return fmt.Errorf("differential_evolution.mutation must be in [0, 2], got %v", de.Mutation)
	}
	if de.Recombination < 0 || de.Recombination > 1 {
		return fmt.Errorf("differential_evolution.recombination must be in [0, 1], got %v", de.Recombination)
	}
	if err := checkBounds("differential_evolution", de.Bounds); err != nil {
		return err
	}

	bh := a.BasinHopping
	if bh.NIter < 0 {
		return fmt.Errorf("basin_hopping.niter must not be negative, got %d", bh.NIter)
	}
	if bh.T < 0 {
		return fmt.Errorf("basin_hopping.T must not be negative, got %v", bh.T)
	}
	if bh.StepSize <= 0 {
		return fmt.Errorf("basin_hopping.stepsize must be positive, got %v", bh.StepSize)
	}
	if bh.Interval < 1 {
		return fmt.Errorf("basin_hopping.interval must be at least 1, got %d", bh.Interval)
	}

	sh := a.SHGO
	if sh.N < 1 || sh.Iters < 1 {
		return fmt.Errorf("shgo.n and shgo.iters must be at least 1, got %d and %d", sh.N, sh.Iters)
	}
	if err := checkBounds("shgo", sh.Bounds); err != nil {
		return err
	}

	da := a.DualAnnealing
	if da.MaxIter < 1 {
		return fmt.Errorf("dual_annealing.maxiter must be at least 1, got %d", da.MaxIter)
	}
	if da.InitialTemp <= 0.01 || da.InitialTemp > 5e4 {
		return fmt.Errorf("dual_annealing.initial_temp must be in (0.01, 5e4], got %v", da.InitialTemp)
	}
	if da.RestartTempRatio <= 0 || da.RestartTempRatio >= 1 {
		return fmt.Errorf("dual_annealing.restart_temp_ratio must be in (0, 1), got %v", da.RestartTempRatio)
	}
	if da.Visit <= 1 || da.Visit > 3 {
		return fmt.Errorf("dual_annealing.visit must be in (1, 3], got %v", da.Visit)
	}
	if da.Accept <= -1e4 || da.Accept > -5 {
		return fmt.Errorf("dual_annealing.accept must be in (-1e4, -5], got %v", da.Accept)
	}
	if da.MaxFun < 1 {
		return fmt.Errorf("dual_annealing.maxfun must be at least 1, got %d", da.MaxFun)
	}
	if err := checkBounds("dual_annealing", da.Bounds); err != nil {
		return err
	}

	ls := a.LeastSquares
	if ls.FTol < 0 || ls.XTol < 0 || ls.GTol < 0 {
		return fmt.Errorf("least_squares tolerances must not be negative")
	}
	if ls.MaxNFev < 0 {
		return fmt.Errorf("least_squares.max_nfev must not be negative, got %d", ls.MaxNFev)
	}
	return nil
}

func checkBounds(section string, bounds [][2]float64) error {
	for i, b := range bounds {
		if math.IsNaN(b[0]) || math.IsNaN(b[1]) || math.IsInf(b[0], 0) || math.IsInf(b[1], 0) {
			return fmt.Errorf("%s.bounds[%d] must be finite, got %v", section, i, b)
		}
		if b[0] > b[1] {
			return fmt.Errorf("%s.bounds[%d] lower %v exceeds upper %v", section, i, b[0], b[1])
		}
	}
	return nil
}
