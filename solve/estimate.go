package solve

import (
	"gonum.org/v1/gonum/mat"

	"github.com/sublinearlabs/solver/analyze"
	"github.com/sublinearlabs/solver/bidirectional"
	"github.com/sublinearlabs/solver/matrix"
	"github.com/sublinearlabs/solver/push"
	"github.com/sublinearlabs/solver/randomwalk"
	"github.com/sublinearlabs/solver/solverr"
)

// EstimateMethod pins EstimateEntry to a specific single-coordinate
// algorithm, or lets it choose from A's Properties the same way Solve's
// Auto does for full solves.
type EstimateMethod int

const (
	EstimateAuto EstimateMethod = iota
	EstimateBackwardPush
	EstimateBidirectional
	EstimateRandomWalk
)

func (m EstimateMethod) String() string {
	switch m {
	case EstimateAuto:
		return "auto"
	case EstimateBackwardPush:
		return "backward_push"
	case EstimateBidirectional:
		return "bidirectional"
	case EstimateRandomWalk:
		return "random_walk"
	default:
		return "unknown"
	}
}

// smallMarginThreshold is the delta below which Auto prefers
// Bidirectional's conservative gamma schedule over a plain backward push,
// matching the orchestrator's full-solve table (ss4.9): "A RDD with delta
// small (< 0.05) -> Bidirectional with conservative gamma."
const smallMarginThreshold = 0.05

// EstimateOptions configures EstimateEntry.
type EstimateOptions struct {
	Method     EstimateMethod
	Epsilon    float64
	Confidence float64
	Seed       uint64
	Workers    int
	// Deterministic forces every random-walk pass EstimateEntry runs
	// (standalone or as bidirectional's correction step) to a single
	// worker, overriding Workers, for bit-for-bit reproducibility.
	Deterministic bool
	MaxPushes  int
	Logger     Logger
}

func (o EstimateOptions) withDefaults() EstimateOptions {
	if o.Epsilon <= 0 {
		o.Epsilon = 1e-2
	}
	if o.Confidence <= 0 {
		o.Confidence = 0.95
	}
	if o.MaxPushes <= 0 {
		o.MaxPushes = 100000
	}
	if o.Logger == nil {
		o.Logger = NopLogger{}
	}
	return o
}

// EstimateResult is the outcome of EstimateEntry.
type EstimateResult struct {
	Estimate            float64
	HalfWidth           float64
	Confidence          float64
	Walks               int
	Method              string
	FallbackFrom        string
	FiniteSampleWarning bool
}

// EstimateEntry answers a single coordinate x[row] of the solution to
// A x = b in time sublinear in A's dimension, selecting among backward
// push, bidirectional, and random-walk the way Solve's Auto selects among
// the full-solve methods (ss4.9): backward push alone when the margin is
// comfortable (it pushes until max|r| <= Epsilon/max|b|), falling back to
// bidirectional when it stops on MaxPushes with the bound max|r|*max|b|
// still above Epsilon; bidirectional directly when the margin is small;
// random walk when the caller pins it explicitly.
func EstimateEntry(a *matrix.CSR, b mat.Vector, row int, opts EstimateOptions) (EstimateResult, error) {
	opts = opts.withDefaults()

	rows, cols := a.Dims()
	if rows != cols {
		return EstimateResult{}, solverr.New(solverr.InvalidInput, "solve.EstimateEntry", "matrix must be square")
	}
	if row < 0 || row >= rows {
		return EstimateResult{}, solverr.New(solverr.InvalidInput, "solve.EstimateEntry", "row out of range")
	}

	if opts.Method == EstimateRandomWalk {
		return runRandomWalk(a, b, row, opts, "")
	}

	props, err := analyze.Analyze(a, analyze.Checks{})
	if err != nil {
		return EstimateResult{}, err
	}
	if !props.IsRowDD && !props.IsColDD {
		return EstimateResult{}, solverr.New(solverr.NotApplicable, "solve.EstimateEntry", "matrix is not diagonally dominant")
	}

	if opts.Method == EstimateBidirectional {
		return runBidirectional(a, b, row, opts, "")
	}

	if opts.Method == EstimateAuto && props.DominanceMargin > 0 && props.DominanceMargin < smallMarginThreshold {
		return runBidirectional(a, b, row, opts, "")
	}

	// EstimateBackwardPush, or Auto defaulting to it first.
	res, err := runBackwardPush(a, b, row, opts)
	if err == nil && res.HalfWidth <= opts.Epsilon {
		return res, nil
	}
	if opts.Method == EstimateBackwardPush {
		if err != nil {
			return res, err
		}
		return res, nil
	}

	opts.Logger.Log(Warn, "backward push residual too large, falling back to bidirectional", "row", row)
	return runBidirectional(a, b, row, opts, EstimateBackwardPush.String())
}

func runBackwardPush(a *matrix.CSR, b mat.Vector, row int, opts EstimateOptions) (EstimateResult, error) {
	rows, _ := a.Dims()
	eRow := matrix.NewSparseVector(rows, []int{row}, []float64{1})
	workers := opts.Workers
	if opts.Deterministic {
		workers = 1
	}
	bInf := dotInfNorm(b, rows)
	s, err := push.NewBackwardStepper(a, eRow, push.Options{Epsilon: opts.Epsilon, Tau: opts.Epsilon / bInf, MaxPushes: opts.MaxPushes, Workers: workers})
	if err != nil {
		return EstimateResult{}, err
	}
	for {
		_, converged := s.Step()
		if converged {
			break
		}
		if s.Diverged() {
			return EstimateResult{}, solverr.New(solverr.NumericFailure, "solve.EstimateEntry", "backward push diverged")
		}
		if s.Iterations() >= opts.MaxPushes {
			break
		}
	}

	var estimate float64
	s.DeltaX().DoNonZero(func(j int, pv float64) { estimate += pv * b.AtVec(j) })
	bound := s.Residual().NormInf() * bInf

	return EstimateResult{
		Estimate:   estimate,
		HalfWidth:  bound,
		Confidence: 1,
		Method:     EstimateBackwardPush.String(),
	}, nil
}

func runBidirectional(a *matrix.CSR, b mat.Vector, row int, opts EstimateOptions, fallbackFrom string) (EstimateResult, error) {
	res, err := bidirectional.Estimate(a, b, row, bidirectional.Options{
		Epsilon:       opts.Epsilon,
		Confidence:    opts.Confidence,
		Seed:          opts.Seed,
		Workers:       opts.Workers,
		Deterministic: opts.Deterministic,
		MaxPushes:     opts.MaxPushes,
	})
	if err != nil {
		return EstimateResult{}, err
	}
	return EstimateResult{
		Estimate:     res.Estimate,
		HalfWidth:    res.HalfWidth,
		Confidence:   opts.Confidence,
		Walks:        res.RandomWalks,
		Method:       EstimateBidirectional.String(),
		FallbackFrom: fallbackFrom,
	}, nil
}

func runRandomWalk(a *matrix.CSR, b mat.Vector, row int, opts EstimateOptions, fallbackFrom string) (EstimateResult, error) {
	res, err := randomwalk.Estimate(a, b, row, randomwalk.Options{
		Epsilon:       opts.Epsilon,
		Confidence:    opts.Confidence,
		Seed:          opts.Seed,
		Workers:       opts.Workers,
		Deterministic: opts.Deterministic,
	})
	if err != nil {
		return EstimateResult{}, err
	}
	return EstimateResult{
		Estimate:            res.Estimate,
		HalfWidth:           res.HalfWidth,
		Confidence:          opts.Confidence,
		Walks:               res.Walks,
		Method:              EstimateRandomWalk.String(),
		FallbackFrom:        fallbackFrom,
		FiniteSampleWarning: res.FiniteSampleWarning,
	}, nil
}

func dotInfNorm(b mat.Vector, n int) float64 {
	var m float64
	for i := 0; i < n; i++ {
		if v := b.AtVec(i); v > m {
			m = v
		} else if -v > m {
			m = -v
		}
	}
	return m
}
