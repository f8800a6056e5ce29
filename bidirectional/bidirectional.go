// Package bidirectional estimates a single solution entry by combining
// backward push from the query coordinate with random-walk sampling from
// the right-hand side, meeting in the middle: push's conservation
// invariant guarantees e_row = Aᵀp + r, so x[row] = p·b + sum_j r[j]*x[j],
// and only the (small, push-bounded) support of r needs the expensive
// random-walk estimate.
package bidirectional

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/sublinearlabs/solver/matrix"
	"github.com/sublinearlabs/solver/push"
	"github.com/sublinearlabs/solver/randomwalk"
	"github.com/sublinearlabs/solver/solverr"
)

// Options configures a bidirectional estimate.
type Options struct {
	Epsilon    float64
	Confidence float64
	Seed       uint64
	Workers    int
	// Deterministic forces the random-walk correction pass to a single
	// worker, overriding Workers, for bit-for-bit reproducibility.
	Deterministic bool
	// MaxSupport bounds the residual support size push is allowed to
	// leave before random-walk takes over; gamma is halved and pushed
	// further whenever the support still exceeds it.
	MaxSupport int
	MaxPushes  int
	MaxGammaHalvings int
}

func (o Options) withDefaults() Options {
	if o.Epsilon <= 0 {
		o.Epsilon = 1e-2
	}
	if o.Confidence <= 0 {
		o.Confidence = 0.95
	}
	if o.MaxSupport <= 0 {
		o.MaxSupport = 64
	}
	if o.MaxPushes <= 0 {
		o.MaxPushes = 100000
	}
	if o.MaxGammaHalvings <= 0 {
		o.MaxGammaHalvings = 20
	}
	return o
}

// Result is the outcome of a bidirectional estimate.
type Result struct {
	Estimate     float64
	HalfWidth    float64
	PushRounds   int
	ResidualSupport int
	RandomWalks  int
}

// Estimate computes x[row] where x solves A x = b.
func Estimate(a *matrix.CSR, b mat.Vector, row int, opts Options) (Result, error) {
	rows, cols := a.Dims()
	if rows != cols {
		return Result{}, solverr.New(solverr.InvalidInput, "bidirectional.Estimate", "matrix must be square")
	}
	if row < 0 || row >= rows {
		return Result{}, solverr.New(solverr.InvalidInput, "bidirectional.Estimate", "row out of range")
	}

	eRow := matrix.NewSparseVector(rows, []int{row}, []float64{1})

	gamma := math.Sqrt(opts.withDefaults().Epsilon)
	opts = opts.withDefaults()

	pushWorkers := opts.Workers
	if opts.Deterministic {
		pushWorkers = 1
	}
	s, err := push.NewBackwardStepper(a, eRow, push.Options{Tau: gamma, MaxPushes: opts.MaxPushes, Workers: pushWorkers})
	if err != nil {
		return Result{}, err
	}

	rounds := 0
	for halving := 0; halving <= opts.MaxGammaHalvings; halving++ {
		for {
			_, converged := s.Step()
			rounds++
			if converged || s.Iterations() >= opts.MaxPushes {
				break
			}
			if s.Residual().NNZ() <= opts.MaxSupport {
				break
			}
		}
		if s.Residual().NNZ() <= opts.MaxSupport || s.Iterations() >= opts.MaxPushes {
			break
		}
		// Push's own progress has stalled above MaxSupport: demand finer
		// per-node precision and keep going instead of restarting.
		gamma /= 2
		s.SetTau(gamma)
	}

	p := s.DeltaX()
	r := s.Residual()

	var direct float64
	p.DoNonZero(func(j int, pv float64) {
		direct += pv * b.AtVec(j)
	})

	var correction, halfWidth float64
	var walks int
	var walkErr error
	r.DoNonZero(func(j int, rv float64) {
		if walkErr != nil || rv == 0 {
			return
		}
		res, err := randomwalk.Estimate(a, b, j, randomwalk.Options{
			Epsilon:       opts.Epsilon,
			Confidence:    opts.Confidence,
			Seed:          opts.Seed ^ uint64(j)*0x9E3779B97F4A7C15,
			Deterministic: opts.Deterministic,
			Workers:       opts.Workers,
		})
		if err != nil {
			walkErr = err
			return
		}
		correction += rv * res.Estimate
		halfWidth += math.Abs(rv) * res.HalfWidth
		walks += res.Walks
	})
	if walkErr != nil {
		return Result{}, walkErr
	}

	return Result{
		Estimate:        direct + correction,
		HalfWidth:       halfWidth,
		PushRounds:      rounds,
		ResidualSupport: r.NNZ(),
		RandomWalks:     walks,
	}, nil
}
