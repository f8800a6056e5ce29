// Package solve is the orchestrator that ties the matrix analyzer and the
// individual algorithm packages (neumann, push) together: it selects a
// method from A's Properties when the caller does not pin one, runs the
// chosen Stepper to completion or to a budget, and tracks convergence
// health (EWMA, stagnation, drift) along the way.
package solve

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/sublinearlabs/solver/matrix"
)

// Method pins the orchestrator to a specific algorithm, or lets it choose.
type Method int

const (
	Auto Method = iota
	Neumann
	ForwardPush
	BackwardPush
)

func (m Method) String() string {
	switch m {
	case Auto:
		return "auto"
	case Neumann:
		return "neumann"
	case ForwardPush:
		return "forward_push"
	case BackwardPush:
		return "backward_push"
	default:
		return "unknown"
	}
}

// Options configures a Solve or Stream call.
type Options struct {
	Method        Method
	Epsilon       float64
	MaxIterations int
	TimeBudget    time.Duration
	Logger        Logger
	// ConvergenceWindow is the number of recent residual samples the
	// Convergence tracker keeps for its stagnation variance check.
	ConvergenceWindow int
	// Workers opts the chosen method's data-parallel primitive in: the
	// full-matrix SpMV inside neumann's Step, or push's frontier-draining
	// round. 0 or 1 keeps every primitive single-threaded.
	Workers int
	// Deterministic forces every data-parallel primitive back to its
	// serial path, overriding Workers, so repeat calls with the same
	// inputs are bit-for-bit reproducible (required for Monte-Carlo
	// estimation, where goroutine scheduling would otherwise perturb
	// which split-seed stream draws which sample).
	Deterministic bool
	// Ctx is checked at each iteration-snapshot boundary (the same
	// cooperative points the time/iteration budgets are enforced at);
	// its cancellation surfaces as the Cancelled failure kind carrying
	// the best-so-far solution, mirroring the checkCancel-at-boundary
	// idiom the traversal algorithms in this pack's graph packages use.
	Ctx context.Context
}

func (o Options) withDefaults() Options {
	if o.Epsilon <= 0 {
		o.Epsilon = 1e-10
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 10000
	}
	if o.Logger == nil {
		o.Logger = NopLogger{}
	}
	if o.ConvergenceWindow <= 0 {
		o.ConvergenceWindow = 50
	}
	if o.Deterministic {
		o.Workers = 1
	}
	if o.Ctx == nil {
		o.Ctx = context.Background()
	}
	return o
}

// Stepper is satisfied by neumann.Stepper and push.Stepper without either
// package importing this one: the orchestrator depends on the algorithm
// packages, never the reverse.
type Stepper interface {
	Step() (residualNorm float64, converged bool)
	Solution() *mat.VecDense
	Iterations() int
	DeltaX() *matrix.SparseVector
}

// diverger is implemented by push.Stepper; neumann.Stepper has no
// divergence signal of its own, so it is checked with a type assertion
// rather than added to the Stepper interface every algorithm must satisfy.
type diverger interface {
	Diverged() bool
}

// stepSizeScaler is implemented by neumann.Stepper; push has no step-size
// knob to reduce on drift, so this too is an optional type assertion
// rather than a required Stepper method.
type stepSizeScaler interface {
	ScaleStepSize(factor float64)
}

