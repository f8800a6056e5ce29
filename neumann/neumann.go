// Package neumann implements the truncated Neumann series solver: for
// D = diag(A), R = A - D, M = -D⁻¹R, x = sum_{k>=0} M^k D⁻¹b, computed by
// the equivalent fixed-point iteration x_{k+1} = x_k + D⁻¹(b - A x_k).
// Convergence requires rho(M) < 1, guaranteed for strictly row diagonally
// dominant A with margin delta by rho(M) <= 1 - delta.
package neumann

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/sublinearlabs/solver/matrix"
	"github.com/sublinearlabs/solver/solverr"
)

// ResidualRecomputeEvery is the cadence (in iterations) at which the
// residual is recomputed explicitly from scratch (r = b - A x) rather than
// updated incrementally, bounding floating-point drift.
const ResidualRecomputeEvery = 10

// Preconditioner selects how the diagonal is applied.
type Preconditioner int

const (
	// Jacobi divides the residual update by the true diagonal (the
	// default, and the only choice for which the spectral-radius bound
	// in the package doc applies).
	Jacobi Preconditioner = iota
	// None treats D as the identity, i.e. plain Richardson iteration;
	// provided because the shared Solver Options enumerate it, not
	// because it is expected to converge as reliably.
	None
)

// Options configures a Neumann solve.
type Options struct {
	Epsilon        float64
	MaxIterations  int
	Preconditioner Preconditioner
	// StepSize scales the update x += StepSize * D^-1 r. It defaults to
	// 1.0 (no line search); Convergence drift-handling reduces it by
	// 20% per spec §4.10's Neumann policy.
	StepSize float64
	// Workers opts into matrix.CSR.ParallelSpMVInto (§5) for the full
	// A*x multiply Step performs on every recompute/incremental branch,
	// the one point in the iteration where Neumann touches the whole
	// matrix rather than just the diagonal. 0 or 1 keeps the serial
	// SpMVInto path.
	Workers int
}

func (o Options) withDefaults() Options {
	if o.Epsilon <= 0 {
		o.Epsilon = 1e-10
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 1000
	}
	if o.StepSize == 0 {
		o.StepSize = 1.0
	}
	return o
}

// Result is the outcome of a Neumann solve.
type Result struct {
	Solution   *mat.VecDense
	Iterations int
	Residual   float64
	Converged  bool
}

// Stepper runs one Jacobi iteration per Step call, so a caller (the
// orchestrator) can interleave convergence monitoring and budget checks at
// iteration boundaries without this package knowing anything about
// snapshots or budgets.
type Stepper struct {
	a     *matrix.CSR
	diag  *matrix.Diagonal
	b     []float64
	bNorm float64
	x     []float64
	r     []float64
	// step and av are the two vectors spec §5 requires Neumann to
	// preallocate: step holds the latest update stepSize*D^-1*r (stepSize*r
	// without the Jacobi preconditioner), av holds A*x on recompute
	// iterations and A*step otherwise. Both are reused in place every Step call so
	// steady-state iteration allocates nothing beyond them.
	step     []float64
	av       []float64
	opts     Options
	iter     int
	residual float64
}

// NewStepper validates A and b and prepares a Stepper. It fails with
// NumericFailure if A has a zero diagonal entry (SingularDiagonal), and
// with InvalidInput if A is not square or dimensions disagree.
func NewStepper(a *matrix.CSR, b mat.Vector, opts Options) (*Stepper, error) {
	rows, cols := a.Dims()
	if rows != cols {
		return nil, solverr.New(solverr.InvalidInput, "neumann.NewStepper", "matrix must be square")
	}
	if b.Len() != rows {
		return nil, solverr.New(solverr.InvalidInput, "neumann.NewStepper", "b length disagrees with A")
	}

	diag, err := matrix.ExtractDiagonal(a)
	if err != nil {
		return nil, solverr.Wrap(solverr.InvalidInput, "neumann.NewStepper", "failed to extract diagonal", err)
	}
	if opts.Preconditioner == Jacobi && diag.HasZero() {
		return nil, solverr.New(solverr.NumericFailure, "neumann.NewStepper", "singular diagonal entry")
	}

	opts = opts.withDefaults()

	bs := make([]float64, rows)
	for i := 0; i < rows; i++ {
		bs[i] = b.AtVec(i)
	}

	s := &Stepper{
		a:     a,
		diag:  diag,
		b:     bs,
		bNorm: floats.Norm(bs, 2),
		x:     make([]float64, rows),
		r:     append([]float64(nil), bs...),
		step:  make([]float64, rows),
		av:    make([]float64, rows),
		opts:  opts,
	}
	s.residual = s.bNorm
	return s, nil
}

// Step performs one Jacobi iteration and returns the new residual 2-norm
// and whether the stopping criterion ||r|| <= epsilon*||b|| has been met.
// b == 0 is handled by the zero initial residual short-circuiting on the
// very first call.
func (s *Stepper) Step() (residualNorm float64, converged bool) {
	if s.bNorm == 0 {
		s.residual = 0
		return 0, true
	}

	s.iter++

	if s.opts.Preconditioner == Jacobi {
		s.diag.SolveInto(s.step, s.r)
	} else {
		copy(s.step, s.r)
	}
	for i := range s.step {
		s.step[i] *= s.opts.StepSize
	}
	for i := range s.x {
		s.x[i] += s.step[i]
	}

	if s.iter%ResidualRecomputeEvery == 0 {
		s.spmv(s.x)
		for i := range s.r {
			s.r[i] = s.b[i] - s.av[i]
		}
	} else {
		// incremental update: r_{k+1} = r_k - A*(stepSize*D^-1 r_k)
		s.spmv(s.step)
		for i := range s.r {
			s.r[i] -= s.av[i]
		}
	}

	s.residual = floats.Norm(s.r, 2)
	return s.residual, s.residual <= s.opts.Epsilon*s.bNorm
}

// spmv computes A*src into s.av (preallocated), using the data-parallel
// kernel when Workers > 1 and the serial one otherwise.
func (s *Stepper) spmv(src []float64) {
	v := mat.NewVecDense(len(src), src)
	if s.opts.Workers > 1 {
		_ = s.a.ParallelSpMVInto(v, s.av, s.opts.Workers)
		return
	}
	s.a.SpMVInto(v, s.av)
}

// ScaleStepSize multiplies the current step size by factor, implementing
// the "reduce step size by 20%" drift-response policy (factor = 0.8).
func (s *Stepper) ScaleStepSize(factor float64) {
	s.opts.StepSize *= factor
}

// DeltaX returns the most recent update applied to x, as a SparseVector
// for inclusion in an iteration snapshot (non-zero entries only).
func (s *Stepper) DeltaX() *matrix.SparseVector {
	idx := make([]int, 0)
	val := make([]float64, 0)
	for i, v := range s.step {
		if v != 0 {
			idx = append(idx, i)
			val = append(val, v)
		}
	}
	return matrix.NewSparseVector(len(s.x), idx, val)
}

// Solution returns the current estimate.
func (s *Stepper) Solution() *mat.VecDense { return mat.NewVecDense(len(s.x), append([]float64(nil), s.x...)) }

// Iterations returns the number of Step calls so far.
func (s *Stepper) Iterations() int { return s.iter }

// Residual returns the current residual 2-norm.
func (s *Stepper) Residual() float64 { return s.residual }

// Solve runs the Stepper to completion (convergence or MaxIterations),
// returning the final Result. It is the non-streaming entry point.
func Solve(a *matrix.CSR, b mat.Vector, opts Options) (Result, error) {
	s, err := NewStepper(a, b, opts.withDefaults())
	if err != nil {
		return Result{}, err
	}
	for {
		resid, converged := s.Step()
		if converged {
			return Result{Solution: s.Solution(), Iterations: s.Iterations(), Residual: resid, Converged: true}, nil
		}
		if s.Iterations() >= s.opts.MaxIterations {
			return Result{Solution: s.Solution(), Iterations: s.Iterations(), Residual: resid, Converged: false},
				solverr.Budget("neumann.Solve", "iteration cap reached before convergence", solverr.NotConverged)
		}
	}
}

// ConvergenceBound returns the theoretical worst-case residual-norm bound
// (1-delta)^k * ||b|| used by Testable Property 4, given the dominance
// margin delta and iteration count k.
func ConvergenceBound(delta float64, k int, bNorm float64) float64 {
	return math.Pow(1-delta, float64(k)) * bNorm
}
