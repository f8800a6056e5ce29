// Package push implements forward and backward local push: a
// Gauss-Seidel-style update restricted to one coordinate at a time,
// propagated outward from an active frontier instead of swept row by row.
// Forward push resolves A x = b by discharging residual mass along A's
// columns (pushing u updates every r[j] with A[j,u] != 0); backward push
// runs the same primitive along A's rows, resolving Aᵀ x = b (equivalently,
// forward push run on Aᵀ), which is the natural direction for accumulating
// a single solution entry from a sparse right-hand side.
package push

import (
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/sublinearlabs/solver/matrix"
	"github.com/sublinearlabs/solver/solverr"
)

// Options configures a push solve.
type Options struct {
	Epsilon   float64
	MaxPushes int
	// Tau is the per-node activation threshold: a node is pushed once
	// |r[u]| > Tau. Zero selects the default Epsilon/n.
	Tau float64
	// Workers opts into drainParallel (§5) for rounds with a large
	// frontier: the round's nodes are partitioned across goroutines that
	// read the pre-round residual and accumulate private x/r deltas,
	// merged serially afterwards. 0 or 1 keeps the serial per-node loop.
	Workers int
}

func (o Options) withDefaults(n int) Options {
	if o.Epsilon <= 0 {
		o.Epsilon = 1e-10
	}
	if o.MaxPushes <= 0 {
		o.MaxPushes = 50 * n
	}
	if o.Tau <= 0 {
		o.Tau = o.Epsilon / float64(n)
	}
	return o
}

// Result is the outcome of a push solve.
type Result struct {
	X         *matrix.SparseVector
	R         *matrix.SparseVector
	Pushes    int
	Converged bool
}

// neighborFunc visits every off-diagonal neighbour of u together with the
// matrix entry connecting them; Forward supplies A's column u (entries
// A[j,u]), Backward supplies A's row u (entries A[u,j]).
type neighborFunc func(u int, fn func(j int, aij float64))

// diagFunc returns A[u,u].
type diagFunc func(u int) float64

// Stepper drains the current frontier once per Step call (one "round"),
// giving the orchestrator a stable unit of work for snapshotting and
// budget checks.
type Stepper struct {
	n        int
	diag     diagFunc
	neighbor neighborFunc
	x        *matrix.SparseVector
	r        *matrix.SparseVector
	q        *frontier
	opts     Options
	pushes   int
	minMass  float64
}

func newStepper(n int, diag diagFunc, neighbor neighborFunc, b mat.Vector, opts Options) *Stepper {
	opts = opts.withDefaults(n)
	r := matrix.NewSparseVector(n, nil, nil)
	q := newFrontier(n)
	for i := 0; i < n; i++ {
		v := b.AtVec(i)
		if v != 0 {
			r.Set(i, v)
		}
		if math.Abs(v) > opts.Tau {
			q.push(i)
		}
	}
	s := &Stepper{
		n:        n,
		diag:     diag,
		neighbor: neighbor,
		x:        matrix.NewSparseVector(n, nil, nil),
		r:        r,
		q:        q,
		opts:     opts,
	}
	s.minMass = s.r.Norm1()
	return s
}

// Step drains every node currently in the frontier exactly once (nodes
// re-activated during the round are processed on the next Step call, never
// within the same one, so a round's cost is bounded by the frontier size
// at its start). It returns the residual 1-norm after the round and
// whether every remaining active mass is below Tau. When Workers > 1 the
// round is drained by drainParallel instead of the serial loop below.
func (s *Stepper) Step() (residualNorm float64, converged bool) {
	if s.opts.Workers > 1 {
		return s.drainParallel(s.opts.Workers)
	}

	pending := s.q.len()
	for i := 0; i < pending && !s.q.empty(); i++ {
		u := s.q.pop()
		ru := s.r.AtVec(u)
		if ru == 0 {
			continue
		}
		d := s.diag(u)
		if d == 0 {
			continue
		}
		delta := ru / d
		s.x.AddAt(u, delta)
		s.r.Set(u, 0)
		s.neighbor(u, func(j int, aij float64) {
			if j == u || aij == 0 {
				return
			}
			s.r.AddAt(j, -aij*delta)
			if math.Abs(s.r.AtVec(j)) > s.opts.Tau {
				s.q.push(j)
			}
		})
		s.pushes++
	}

	mass := s.r.Norm1()
	if mass < s.minMass {
		s.minMass = mass
	}
	return mass, s.q.empty()
}

// drainParallel is the opt-in data-parallel frontier round (§5): every node
// in the round is popped up front (the same fixed round membership Step
// uses), partitioned across workers goroutines, and each worker computes
// its nodes' push amounts against the pre-round residual, accumulating
// local x/r deltas in private maps rather than touching the shared
// SparseVectors, which are not safe for concurrent mutation. A serial merge
// pass afterwards applies every delta and re-enqueues newly-active
// neighbours. Because every worker reads the residual as it stood at the
// start of the round rather than incorporating sibling updates mid-round,
// a round that pushes two mutually-adjacent frontier nodes can take a
// different numeric path than the serial Step (Jacobi-style instead of
// Gauss-Seidel-style), though both are valid push schedules converging to
// the same fixed point.
func (s *Stepper) drainParallel(workers int) (residualNorm float64, converged bool) {
	pending := s.q.len()
	nodes := make([]int, 0, pending)
	for i := 0; i < pending && !s.q.empty(); i++ {
		nodes = append(nodes, s.q.pop())
	}
	if workers > len(nodes) {
		workers = len(nodes)
	}
	if workers <= 1 {
		return s.drainNodes(nodes)
	}

	type partial struct {
		xDelta map[int]float64
		rDelta map[int]float64
	}
	partials := make([]partial, workers)
	chunk := (len(nodes) + workers - 1) / workers
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		lo := w * chunk
		hi := lo + chunk
		if hi > len(nodes) {
			hi = len(nodes)
		}
		if lo >= hi {
			continue
		}
		partials[w] = partial{xDelta: make(map[int]float64, hi-lo), rDelta: make(map[int]float64)}
		g.Go(func() error {
			p := &partials[w]
			for _, u := range nodes[lo:hi] {
				ru := s.r.AtVec(u)
				if ru == 0 {
					continue
				}
				d := s.diag(u)
				if d == 0 {
					continue
				}
				delta := ru / d
				p.xDelta[u] += delta
				s.neighbor(u, func(j int, aij float64) {
					if j == u || aij == 0 {
						return
					}
					p.rDelta[j] -= aij * delta
				})
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return a non-nil error

	for _, p := range partials {
		for u, delta := range p.xDelta {
			s.x.AddAt(u, delta)
			s.r.Set(u, 0)
			s.pushes++
		}
	}
	for _, p := range partials {
		for j, delta := range p.rDelta {
			s.r.AddAt(j, delta)
		}
	}
	for _, p := range partials {
		for j := range p.rDelta {
			if math.Abs(s.r.AtVec(j)) > s.opts.Tau {
				s.q.push(j)
			}
		}
	}

	mass := s.r.Norm1()
	if mass < s.minMass {
		s.minMass = mass
	}
	return mass, s.q.empty()
}

// drainNodes runs the serial per-node push loop over an already-popped node
// list, the fallback drainParallel takes when its worker count collapses
// to 1 (e.g. a round smaller than the requested worker count).
func (s *Stepper) drainNodes(nodes []int) (residualNorm float64, converged bool) {
	for _, u := range nodes {
		ru := s.r.AtVec(u)
		if ru == 0 {
			continue
		}
		d := s.diag(u)
		if d == 0 {
			continue
		}
		delta := ru / d
		s.x.AddAt(u, delta)
		s.r.Set(u, 0)
		s.neighbor(u, func(j int, aij float64) {
			if j == u || aij == 0 {
				return
			}
			s.r.AddAt(j, -aij*delta)
			if math.Abs(s.r.AtVec(j)) > s.opts.Tau {
				s.q.push(j)
			}
		})
		s.pushes++
	}

	mass := s.r.Norm1()
	if mass < s.minMass {
		s.minMass = mass
	}
	return mass, s.q.empty()
}

// Diverged reports whether the residual 1-norm has grown to more than 10x
// its running minimum, the divergence signal for matrices outside push's
// applicability (not diagonally dominant enough for the local updates to
// contract).
func (s *Stepper) Diverged() bool {
	if s.minMass == 0 {
		return false
	}
	return s.r.Norm1() > 10*s.minMass
}

// Solution returns the current dense estimate.
func (s *Stepper) Solution() *mat.VecDense { return s.x.ToDense() }

// Iterations returns the number of individual node pushes performed so
// far (not rounds); this is the natural work unit to compare against
// MaxPushes.
func (s *Stepper) Iterations() int { return s.pushes }

// DeltaX returns the sparse solution accumulated so far, suitable for
// inclusion in an iteration snapshot.
func (s *Stepper) DeltaX() *matrix.SparseVector { return s.x }

// Residual exposes the current residual vector, e.g. for bidirectional to
// hand off the leftover mass to random-walk estimation.
func (s *Stepper) Residual() *matrix.SparseVector { return s.r }

// SetTau tightens or relaxes the activation threshold for subsequent
// rounds, without disturbing x or r, implementing bidirectional's adaptive
// gamma-halving policy: when push alone leaves too large a residual
// support, the caller lowers tau and keeps stepping the same Stepper
// rather than restarting it.
func (s *Stepper) SetTau(tau float64) {
	s.opts.Tau = tau
	s.r.DoNonZero(func(j int, v float64) {
		if math.Abs(v) > tau && !s.q.onQueue[j] {
			s.q.push(j)
		}
	})
}

func rowNeighbors(a *matrix.CSR) neighborFunc {
	return func(u int, fn func(j int, aij float64)) { a.DoRow(u, fn) }
}

func colNeighbors(c *matrix.CSC) neighborFunc {
	return func(u int, fn func(j int, aij float64)) { c.DoCol(u, fn) }
}

func rowDiag(a *matrix.CSR) diagFunc { return func(u int) float64 { return a.At(u, u) } }

// NewForwardStepper prepares a push.Stepper that resolves A x = b along
// A's columns.
func NewForwardStepper(a *matrix.CSR, b mat.Vector, opts Options) (*Stepper, error) {
	rows, cols := a.Dims()
	if rows != cols {
		return nil, solverr.New(solverr.InvalidInput, "push.NewForwardStepper", "matrix must be square")
	}
	if b.Len() != rows {
		return nil, solverr.New(solverr.InvalidInput, "push.NewForwardStepper", "b length disagrees with A")
	}
	csc := a.ToCOO().ToCSC()
	return newStepper(rows, rowDiag(a), colNeighbors(csc), b, opts), nil
}

// NewBackwardStepper prepares a push.Stepper that resolves Aᵀ x = b along
// A's rows, i.e. forward push run on the transpose without
// materializing it.
func NewBackwardStepper(a *matrix.CSR, b mat.Vector, opts Options) (*Stepper, error) {
	rows, cols := a.Dims()
	if rows != cols {
		return nil, solverr.New(solverr.InvalidInput, "push.NewBackwardStepper", "matrix must be square")
	}
	if b.Len() != rows {
		return nil, solverr.New(solverr.InvalidInput, "push.NewBackwardStepper", "b length disagrees with A")
	}
	return newStepper(rows, rowDiag(a), rowNeighbors(a), b, opts), nil
}

// Forward runs forward push to completion.
func Forward(a *matrix.CSR, b mat.Vector, opts Options) (Result, error) {
	s, err := NewForwardStepper(a, b, opts)
	if err != nil {
		return Result{}, err
	}
	return run(s, "push.Forward")
}

// Backward runs backward push to completion.
func Backward(a *matrix.CSR, b mat.Vector, opts Options) (Result, error) {
	s, err := NewBackwardStepper(a, b, opts)
	if err != nil {
		return Result{}, err
	}
	return run(s, "push.Backward")
}

func run(s *Stepper, op string) (Result, error) {
	for {
		_, converged := s.Step()
		if converged {
			return Result{X: s.x, R: s.r, Pushes: s.pushes, Converged: true}, nil
		}
		if s.Diverged() {
			return Result{X: s.x, R: s.r, Pushes: s.pushes, Converged: false},
				solverr.New(solverr.NumericFailure, op, "residual mass diverging")
		}
		if s.pushes >= s.opts.MaxPushes {
			return Result{X: s.x, R: s.r, Pushes: s.pushes, Converged: false},
				solverr.Budget(op, "push budget exhausted before convergence", solverr.NotConverged)
		}
	}
}
