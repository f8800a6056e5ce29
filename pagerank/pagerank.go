// Package pagerank computes personalized PageRank as a teleporting random
// walk, resolved by forward push on M = I - alpha*Pᵀ with right-hand side
// (1-alpha)*v: the same equation solved by the personalized PageRank
// variant of the Andersen-Chung-Lang local push algorithm, expressed here
// in terms of the shared push package rather than a bespoke loop.
package pagerank

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/sublinearlabs/solver/matrix"
	"github.com/sublinearlabs/solver/push"
	"github.com/sublinearlabs/solver/solverr"
)

// Graph wraps a row-stochastic transition matrix P (row i holds node i's
// outgoing distribution) with precomputed dangling-row information: rows
// of P with zero out-degree are treated as teleporting according to the
// personalization vector rather than being left as hard zero rows, which
// would silently leak probability mass out of the system.
type Graph struct {
	p        *matrix.CSR
	dangling []bool
	n        int
}

// NewGraph validates that P is square and row-stochastic up to tolerance
// on its non-dangling rows, and records which rows are dangling.
func NewGraph(p *matrix.CSR) (*Graph, error) {
	rows, cols := p.Dims()
	if rows != cols {
		return nil, solverr.New(solverr.InvalidInput, "pagerank.NewGraph", "transition matrix must be square")
	}
	dangling := make([]bool, rows)
	for i := 0; i < rows; i++ {
		if p.RowNNZ(i) == 0 {
			dangling[i] = true
			continue
		}
		var sum float64
		var bad bool
		p.DoRow(i, func(_ int, v float64) {
			if v < 0 || math.IsNaN(v) {
				bad = true
			}
			sum += v
		})
		if bad {
			return nil, solverr.New(solverr.InvalidInput, "pagerank.NewGraph", "malformed graph: negative or NaN edge weight")
		}
		if math.Abs(sum-1) > 1e-8 {
			return nil, solverr.New(solverr.InvalidInput, "pagerank.NewGraph", "malformed graph: row does not sum to 1")
		}
	}
	return &Graph{p: p, dangling: dangling, n: rows}, nil
}

// Options configures a personalized PageRank computation.
type Options struct {
	Damping   float64 // alpha, the probability of following an edge rather than teleporting
	Epsilon   float64
	MaxPushes int
}

func (o Options) withDefaults() Options {
	if o.Damping == 0 {
		o.Damping = 0.85
	}
	if o.Epsilon <= 0 {
		o.Epsilon = 1e-8
	}
	if o.MaxPushes <= 0 {
		o.MaxPushes = 0 // let push choose its own default
	}
	return o
}

// Result holds the computed rank vector.
type Result struct {
	Ranks     []float64
	Pushes    int
	Converged bool
}

// Ranked returns node indices sorted by descending rank, breaking ties by
// ascending index for a deterministic order.
func (r Result) Ranked() []int {
	idx := make([]int, len(r.Ranks))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		if r.Ranks[idx[a]] != r.Ranks[idx[b]] {
			return r.Ranks[idx[a]] > r.Ranks[idx[b]]
		}
		return idx[a] < idx[b]
	})
	return idx
}

// PersonalizedFrom computes personalized PageRank with respect to
// personalization vector v (need not be normalised; it is used as-is as
// the right-hand side (1-alpha)*v, matching the uniform case v = 1/n·1).
func PersonalizedFrom(g *Graph, v mat.Vector, opts Options) (Result, error) {
	if v.Len() != g.n {
		return Result{}, solverr.New(solverr.InvalidInput, "pagerank.PersonalizedFrom", "personalization vector length disagrees with graph")
	}
	opts = opts.withDefaults()
	if opts.Damping <= 0 || opts.Damping >= 1 {
		return Result{}, solverr.New(solverr.InvalidInput, "pagerank.PersonalizedFrom", "bad damping: alpha must be in (0, 1)")
	}

	m, err := buildSystemMatrix(g, v, opts.Damping)
	if err != nil {
		return Result{}, err
	}

	rhs := mat.NewVecDense(g.n, nil)
	for i := 0; i < g.n; i++ {
		rhs.SetVec(i, (1-opts.Damping)*v.AtVec(i))
	}

	res, err := push.Forward(m, rhs, push.Options{Epsilon: opts.Epsilon, MaxPushes: opts.MaxPushes})
	if err != nil {
		if se, ok := err.(*solverr.Error); ok {
			return Result{Ranks: res.X.ToDense().RawVector().Data, Pushes: res.Pushes}, solverr.Wrap(se.Kind, "pagerank.PersonalizedFrom", se.Msg, se)
		}
		return Result{}, err
	}

	return Result{Ranks: res.X.ToDense().RawVector().Data, Pushes: res.Pushes, Converged: res.Converged}, nil
}

// buildSystemMatrix constructs M = I - alpha*Pᵀ as a CSR, folding the
// dangling-row teleport policy (row i of P replaced by v) directly into
// the triplet stream rather than mutating P itself.
func buildSystemMatrix(g *Graph, v mat.Vector, alpha float64) (*matrix.CSR, error) {
	coo := matrix.NewCOO(g.n, g.n, nil, nil, nil)
	for i := 0; i < g.n; i++ {
		coo.Set(i, i, 1)
	}
	for i := 0; i < g.n; i++ {
		if g.dangling[i] {
			for j := 0; j < g.n; j++ {
				vj := v.AtVec(j)
				if vj == 0 {
					continue
				}
				coo.Set(j, i, -alpha*vj)
			}
			continue
		}
		g.p.DoRow(i, func(j int, w float64) {
			coo.Set(j, i, -alpha*w)
		})
	}
	canon, err := coo.Canonicalize()
	if err != nil {
		return nil, solverr.Wrap(solverr.InvalidInput, "pagerank.buildSystemMatrix", "failed to canonicalize system matrix", err)
	}
	return canon.ToCSR(), nil
}
