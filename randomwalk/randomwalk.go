// Package randomwalk estimates a single entry of the solution to A x = b by
// Monte-Carlo sampling of terminating random walks, following the classic
// Forsythe-Leibler scheme: a walk started at the query coordinate
// accumulates c_k = b_k/A_kk at every node it visits and moves to neighbour
// j with probability |A_kj|/A_kk, terminating with the probability left
// over once every neighbour's share is accounted for. The walk count needed
// for a target confidence interval is determined adaptively from the
// running sample variance rather than fixed in advance.
package randomwalk

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sublinearlabs/solver/matrix"
	"github.com/sublinearlabs/solver/solverr"
)

// Options configures a random-walk estimate.
type Options struct {
	Epsilon     float64 // target half-width of the confidence interval
	Confidence  float64 // e.g. 0.95
	Seed        uint64
	Deterministic bool
	Workers     int
	MaxWalks    int
	// InitialWalks is the size of the first sampling batch, before the
	// walk count is adapted to the observed variance.
	InitialWalks int
	// MaxSteps bounds an individual walk's length as a safety net against
	// near-unit spectral radius producing effectively unbounded walks.
	MaxSteps int
}

func (o Options) withDefaults() Options {
	if o.Epsilon <= 0 {
		o.Epsilon = 1e-2
	}
	if o.Confidence <= 0 {
		o.Confidence = 0.95
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Deterministic {
		// A deterministic estimate must be reproducible call to call;
		// forcing single-threaded sampling removes goroutine scheduling
		// as a source of variation in which split-seed stream draws
		// which sample, regardless of the caller's requested Workers.
		o.Workers = 1
	}
	if o.MaxWalks <= 0 {
		o.MaxWalks = 200000
	}
	if o.InitialWalks <= 0 {
		o.InitialWalks = 30
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = 10000
	}
	return o
}

// Result is the outcome of a single-entry estimate.
type Result struct {
	Estimate            float64
	HalfWidth           float64
	Confidence          float64
	Walks               int
	FiniteSampleWarning bool // true when the final sample count is below 30
}

// Estimate samples random walks from row to estimate x[row] where x solves
// A x = b, refining the walk count until the confidence interval implied by
// the running sample variance is within Epsilon of the mean, MaxWalks is
// reached, or Deterministic with Seed == 0 is rejected as misconfigured.
func Estimate(a *matrix.CSR, b mat.Vector, row int, opts Options) (Result, error) {
	rows, cols := a.Dims()
	if rows != cols {
		return Result{}, solverr.New(solverr.InvalidInput, "randomwalk.Estimate", "matrix must be square")
	}
	if row < 0 || row >= rows {
		return Result{}, solverr.New(solverr.InvalidInput, "randomwalk.Estimate", "row out of range")
	}
	if b.Len() != rows {
		return Result{}, solverr.New(solverr.InvalidInput, "randomwalk.Estimate", "b length disagrees with A")
	}
	opts = opts.withDefaults()
	if opts.Deterministic && opts.Seed == 0 {
		return Result{}, solverr.New(solverr.InvalidInput, "randomwalk.Estimate", "deterministic mode requires a non-zero seed")
	}

	var samples []float64
	var nextWorker int
	// estimateParallel draws n more walk samples, splitting them across
	// opts.Workers goroutines (§5's opt-in data-parallel random-walk
	// primitive) each with its own split-seed stream so the result is
	// reproducible given a fixed seed regardless of scheduling, as long
	// as the batch boundaries themselves are deterministic (they are:
	// Deterministic forces Workers to 1 in withDefaults, so the
	// goroutine split never runs for a reproducible estimate).
	estimateParallel := func(n int) ([]float64, error) {
		out := make([]float64, n)
		workers := opts.Workers
		if workers > n {
			workers = n
		}
		base := nextWorker
		nextWorker += workers

		g, _ := errgroup.WithContext(context.Background())
		chunk := (n + workers - 1) / workers
		for w := 0; w < workers; w++ {
			w := w
			lo := w * chunk
			hi := lo + chunk
			if hi > n {
				hi = n
			}
			if lo >= hi {
				continue
			}
			g.Go(func() error {
				rng := newRand(opts.Seed, base+w)
				for k := lo; k < hi; k++ {
					v, err := walk(a, b, row, rng, opts.MaxSteps)
					if err != nil {
						return err
					}
					out[k] = v
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	}

	z := distuv.UnitNormal.Quantile(0.5 + opts.Confidence/2)

	batch, err := estimateParallel(opts.InitialWalks)
	if err != nil {
		return Result{}, err
	}
	samples = append(samples, batch...)

	for {
		mean, variance := stat.MeanVariance(samples, nil)
		_ = mean
		required := opts.InitialWalks
		if variance > 0 {
			required = int(math.Ceil((z / opts.Epsilon) * (z / opts.Epsilon) * variance))
		}
		if required < opts.InitialWalks {
			required = opts.InitialWalks
		}
		if required > opts.MaxWalks {
			required = opts.MaxWalks
		}
		if len(samples) >= required || len(samples) >= opts.MaxWalks {
			break
		}
		more, err := estimateParallel(required - len(samples))
		if err != nil {
			return Result{}, err
		}
		samples = append(samples, more...)
	}

	mean, variance := stat.MeanVariance(samples, nil)
	halfWidth := z * math.Sqrt(variance/float64(len(samples)))

	return Result{
		Estimate:            mean,
		HalfWidth:           halfWidth,
		Confidence:          opts.Confidence,
		Walks:               len(samples),
		FiniteSampleWarning: len(samples) < 30,
	}, nil
}

// walk runs a single terminating random walk from row and returns its
// signed contribution to x[row].
func walk(a *matrix.CSR, b mat.Vector, row int, rng interface{ Float64() float64 }, maxSteps int) (float64, error) {
	current := row
	weight := 1.0
	var sum float64

	type neighbor struct {
		j int
		w float64 // signed -A_ij/A_ii
	}

	for step := 0; step < maxSteps; step++ {
		d := a.At(current, current)
		if d == 0 {
			return 0, solverr.New(solverr.NumericFailure, "randomwalk.walk", "zero diagonal entry visited")
		}
		sum += weight * b.AtVec(current) / d

		var neighbors []neighbor
		var absSum float64
		a.DoRow(current, func(j int, v float64) {
			if j == current || v == 0 {
				return
			}
			w := -v / d
			neighbors = append(neighbors, neighbor{j, w})
			absSum += math.Abs(w)
		})

		pTerm := 1 - absSum
		if pTerm < 0 {
			pTerm = 0
		}
		r := rng.Float64()
		if r < pTerm || len(neighbors) == 0 {
			break
		}

		target := r - pTerm
		var cum float64
		next := -1
		var nextW float64
		for _, nb := range neighbors {
			cum += math.Abs(nb.w)
			if target < cum {
				next = nb.j
				nextW = nb.w
				break
			}
		}
		if next == -1 {
			break
		}
		if nextW < 0 {
			weight = -weight
		}
		current = next
	}
	return sum, nil
}
