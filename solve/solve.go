package solve

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/sublinearlabs/solver/analyze"
	"github.com/sublinearlabs/solver/matrix"
	"github.com/sublinearlabs/solver/neumann"
	"github.com/sublinearlabs/solver/push"
	"github.com/sublinearlabs/solver/solverr"
)

// Result is the outcome of a Solve call.
type Result struct {
	Solution     *mat.VecDense
	Iterations   int
	Residual     float64
	Converged    bool
	Method       string
	FallbackFrom string // empty unless Auto selection fell back from a failed first choice
	ElapsedNs    int64
}

// Snapshot is one iteration's worth of streaming state, produced by
// Iterator.Next.
type Snapshot struct {
	Iteration    int
	ResidualNorm float64
	DeltaX       *matrix.SparseVector
	ElapsedNs    int64
	Converged    bool
	Stagnated    bool
	Drifted      bool
}

// candidate pairs a method name with how to construct its Stepper and the
// analyze.Properties predicate that makes it applicable; this is the
// method-selection table as data, walked in order, rather than a nested
// if-chain.
type candidate struct {
	method      Method
	applicable  func(analyze.Properties) bool
	newStepper  func(a *matrix.CSR, b mat.Vector, opts Options) (Stepper, error)
}

var selectionTable = []candidate{
	{
		method:     ForwardPush,
		applicable: func(p analyze.Properties) bool { return p.IsRowDD },
		newStepper: func(a *matrix.CSR, b mat.Vector, opts Options) (Stepper, error) {
			return push.NewForwardStepper(a, b, push.Options{Epsilon: opts.Epsilon, MaxPushes: opts.MaxIterations, Workers: opts.Workers})
		},
	},
	{
		method:     BackwardPush,
		applicable: func(p analyze.Properties) bool { return p.IsColDD },
		newStepper: func(a *matrix.CSR, b mat.Vector, opts Options) (Stepper, error) {
			// Backward push resolves Aᵀ x = b, so it is run on Aᵀ to solve A x = b.
			at := a.ToCOO().T().(*matrix.COO).ToCSR()
			return push.NewBackwardStepper(at, b, push.Options{Epsilon: opts.Epsilon, MaxPushes: opts.MaxIterations, Workers: opts.Workers})
		},
	},
	{
		method:     Neumann,
		applicable: func(p analyze.Properties) bool { return p.IsRowDD || p.IsColDD },
		newStepper: func(a *matrix.CSR, b mat.Vector, opts Options) (Stepper, error) {
			return neumann.NewStepper(a, b, neumann.Options{Epsilon: opts.Epsilon, MaxIterations: opts.MaxIterations, Workers: opts.Workers})
		},
	},
}

func candidateFor(m Method) *candidate {
	for i := range selectionTable {
		if selectionTable[i].method == m {
			return &selectionTable[i]
		}
	}
	return nil
}

// pickStepper builds a Stepper for opts.Method. Auto walks selectionTable
// in order against a's Properties, skipping candidates whose predicate
// fails and candidates whose constructor itself errors (NotApplicable or
// an immediate NumericFailure), recording FallbackFrom whenever it is not
// the first candidate tried.
func pickStepper(a *matrix.CSR, b mat.Vector, opts Options) (Stepper, Method, string, error) {
	if opts.Method != Auto {
		c := candidateFor(opts.Method)
		if c == nil {
			return nil, opts.Method, "", solverr.New(solverr.InvalidInput, "solve.Solve", "unknown method")
		}
		s, err := c.newStepper(a, b, opts)
		return s, opts.Method, "", err
	}

	props, err := analyze.Analyze(a, analyze.Checks{})
	if err != nil {
		return nil, Auto, "", err
	}

	var tried []string
	for _, c := range selectionTable {
		if !c.applicable(props) {
			continue
		}
		s, err := c.newStepper(a, b, opts)
		if err == nil {
			fallback := ""
			if len(tried) > 0 {
				fallback = tried[len(tried)-1]
			}
			return s, c.method, fallback, nil
		}
		tried = append(tried, c.method.String())
		opts.Logger.Log(Warn, "candidate method failed, trying next", "method", c.method.String(), "error", err.Error())
	}
	return nil, Auto, "", solverr.New(solverr.NotApplicable, "solve.Solve", "no applicable method for this matrix")
}

// Solve runs the orchestrator to completion, returning the final Result.
func Solve(a *matrix.CSR, b mat.Vector, opts Options) (Result, error) {
	opts = opts.withDefaults()
	start := time.Now()

	s, method, fallback, err := pickStepper(a, b, opts)
	if err != nil {
		return Result{}, err
	}

	deadline := time.Time{}
	if opts.TimeBudget > 0 {
		deadline = start.Add(opts.TimeBudget)
	}

	conv := NewConvergence(DefaultEWMAAlpha, opts.ConvergenceWindow)
	var lastResid float64

	for {
		if opts.Ctx.Err() != nil {
			return Result{Solution: s.Solution(), Iterations: s.Iterations(), Residual: lastResid, Method: method.String(), FallbackFrom: fallback, ElapsedNs: time.Since(start).Nanoseconds()},
				solverr.New(solverr.Cancelled, "solve.Solve", "cancelled")
		}

		resid, converged := s.Step()
		lastResid = resid
		stagnated, drifted := conv.Observe(resid)

		if drifted {
			if scaler, ok := s.(stepSizeScaler); ok {
				scaler.ScaleStepSize(0.8)
				opts.Logger.Log(Info, "drift detected, reducing step size", "method", method.String())
			}
		}

		if dv, ok := s.(diverger); ok && dv.Diverged() {
			return Result{Iterations: s.Iterations(), Method: method.String(), FallbackFrom: fallback, ElapsedNs: time.Since(start).Nanoseconds()},
				solverr.New(solverr.NumericFailure, "solve.Solve", "residual diverged")
		}

		if converged {
			return Result{Solution: s.Solution(), Iterations: s.Iterations(), Residual: resid, Converged: true, Method: method.String(), FallbackFrom: fallback, ElapsedNs: time.Since(start).Nanoseconds()}, nil
		}

		if stagnated {
			opts.Logger.Log(Warn, "iteration stagnated below variance threshold", "method", method.String(), "residual", resid)
		}

		if s.Iterations() >= opts.MaxIterations {
			return Result{Solution: s.Solution(), Iterations: s.Iterations(), Residual: resid, Method: method.String(), FallbackFrom: fallback, ElapsedNs: time.Since(start).Nanoseconds()},
				solverr.Budget("solve.Solve", "iteration cap reached before convergence", solverr.NotConverged)
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return Result{Solution: s.Solution(), Iterations: s.Iterations(), Residual: resid, Method: method.String(), FallbackFrom: fallback, ElapsedNs: time.Since(start).Nanoseconds()},
				solverr.Budget("solve.Solve", "time budget exhausted before convergence", solverr.Timeout)
		}
	}
}
