package solve

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/sublinearlabs/solver/matrix"
)

// Iterator lazily advances a Solve in progress one iteration at a time.
// Next is a synchronous call: there is no background goroutine driving
// it, so a caller that stops calling Next simply leaves the underlying
// Stepper idle, with no cleanup required.
type Iterator struct {
	s         Stepper
	method    Method
	fallback  string
	opts      Options
	conv      *Convergence
	start     time.Time
	deadline  time.Time
	done      bool
	lastErr   error
}

// Stream prepares an Iterator for a to b under opts, selecting a method
// exactly as Solve would (including Auto fallback across the selection
// table), but returning control to the caller after each iteration instead
// of running to completion.
func Stream(a *matrix.CSR, b mat.Vector, opts Options) (*Iterator, error) {
	opts = opts.withDefaults()
	s, method, fallback, err := pickStepper(a, b, opts)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	var deadline time.Time
	if opts.TimeBudget > 0 {
		deadline = start.Add(opts.TimeBudget)
	}
	return &Iterator{
		s:        s,
		method:   method,
		fallback: fallback,
		opts:     opts,
		conv:     NewConvergence(DefaultEWMAAlpha, opts.ConvergenceWindow),
		start:    start,
		deadline: deadline,
	}, nil
}

// Next advances the solve by one iteration. ok is false once the sequence
// has ended (convergence, divergence, or budget exhaustion); the
// triggering error, if any, is available via Err.
func (it *Iterator) Next() (Snapshot, bool) {
	if it.done {
		return Snapshot{}, false
	}

	if it.opts.Ctx.Err() != nil {
		it.done = true
		it.lastErr = errCancelled
		return Snapshot{Iteration: it.s.Iterations(), ElapsedNs: time.Since(it.start).Nanoseconds()}, true
	}

	resid, converged := it.s.Step()
	stagnated, drifted := it.conv.Observe(resid)

	if drifted {
		if scaler, ok := it.s.(stepSizeScaler); ok {
			scaler.ScaleStepSize(0.8)
		}
	}

	snap := Snapshot{
		Iteration:    it.s.Iterations(),
		ResidualNorm: resid,
		DeltaX:       it.s.DeltaX(),
		ElapsedNs:    time.Since(it.start).Nanoseconds(),
		Converged:    converged,
		Stagnated:    stagnated,
		Drifted:      drifted,
	}

	switch {
	case converged:
		it.done = true
	case func() bool { dv, ok := it.s.(diverger); return ok && dv.Diverged() }():
		it.done = true
		it.lastErr = errDiverged
	case it.s.Iterations() >= it.opts.MaxIterations:
		it.done = true
		it.lastErr = errBudgetIterations
	case !it.deadline.IsZero() && time.Now().After(it.deadline):
		it.done = true
		it.lastErr = errBudgetTimeout
	}

	return snap, true
}

// Err returns the error that ended the sequence, or nil if it ended by
// convergence or has not ended yet.
func (it *Iterator) Err() error { return it.lastErr }

// Result packages the Iterator's current state as a Result, usable once
// Next has returned ok == false.
func (it *Iterator) Result() Result {
	return Result{
		Solution:     it.s.Solution(),
		Iterations:   it.s.Iterations(),
		Residual:     it.conv.EWMA(),
		Converged:    it.lastErr == nil,
		Method:       it.method.String(),
		FallbackFrom: it.fallback,
		ElapsedNs:    time.Since(it.start).Nanoseconds(),
	}
}
