package solve

import "github.com/sublinearlabs/solver/solverr"

var (
	errDiverged         = solverr.New(solverr.NumericFailure, "solve.Stream", "residual diverged")
	errBudgetIterations = solverr.Budget("solve.Stream", "iteration cap reached before convergence", solverr.NotConverged)
	errBudgetTimeout    = solverr.Budget("solve.Stream", "time budget exhausted before convergence", solverr.Timeout)
	errCancelled        = solverr.New(solverr.Cancelled, "solve.Stream", "cancelled")
)
