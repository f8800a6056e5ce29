package neumann

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/sublinearlabs/solver/matrix"
)

func tridiagonal(n int, diag, off float64) *matrix.CSR {
	coo := matrix.NewCOO(n, n, nil, nil, nil)
	for i := 0; i < n; i++ {
		coo.Set(i, i, diag)
		if i > 0 {
			coo.Set(i, i-1, off)
		}
		if i < n-1 {
			coo.Set(i, i+1, off)
		}
	}
	return coo.ToCSR()
}

func TestSolveMatchesDenseSolution(t *testing.T) {
	a := tridiagonal(4, 10, -1)
	b := mat.NewVecDense(4, []float64{1, 2, 3, 4})

	res, err := Solve(a, b, Options{Epsilon: 1e-10, MaxIterations: 500})
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if !res.Converged {
		t.Fatalf("expected convergence")
	}

	want, err := matrix.DenseSolve(a, b)
	if err != nil {
		t.Fatalf("DenseSolve: %v", err)
	}
	for i := 0; i < 4; i++ {
		if math.Abs(res.Solution.AtVec(i)-want.AtVec(i)) > 1e-6 {
			t.Errorf("x[%d] = %v, want %v", i, res.Solution.AtVec(i), want.AtVec(i))
		}
	}
}

func TestConvergenceBoundHolds(t *testing.T) {
	a := tridiagonal(5, 10, -1)
	b := mat.NewVecDense(5, []float64{1, 1, 1, 1, 1})

	s, err := NewStepper(a, b, Options{Epsilon: 1e-12, MaxIterations: 200})
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}

	delta := 0.8 // matches analyze.TestAnalyzeFidelityTridiagonal
	bNorm := 0.0
	for i := 0; i < 5; i++ {
		bNorm += b.AtVec(i) * b.AtVec(i)
	}
	bNorm = math.Sqrt(bNorm)

	for k := 1; k <= 30; k++ {
		resid, converged := s.Step()
		bound := ConvergenceBound(delta, k, bNorm)
		if resid > bound+1e-9 {
			t.Fatalf("iteration %d: residual %v exceeds bound %v", k, resid, bound)
		}
		if converged {
			break
		}
	}
}

func TestSolveRejectsNonSquare(t *testing.T) {
	coo := matrix.NewCOO(2, 3, nil, nil, nil)
	if _, err := Solve(coo.ToCSR(), mat.NewVecDense(2, nil), Options{}); err == nil {
		t.Errorf("expected error for non-square matrix")
	}
}

func TestSolveDetectsSingularDiagonal(t *testing.T) {
	coo := matrix.NewCOO(2, 2, nil, nil, nil)
	coo.Set(0, 0, 0)
	coo.Set(1, 1, 2)
	coo.Set(0, 1, 1)
	coo.Set(1, 0, 1)

	_, err := Solve(coo.ToCSR(), mat.NewVecDense(2, []float64{1, 1}), Options{})
	if err == nil {
		t.Fatalf("expected singular diagonal error")
	}
}

func TestSolveZeroRHSShortCircuits(t *testing.T) {
	a := tridiagonal(3, 5, -1)
	res, err := Solve(a, mat.NewVecDense(3, nil), Options{})
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if !res.Converged || res.Iterations != 0 {
		t.Errorf("expected immediate convergence with zero iterations, got %+v", res)
	}
}

func TestSolveRespectsMaxIterations(t *testing.T) {
	a := tridiagonal(3, 1.01, -0.5) // weakly dominant, slow convergence
	_, err := Solve(a, mat.NewVecDense(3, []float64{1, 1, 1}), Options{Epsilon: 1e-14, MaxIterations: 2})
	if err == nil {
		t.Fatalf("expected budget-exhausted error")
	}
}

func TestSolveWithWorkersMatchesSerial(t *testing.T) {
	a := tridiagonal(30, 10, -1)
	data := make([]float64, 30)
	for i := range data {
		data[i] = float64(i%4) + 1
	}
	b := mat.NewVecDense(30, data)

	serial, err := Solve(a, b, Options{Epsilon: 1e-10, MaxIterations: 500})
	if err != nil {
		t.Fatalf("serial Solve: %v", err)
	}
	parallel, err := Solve(a, b, Options{Epsilon: 1e-10, MaxIterations: 500, Workers: 4})
	if err != nil {
		t.Fatalf("parallel Solve: %v", err)
	}
	if !parallel.Converged {
		t.Fatalf("expected parallel solve to converge")
	}
	for i := 0; i < 30; i++ {
		if math.Abs(serial.Solution.AtVec(i)-parallel.Solution.AtVec(i)) > 1e-8 {
			t.Errorf("x[%d]: serial %v, parallel %v", i, serial.Solution.AtVec(i), parallel.Solution.AtVec(i))
		}
	}
}

func TestScaleStepSizeAppliesToSubsequentSteps(t *testing.T) {
	a := tridiagonal(3, 10, -1)
	b := mat.NewVecDense(3, []float64{1, 1, 1})
	s, err := NewStepper(a, b, Options{Epsilon: 1e-12, MaxIterations: 100})
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}
	s.Step()
	s.ScaleStepSize(0.8)
	if s.opts.StepSize != 0.8 {
		t.Errorf("StepSize = %v, want 0.8", s.opts.StepSize)
	}
}
