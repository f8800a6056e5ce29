package push

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

func TestForwardMatchesDenseSolution(t *testing.T) {
	a := tridiagonal(5, 10, -1)
	b := mat.NewVecDense(5, []float64{1, 2, 3, 4, 5})

	res, err := Forward(a, b, Options{Epsilon: 1e-10})
	if err != nil {
		t.Fatalf("Forward returned error: %v", err)
	}
	if !res.Converged {
		t.Fatalf("expected convergence")
	}

	want, err := matrix.DenseSolve(a, b)
	if err != nil {
		t.Fatalf("DenseSolve: %v", err)
	}
	x := res.X.ToDense()
	for i := 0; i < 5; i++ {
		if math.Abs(x.AtVec(i)-want.AtVec(i)) > 1e-6 {
			t.Errorf("x[%d] = %v, want %v", i, x.AtVec(i), want.AtVec(i))
		}
	}
}

func TestBackwardMatchesTransposeSolution(t *testing.T) {
	coo := matrix.NewCOO(3, 3, nil, nil, nil)
	coo.Set(0, 0, 10)
	coo.Set(1, 1, 10)
	coo.Set(2, 2, 10)
	coo.Set(0, 1, -2)
	coo.Set(1, 2, -3)
	a := coo.ToCSR()
	b := mat.NewVecDense(3, []float64{1, 1, 1})

	res, err := Backward(a, b, Options{Epsilon: 1e-10})
	if err != nil {
		t.Fatalf("Backward returned error: %v", err)
	}

	at := a.ToCOO().T().(*matrix.COO).ToCSR()
	want, err := matrix.DenseSolve(at, b)
	if err != nil {
		t.Fatalf("DenseSolve: %v", err)
	}
	x := res.X.ToDense()
	for i := 0; i < 3; i++ {
		if math.Abs(x.AtVec(i)-want.AtVec(i)) > 1e-6 {
			t.Errorf("x[%d] = %v, want %v", i, x.AtVec(i), want.AtVec(i))
		}
	}
}

// TestPushResidualMassNonIncreasing checks that for a strictly diagonally
// dominant matrix, no round of forward push increases the residual 1-norm
// and the push converges within 20 rounds.
func TestPushResidualMassNonIncreasing(t *testing.T) {
	a := tridiagonal(6, 10, -1) // delta = 0.8
	b := mat.NewVecDense(6, []float64{1, 1, 1, 1, 1, 1})

	s, err := NewForwardStepper(a, b, Options{Epsilon: 1e-12})
	if err != nil {
		t.Fatalf("NewForwardStepper: %v", err)
	}

	prev := s.r.Norm1()
	for round := 0; round < 20; round++ {
		mass, converged := s.Step()
		if mass > prev+1e-9 {
			t.Fatalf("round %d: residual mass increased from %v to %v", round, prev, mass)
		}
		prev = mass
		if converged {
			return
		}
	}
	t.Fatalf("push did not converge within 20 rounds")
}

func TestForwardRejectsNonSquare(t *testing.T) {
	coo := matrix.NewCOO(2, 3, nil, nil, nil)
	if _, err := Forward(coo.ToCSR(), mat.NewVecDense(2, nil), Options{}); err == nil {
		t.Errorf("expected error for non-square matrix")
	}
}

func TestForwardZeroRHSConvergesImmediately(t *testing.T) {
	a := tridiagonal(4, 5, -1)
	res, err := Forward(a, mat.NewVecDense(4, nil), Options{})
	if err != nil {
		t.Fatalf("Forward returned error: %v", err)
	}
	if !res.Converged || res.Pushes != 0 {
		t.Errorf("expected immediate convergence with zero pushes, got %+v", res)
	}
}

func TestForwardParallelMatchesSerial(t *testing.T) {
	a := tridiagonal(40, 10, -1)
	data := make([]float64, 40)
	for i := range data {
		data[i] = float64(i%5) + 1
	}
	b := mat.NewVecDense(40, data)

	serial, err := Forward(a, b, Options{Epsilon: 1e-10})
	if err != nil {
		t.Fatalf("serial Forward: %v", err)
	}
	parallel, err := Forward(a, b, Options{Epsilon: 1e-10, Workers: 4})
	if err != nil {
		t.Fatalf("parallel Forward: %v", err)
	}
	if !parallel.Converged {
		t.Fatalf("expected parallel run to converge")
	}

	xs := serial.X.ToDense()
	xp := parallel.X.ToDense()
	for i := 0; i < 40; i++ {
		if math.Abs(xs.AtVec(i)-xp.AtVec(i)) > 1e-6 {
			t.Errorf("x[%d]: serial %v, parallel %v", i, xs.AtVec(i), xp.AtVec(i))
		}
	}
}

func TestForwardDetectsDivergenceOnNonDominantMatrix(t *testing.T) {
	coo := matrix.NewCOO(3, 3, nil, nil, nil)
	coo.Set(0, 0, 1)
	coo.Set(0, 1, 5)
	coo.Set(1, 1, 1)
	coo.Set(1, 2, 5)
	coo.Set(2, 2, 1)
	coo.Set(2, 0, 5)
	a := coo.ToCSR()

	_, err := Forward(a, mat.NewVecDense(3, []float64{1, 1, 1}), Options{Epsilon: 1e-12, MaxPushes: 10000})
	if err == nil {
		t.Fatalf("expected a divergence or budget error on a non-dominant matrix")
	}
}
