package randomwalk

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

// TestEstimateMatchesDenseSolution checks that the random-walk estimate of
// every entry of a well-conditioned system lands within five reported
// half-widths (plus 0.05) of the dense solution.
func TestEstimateMatchesDenseSolution(t *testing.T) {
	a := tridiagonal(5, 10, -1)
	b := mat.NewVecDense(5, []float64{1, 2, 3, 4, 5})

	want, err := matrix.DenseSolve(a, b)
	if err != nil {
		t.Fatalf("DenseSolve: %v", err)
	}

	for row := 0; row < 5; row++ {
		res, err := Estimate(a, b, row, Options{Epsilon: 0.01, Confidence: 0.95, Deterministic: true, Seed: uint64(100 + row)})
		if err != nil {
			t.Fatalf("Estimate(row=%d): %v", row, err)
		}
		diff := math.Abs(res.Estimate - want.AtVec(row))
		// Allow generous slack: epsilon bounds the *sampling* error only,
		// not truncation, and the walk is capped at MaxSteps.
		if diff > 5*res.HalfWidth+0.05 {
			t.Errorf("row %d: estimate %v (+-%v) too far from true value %v", row, res.Estimate, res.HalfWidth, want.AtVec(row))
		}
	}
}

func TestEstimateDeterministicReproducible(t *testing.T) {
	a := tridiagonal(4, 10, -1)
	b := mat.NewVecDense(4, []float64{1, 1, 1, 1})

	opts := Options{Epsilon: 0.02, Confidence: 0.9, Deterministic: true, Seed: 42}
	r1, err := Estimate(a, b, 1, opts)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	r2, err := Estimate(a, b, 1, opts)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if r1.Estimate != r2.Estimate || r1.Walks != r2.Walks {
		t.Errorf("expected reproducible estimates with a fixed seed, got %+v vs %+v", r1, r2)
	}
}

func TestEstimateRejectsDeterministicWithoutSeed(t *testing.T) {
	a := tridiagonal(3, 5, -1)
	b := mat.NewVecDense(3, []float64{1, 1, 1})
	_, err := Estimate(a, b, 0, Options{Deterministic: true})
	if err == nil {
		t.Fatalf("expected error for deterministic mode without a seed")
	}
}

func TestEstimateRejectsOutOfRangeRow(t *testing.T) {
	a := tridiagonal(3, 5, -1)
	b := mat.NewVecDense(3, []float64{1, 1, 1})
	_, err := Estimate(a, b, 5, Options{Deterministic: true, Seed: 1})
	if err == nil {
		t.Fatalf("expected error for out-of-range row")
	}
}

func TestEstimateFlagsFiniteSampleWarning(t *testing.T) {
	a := tridiagonal(3, 1000, -1) // extremely dominant: walks terminate almost immediately, variance ~ 0
	b := mat.NewVecDense(3, []float64{1, 1, 1})

	res, err := Estimate(a, b, 0, Options{Epsilon: 0.5, Confidence: 0.95, Deterministic: true, Seed: 7, InitialWalks: 20})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if res.Walks != 20 {
		t.Fatalf("expected the adaptive loop to stop at InitialWalks for near-zero variance, got %d", res.Walks)
	}
	if !res.FiniteSampleWarning {
		t.Errorf("expected FiniteSampleWarning for a 20-walk sample")
	}
}

func TestEstimateParallelMatchesSerial(t *testing.T) {
	a := tridiagonal(6, 10, -1)
	b := mat.NewVecDense(6, []float64{1, 2, 3, 4, 5, 6})

	serial, err := Estimate(a, b, 2, Options{Epsilon: 0.02, Confidence: 0.9, Deterministic: true, Seed: 99, Workers: 1})
	if err != nil {
		t.Fatalf("Estimate serial: %v", err)
	}
	parallel, err := Estimate(a, b, 2, Options{Epsilon: 0.02, Confidence: 0.9, Seed: 99, Workers: 4})
	if err != nil {
		t.Fatalf("Estimate parallel: %v", err)
	}
	if math.Abs(serial.Estimate-parallel.Estimate) > 0.15 {
		t.Errorf("serial %v and parallel %v estimates diverge more than sampling noise should allow", serial.Estimate, parallel.Estimate)
	}
}
