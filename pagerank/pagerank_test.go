package pagerank

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/sublinearlabs/solver/matrix"
)

// uniformRing builds a row-stochastic directed cycle 0->1->...->n-1->0,
// the simplest graph with a known closed-form personalized PageRank
// (uniform over all nodes by symmetry when personalized from a uniform
// vector).
func uniformRing(n int) *matrix.CSR {
	coo := matrix.NewCOO(n, n, nil, nil, nil)
	for i := 0; i < n; i++ {
		coo.Set(i, (i+1)%n, 1)
	}
	return coo.ToCSR()
}

func TestPersonalizedFromSumsToOne(t *testing.T) {
	g, err := NewGraph(uniformRing(5))
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	v := mat.NewVecDense(5, []float64{0.2, 0.2, 0.2, 0.2, 0.2})

	res, err := PersonalizedFrom(g, v, Options{Damping: 0.85, Epsilon: 1e-10})
	if err != nil {
		t.Fatalf("PersonalizedFrom: %v", err)
	}

	var sum float64
	for _, r := range res.Ranks {
		sum += r
	}
	if math.Abs(sum-1) > 1e-4 {
		t.Errorf("ranks sum to %v, want 1", sum)
	}
}

func TestPersonalizedFromRingIsUniform(t *testing.T) {
	g, err := NewGraph(uniformRing(4))
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	v := mat.NewVecDense(4, []float64{0.25, 0.25, 0.25, 0.25})

	res, err := PersonalizedFrom(g, v, Options{Damping: 0.85, Epsilon: 1e-10})
	if err != nil {
		t.Fatalf("PersonalizedFrom: %v", err)
	}
	for i, r := range res.Ranks {
		if math.Abs(r-0.25) > 1e-3 {
			t.Errorf("rank[%d] = %v, want ~0.25 by symmetry", i, r)
		}
	}
}

func TestRankedBreaksTiesByIndex(t *testing.T) {
	res := Result{Ranks: []float64{0.5, 0.5, 0.1}}
	ranked := res.Ranked()
	if ranked[0] != 0 || ranked[1] != 1 || ranked[2] != 2 {
		t.Errorf("Ranked() = %v, want [0 1 2]", ranked)
	}
}

func TestNewGraphRejectsNonStochasticRow(t *testing.T) {
	coo := matrix.NewCOO(2, 2, nil, nil, nil)
	coo.Set(0, 0, 0.5)
	coo.Set(0, 1, 0.7) // sums to 1.2
	coo.Set(1, 0, 1)
	_, err := NewGraph(coo.ToCSR())
	if err == nil {
		t.Errorf("expected malformed-graph error for a non-stochastic row")
	}
}

func TestDanglingRowTeleportsToPersonalization(t *testing.T) {
	coo := matrix.NewCOO(3, 3, nil, nil, nil)
	coo.Set(0, 1, 1)
	coo.Set(1, 0, 1)
	// row 2 is dangling: no outgoing edges at all.
	g, err := NewGraph(coo.ToCSR())
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	v := mat.NewVecDense(3, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3})

	res, err := PersonalizedFrom(g, v, Options{Damping: 0.85, Epsilon: 1e-10})
	if err != nil {
		t.Fatalf("PersonalizedFrom: %v", err)
	}
	var sum float64
	for _, r := range res.Ranks {
		sum += r
	}
	if math.Abs(sum-1) > 1e-4 {
		t.Errorf("ranks sum to %v, want 1 even with a dangling row", sum)
	}
}

func TestPersonalizedFromRejectsBadDamping(t *testing.T) {
	g, _ := NewGraph(uniformRing(3))
	v := mat.NewVecDense(3, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3})
	_, err := PersonalizedFrom(g, v, Options{Damping: 1.5})
	if err == nil {
		t.Errorf("expected bad-damping error")
	}
}

func TestPersonalizedFromRejectsNegativeDamping(t *testing.T) {
	g, _ := NewGraph(uniformRing(3))
	v := mat.NewVecDense(3, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3})
	_, err := PersonalizedFrom(g, v, Options{Damping: -0.1})
	if err == nil {
		t.Errorf("expected bad-damping error for negative alpha")
	}
}

func TestNewGraphRejectsNegativeWeight(t *testing.T) {
	coo := matrix.NewCOO(2, 2, nil, nil, nil)
	coo.Set(0, 1, 1.5)
	coo.Set(0, 0, -0.5)
	coo.Set(1, 0, 1)
	csr := coo.ToCSR()
	if _, err := NewGraph(csr); err == nil {
		t.Errorf("expected malformed-graph error for negative edge weight")
	}
}
