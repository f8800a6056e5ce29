package solve

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/sublinearlabs/solver/matrix"
)

func TestEstimateEntryAutoMatchesSolve(t *testing.T) {
	a := tridiagonal(6, 10, -1)
	b := mat.NewVecDense(6, []float64{1, 2, 3, 4, 5, 6})

	want, err := Solve(a, b, Options{Method: Auto, Epsilon: 1e-10})
	require.NoError(t, err)

	res, err := EstimateEntry(a, b, 1, EstimateOptions{Epsilon: 1e-6, Seed: 7})
	require.NoError(t, err)
	require.InDelta(t, want.Solution.AtVec(1), res.Estimate, 1e-4)
	require.Equal(t, float64(1), res.Confidence)
}

func TestEstimateEntrySmallMarginPrefersBidirectional(t *testing.T) {
	// Off-diagonal mass close to the diagonal pushes delta below the
	// small-margin threshold, so Auto should route straight to
	// bidirectional instead of a plain backward push.
	a := tridiagonal(20, 1.02, -0.49)
	b := mat.NewVecDense(20, make([]float64, 20))
	for i := range b.RawVector().Data {
		b.SetVec(i, 1)
	}

	res, err := EstimateEntry(a, b, 10, EstimateOptions{Epsilon: 1e-2, Seed: 3})
	require.NoError(t, err)
	require.Equal(t, "bidirectional", res.Method)
}

func TestEstimateEntryExplicitRandomWalk(t *testing.T) {
	a := tridiagonal(6, 10, -1)
	b := mat.NewVecDense(6, []float64{1, 2, 3, 4, 5, 6})

	res, err := EstimateEntry(a, b, 2, EstimateOptions{Method: EstimateRandomWalk, Epsilon: 0.1, Seed: 42})
	require.NoError(t, err)
	require.Equal(t, "random_walk", res.Method)
	require.Positive(t, res.Walks)
}

func TestEstimateEntryRejectsNonRDD(t *testing.T) {
	coo := matrix.NewCOO(3, 3, nil, nil, nil)
	coo.Set(0, 0, 1)
	coo.Set(0, 1, 5)
	coo.Set(1, 1, 1)
	coo.Set(1, 0, 5)
	coo.Set(2, 2, 1)
	a := coo.ToCSR()
	b := mat.NewVecDense(3, []float64{1, 1, 1})

	_, err := EstimateEntry(a, b, 0, EstimateOptions{})
	require.Error(t, err)
}

func TestEstimateEntryRejectsOutOfRangeRow(t *testing.T) {
	a := tridiagonal(4, 10, -1)
	b := mat.NewVecDense(4, []float64{1, 1, 1, 1})

	_, err := EstimateEntry(a, b, 10, EstimateOptions{})
	require.Error(t, err)
}
