package solve

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/sublinearlabs/solver/matrix"
)

// DefaultProbes is the random-probe count Verify falls back to when the
// caller passes probes <= 0.
const DefaultProbes = 10

// VerifyResult is the outcome of a random-probe verification pass.
type VerifyResult struct {
	Ok             bool
	ProbesChecked  int
	FailingRows    []int
	MaxRowResidual float64
}

// Verify spot-checks a candidate solution by recomputing the residual at a
// random sample of rows rather than the full Ax - b, catching a systematic
// error in O(probes * average row nnz) instead of O(nnz). seed == 0 draws
// from a fresh, non-reproducible stream.
func Verify(a *matrix.CSR, b mat.Vector, x *mat.VecDense, probes int, tolerance float64, seed uint64) VerifyResult {
	rows, _ := a.Dims()
	if probes <= 0 {
		probes = DefaultProbes
	}
	if probes > rows {
		probes = rows
	}

	var rng *rand.Rand
	if seed == 0 {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	} else {
		rng = rand.New(rand.NewPCG(seed, seed^0x2545F4914F6CDD1D))
	}

	seen := make(map[int]bool, probes)
	var failing []int
	var maxResidual float64
	checked := 0

	for checked < probes && len(seen) < rows {
		i := rng.IntN(rows)
		if seen[i] {
			continue
		}
		seen[i] = true
		checked++

		var axi float64
		a.DoRow(i, func(j int, v float64) { axi += v * x.AtVec(j) })
		residual := axi - b.AtVec(i)
		if residual < 0 {
			residual = -residual
		}
		if residual > maxResidual {
			maxResidual = residual
		}
		if residual > tolerance {
			failing = append(failing, i)
		}
	}

	return VerifyResult{
		Ok:             len(failing) == 0,
		ProbesChecked:  checked,
		FailingRows:    failing,
		MaxRowResidual: maxResidual,
	}
}
