package matrix

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// FromDense builds a canonical CSR from a row-major dense array, skipping
// stored zeros. rows*cols must equal len(values).
func FromDense(rows, cols int, values []float64) (*CSR, error) {
	if rows < 0 || cols < 0 || len(values) != rows*cols {
		return nil, ErrInvalidShape
	}
	coo := NewCOO(rows, cols, nil, nil, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := values[i*cols+j]
			if v == 0 {
				continue
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, ErrInvalidShape
			}
			coo.Set(i, j, v)
		}
	}
	canon, err := coo.Canonicalize()
	if err != nil {
		return nil, err
	}
	return canon.ToCSR(), nil
}

// FromCOO canonicalizes 0-based parallel rowIndices/colIndices/values
// triplets into a CSR. It rejects negative indices explicitly (the boundary
// contract of "the core rejects 1-based inputs by range check" in spec §6
// is enforced the same way Canonicalize enforces any other out-of-range
// index: there is no separate 1-based code path to special-case).
func FromCOO(rows, cols int, rowIndices, colIndices []int, values []float64) (*CSR, error) {
	coo := NewCOO(rows, cols, append([]int(nil), rowIndices...), append([]int(nil), colIndices...), append([]float64(nil), values...))
	canon, err := coo.Canonicalize()
	if err != nil {
		return nil, err
	}
	return canon.ToCSR(), nil
}

// FromCSR validates and wraps already row-pointer-encoded data as a CSR,
// checking row_ptr monotonicity, in-range column indices and ascending
// column order within each row per the Sparse Matrix Substrate contract
// (§4.1). It copies no data: the returned CSR shares the input slices.
func FromCSR(rows, cols int, values []float64, colIndices, rowPointer []int) (*CSR, error) {
	if rows < 0 || cols < 0 || len(rowPointer) != rows+1 || len(values) != len(colIndices) {
		return nil, ErrInvalidShape
	}
	if rowPointer[0] != 0 || rowPointer[rows] != len(values) {
		return nil, ErrInvalidShape
	}
	for i := 0; i < rows; i++ {
		if rowPointer[i] > rowPointer[i+1] {
			return nil, ErrInvalidShape
		}
		last := -1
		for k := rowPointer[i]; k < rowPointer[i+1]; k++ {
			j := colIndices[k]
			if j < 0 || j >= cols || j <= last {
				return nil, ErrInvalidShape
			}
			last = j
			if math.IsNaN(values[k]) || math.IsInf(values[k], 0) {
				return nil, ErrInvalidShape
			}
		}
	}
	return NewCSR(rows, cols, rowPointer, colIndices, values), nil
}

// DenseSolve solves the tiny O(n^2) diagnostic path named in spec §4.1's
// non-goal carve-out ("no dense linear-algebra fallback beyond O(n^2)
// diagnostic paths on tiny inputs"): it is used by tests as a reference
// solution, never by a production solver path.
func DenseSolve(a *CSR, b *mat.VecDense) (*mat.VecDense, error) {
	r, c := a.Dims()
	if r != c {
		return nil, ErrNotSquare
	}
	dense := a.ToDense()
	var x mat.VecDense
	if err := x.SolveVec(dense, b); err != nil {
		return nil, err
	}
	return &x, nil
}
