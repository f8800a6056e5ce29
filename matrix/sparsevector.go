package matrix

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	_ mat.Matrix = (*SparseVector)(nil)
	_ mat.Vector = (*SparseVector)(nil)
)

// SparseVector is an ordered sequence of (index, value) pairs with unique,
// ascending indices -- the Sparse Vector of the data model, used for
// residuals and push frontiers where most coordinates are zero. It
// implements gonum's mat.Vector so it interoperates with mat.Dense/VecDense
// wherever gonum accepts a generic Vector.
type SparseVector struct {
	n   int
	idx []int
	val []float64
}

// NewSparseVector returns a sparse vector of length n from already sorted,
// duplicate-free idx/val slices. The slices are used directly as backing
// storage: mutating them after construction mutates the vector.
func NewSparseVector(n int, idx []int, val []float64) *SparseVector {
	if len(idx) != len(val) {
		panic(ErrInvalidShape)
	}
	return &SparseVector{n: n, idx: idx, val: val}
}

// Dims returns (Len(), 1).
func (v *SparseVector) Dims() (r, c int) { return v.n, 1 }

// Len returns the vector's logical length.
func (v *SparseVector) Len() int { return v.n }

// NNZ returns the number of explicitly stored entries.
func (v *SparseVector) NNZ() int { return len(v.val) }

// At returns the element at (i, 0); it panics if j != 0.
func (v *SparseVector) At(i, j int) float64 {
	if j != 0 {
		panic(mat.ErrColAccess)
	}
	return v.AtVec(i)
}

// AtVec returns the i'th element, performing a binary search over the
// sorted index slice; coordinates with no stored entry are zero.
func (v *SparseVector) AtVec(i int) float64 {
	checkRow(i, v.n)
	k := sort.SearchInts(v.idx, i)
	if k < len(v.idx) && v.idx[k] == i {
		return v.val[k]
	}
	return 0
}

// T returns the transpose of the receiver as a mat.Matrix.
func (v *SparseVector) T() mat.Matrix {
	return mat.TransposeVec{Vector: v}
}

// DoNonZero calls fn once for every stored entry in index order.
func (v *SparseVector) DoNonZero(fn func(i int, val float64)) {
	for k, i := range v.idx {
		fn(i, v.val[k])
	}
}

// Set inserts or updates the value at i, preserving sort order. Zero
// values are stored only if an entry already exists for i (overwriting it
// with zero); new zero entries are never created.
func (v *SparseVector) Set(i int, val float64) {
	checkRow(i, v.n)
	k := sort.SearchInts(v.idx, i)
	if k < len(v.idx) && v.idx[k] == i {
		v.val[k] = val
		return
	}
	if val == 0 {
		return
	}
	v.idx = append(v.idx, 0)
	copy(v.idx[k+1:], v.idx[k:])
	v.idx[k] = i

	v.val = append(v.val, 0)
	copy(v.val[k+1:], v.val[k:])
	v.val[k] = val
}

// AddAt adds delta to the value stored at i, creating the entry if it did
// not previously exist. This is the primitive push algorithms use to
// discharge mass into a neighbour's residual.
func (v *SparseVector) AddAt(i int, delta float64) {
	v.Set(i, v.AtVec(i)+delta)
}

// ToDense materializes the vector as a dense *mat.VecDense.
func (v *SparseVector) ToDense() *mat.VecDense {
	data := make([]float64, v.n)
	for k, i := range v.idx {
		data[i] = v.val[k]
	}
	return mat.NewVecDense(v.n, data)
}

// Norm1 returns the 1-norm (sum of absolute values) of the stored entries.
func (v *SparseVector) Norm1() float64 {
	var s float64
	for _, x := range v.val {
		if x < 0 {
			s -= x
		} else {
			s += x
		}
	}
	return s
}

// NormInf returns the infinity-norm (max absolute value) of the stored
// entries, or 0 for an all-zero vector.
func (v *SparseVector) NormInf() float64 {
	var m float64
	for _, x := range v.val {
		if x < 0 {
			x = -x
		}
		if x > m {
			m = x
		}
	}
	return m
}

// Indices returns the backing index slice. Callers must not retain it past
// the next mutating call to the vector.
func (v *SparseVector) Indices() []int { return v.idx }

// Values returns the backing value slice, aligned with Indices(). Callers
// must not retain it past the next mutating call to the vector.
func (v *SparseVector) Values() []float64 { return v.val }
