// Package kernel provides the low-level sparse BLAS-style routines behind
// SpMV: dense-sparse AXPY and dot-product primitives operating on raw
// index/value slices, with no dependency on the matrix package's types, the
// same separation of concerns the teacher corpus draws between its sparse
// matrix types and their underlying blas kernels.
//
// See http://www.netlib.org/blas/blast-forum/chapter3.pdf for the sparse
// BLAS routines this package's naming follows.
package kernel

// CSR is the raw row-pointer encoding of a sparse matrix: Indptr has
// length Rows+1, Ind/Data are parallel slices of length Indptr[Rows].
type CSR struct {
	Rows, Cols int
	Indptr     []int
	Ind        []int
	Data       []float64
}

// Dusaxpy computes y[indx[i]] += alpha * x[i] for each i, the sparse
// update (AXPY) primitive the transposed SpMV kernels use to scatter one
// row's contribution into a dense output vector.
func Dusaxpy(alpha float64, x []float64, indx []int, y []float64) {
	if alpha == 0 {
		return
	}
	for i, idx := range indx {
		y[idx] += alpha * x[i]
	}
}

// Dusdot computes the dot product of sparse vector (indx, x) against dense
// vector y: sum_i x[i]*y[indx[i]]. This is the row-times-vector primitive
// behind SpMV.
func Dusdot(x []float64, indx []int, y []float64) float64 {
	var dot float64
	for i, idx := range indx {
		dot += x[i] * y[idx]
	}
	return dot
}

// SpMV computes dst = A*x for a raw CSR matrix, row by row. dst must have
// length a.Rows and x length a.Cols; SpMV does not allocate.
func SpMV(a CSR, x []float64, dst []float64) {
	for i := 0; i < a.Rows; i++ {
		start, end := a.Indptr[i], a.Indptr[i+1]
		dst[i] = Dusdot(a.Data[start:end], a.Ind[start:end], x)
	}
}

// SpMVTransposed computes dst = Aᵀ*x for a raw CSR matrix without
// materialising the transpose: row i of A contributes alpha=x[i] scaled
// into dst at each of that row's column positions via Dusaxpy. dst must
// have length a.Cols and be zeroed by the caller before the first call.
func SpMVTransposed(a CSR, x []float64, dst []float64) {
	for i := 0; i < a.Rows; i++ {
		start, end := a.Indptr[i], a.Indptr[i+1]
		Dusaxpy(x[i], a.Data[start:end], a.Ind[start:end], dst)
	}
}
