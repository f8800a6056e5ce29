package matrix

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// compressedSparse is the structure shared by CSR and CSC: a row- or
// column-major index-pointer encoding where indptr[i] marks the start of
// row/column i's run in ind/data, and indptr has length rows/cols + 1. CSC
// is represented by reusing this same structure with rows/cols swapped on
// the embedding type's Dims(), exactly mirroring the teacher's
// CSR-is-CSC-transposed relationship.
type compressedSparse struct {
	rows, cols int
	indptr     []int
	ind        []int
	data       []float64
}

// nnz returns the number of stored non-zero values.
func (c *compressedSparse) nnz() int { return len(c.data) }

// at returns the value at major index i, minor index j (row/col for CSR,
// col/row for CSC) via binary search, since indices within a run are kept
// sorted ascending by construction.
func (c *compressedSparse) at(i, j int) float64 {
	start, end := c.indptr[i], c.indptr[i+1]
	run := c.ind[start:end]
	k := sort.SearchInts(run, j)
	if k < len(run) && run[k] == j {
		return c.data[start+k]
	}
	return 0
}

// runNNZ returns the number of stored values in major index i.
func (c *compressedSparse) runNNZ(i int) int {
	return c.indptr[i+1] - c.indptr[i]
}

// CSR is a Compressed Sparse Row matrix: the primary operational format
// named in the data model, optimised for SpMV and row-wise iteration. CSR
// is poor for incremental construction; build via COO/DOK and convert.
type CSR struct {
	compressedSparse
}

// NewCSR constructs a CSR directly from already-canonical row-pointer
// (length rows+1, non-decreasing), column-index (sorted ascending within
// each row) and value slices. Callers that cannot guarantee canonical
// input should build via COO.ToCSR instead.
func NewCSR(rows, cols int, indptr, ind []int, data []float64) *CSR {
	if rows < 0 || cols < 0 || len(indptr) != rows+1 || len(ind) != len(data) {
		panic(ErrInvalidShape)
	}
	return &CSR{compressedSparse{rows: rows, cols: cols, indptr: indptr, ind: ind, data: data}}
}

// Dims returns the matrix dimensions.
func (c *CSR) Dims() (int, int) { return c.rows, c.cols }

// NNZ returns the number of stored non-zero values.
func (c *CSR) NNZ() int { return c.nnz() }

// At returns the element at (i, j); zero-length rows yield zero for any j.
func (c *CSR) At(i, j int) float64 {
	checkRow(i, c.rows)
	checkCol(j, c.cols)
	return c.at(i, j)
}

// RowNNZ returns the number of non-zero values in row i.
func (c *CSR) RowNNZ(i int) int {
	checkRow(i, c.rows)
	return c.runNNZ(i)
}

// DoRow calls fn for every stored value in row i, in ascending column
// order.
func (c *CSR) DoRow(i int, fn func(j int, v float64)) {
	checkRow(i, c.rows)
	for k := c.indptr[i]; k < c.indptr[i+1]; k++ {
		fn(c.ind[k], c.data[k])
	}
}

// RowView returns row i as a SparseVector sharing the receiver's backing
// storage.
func (c *CSR) RowView(i int) *SparseVector {
	checkRow(i, c.rows)
	start, end := c.indptr[i], c.indptr[i+1]
	return NewSparseVector(c.cols, c.ind[start:end:end], c.data[start:end:end])
}

// T returns the transpose as a CSC sharing the same backing storage: CSR's
// row-major encoding of an (R,C) matrix is bit-for-bit CSC's column-major
// encoding of the transposed (C,R) matrix, so no data is touched.
func (c *CSR) T() mat.Matrix {
	return &CSC{c.compressedSparse}
}

// RawCSR exposes the receiver's raw index-pointer encoding for use by the
// matrix/kernel package's SpMV routines.
func (c *CSR) RawCSR() (rows, cols int, indptr, ind []int, data []float64) {
	return c.rows, c.cols, c.indptr, c.ind, c.data
}

// Diagonal extracts diag(A) as a dense slice of length min(rows, cols).
// Missing diagonal entries are zero.
func (c *CSR) Diagonal() []float64 {
	n := c.rows
	if c.cols < n {
		n = c.cols
	}
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = c.at(i, i)
	}
	return d
}

// ToDense returns a dense copy of the matrix.
func (c *CSR) ToDense() *mat.Dense {
	d := mat.NewDense(c.rows, c.cols, nil)
	for i := 0; i < c.rows; i++ {
		for k := c.indptr[i]; k < c.indptr[i+1]; k++ {
			d.Set(i, c.ind[k], c.data[k])
		}
	}
	return d
}

// ToCOO returns a COOrdinate copy of the matrix.
func (c *CSR) ToCOO() *COO {
	rows := make([]int, c.nnz())
	for i := 0; i < c.rows; i++ {
		for k := c.indptr[i]; k < c.indptr[i+1]; k++ {
			rows[k] = i
		}
	}
	cols := append([]int(nil), c.ind...)
	data := append([]float64(nil), c.data...)
	return NewCOO(c.rows, c.cols, rows, cols, data)
}

// ToDOK returns a Dictionary-Of-Keys copy of the matrix.
func (c *CSR) ToDOK() *DOK {
	dok := NewDOK(c.rows, c.cols)
	for i := 0; i < c.rows; i++ {
		for k := c.indptr[i]; k < c.indptr[i+1]; k++ {
			dok.Set(i, c.ind[k], c.data[k])
		}
	}
	return dok
}

// CSC is a Compressed Sparse Column matrix, the column-major twin of CSR
// used for efficient column iteration (e.g. push on Aᵀ without an explicit
// transpose copy).
type CSC struct {
	compressedSparse
}

// NewCSC constructs a CSC directly from already-canonical column-pointer,
// row-index and value slices (see NewCSR for the canonicality contract).
func NewCSC(rows, cols int, indptr, ind []int, data []float64) *CSC {
	if rows < 0 || cols < 0 || len(indptr) != cols+1 || len(ind) != len(data) {
		panic(ErrInvalidShape)
	}
	return &CSC{compressedSparse{rows: cols, cols: rows, indptr: indptr, ind: ind, data: data}}
}

// Dims returns the matrix dimensions.
func (c *CSC) Dims() (int, int) { return c.cols, c.rows }

// NNZ returns the number of stored non-zero values.
func (c *CSC) NNZ() int { return c.nnz() }

// At returns the element at (i, j).
func (c *CSC) At(i, j int) float64 {
	checkRow(i, c.cols)
	checkCol(j, c.rows)
	return c.at(j, i)
}

// ColNNZ returns the number of non-zero values in column j.
func (c *CSC) ColNNZ(j int) int {
	checkCol(j, c.rows)
	return c.runNNZ(j)
}

// DoCol calls fn for every stored value in column j, in ascending row
// order.
func (c *CSC) DoCol(j int, fn func(i int, v float64)) {
	checkCol(j, c.rows)
	for k := c.indptr[j]; k < c.indptr[j+1]; k++ {
		fn(c.ind[k], c.data[k])
	}
}

// ColView returns column j as a SparseVector sharing the receiver's
// backing storage.
func (c *CSC) ColView(j int) *SparseVector {
	checkCol(j, c.rows)
	start, end := c.indptr[j], c.indptr[j+1]
	return NewSparseVector(c.cols, c.ind[start:end:end], c.data[start:end:end])
}

// T returns the transpose as a CSR sharing the same backing storage (see
// CSR.T for why no data is touched).
func (c *CSC) T() mat.Matrix {
	return &CSR{c.compressedSparse}
}

// RawCSC exposes the receiver's raw index-pointer encoding for use by the
// matrix/kernel package's transposed SpMV routines.
func (c *CSC) RawCSC() (rows, cols int, indptr, ind []int, data []float64) {
	return c.cols, c.rows, c.indptr, c.ind, c.data
}

// ToDense returns a dense copy of the matrix.
func (c *CSC) ToDense() *mat.Dense {
	d := mat.NewDense(c.cols, c.rows, nil)
	for j := 0; j < c.rows; j++ {
		for k := c.indptr[j]; k < c.indptr[j+1]; k++ {
			d.Set(c.ind[k], j, c.data[k])
		}
	}
	return d
}

// ToCOO returns a COOrdinate copy of the matrix.
func (c *CSC) ToCOO() *COO {
	cols := make([]int, c.nnz())
	for j := 0; j < c.rows; j++ {
		for k := c.indptr[j]; k < c.indptr[j+1]; k++ {
			cols[k] = j
		}
	}
	rows := append([]int(nil), c.ind...)
	data := append([]float64(nil), c.data...)
	return NewCOO(c.cols, c.rows, rows, cols, data)
}
