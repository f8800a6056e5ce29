package matrix

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	_ mat.Matrix = (*COO)(nil)
	_ mat.Mutable = (*COO)(nil)
)

// COO is a COOrdinate (triplet) format sparse matrix. It is the
// construction format named in the data model: callers append triplets
// (possibly with duplicate coordinates, in any order) and then run
// Canonicalize once before handing the matrix to a solver.
type COO struct {
	r, c int
	rows []int
	cols []int
	data []float64
}

// NewCOO creates an r x c COOrdinate matrix from parallel rows/cols/data
// triplet slices. The slices are used directly as backing storage. Passing
// nil for all three starts an empty, appendable matrix.
func NewCOO(r, c int, rows, cols []int, data []float64) *COO {
	if r < 0 || c < 0 {
		panic(mat.ErrRowAccess)
	}
	if rows != nil || cols != nil || data != nil {
		if len(rows) != len(cols) || len(rows) != len(data) {
			panic(ErrInvalidShape)
		}
	}
	return &COO{r: r, c: c, rows: rows, cols: cols, data: data}
}

// Dims returns the matrix dimensions.
func (c *COO) Dims() (int, int) { return c.r, c.c }

// NNZ returns the number of stored triplets, which may exceed r*c and may
// include duplicate coordinates and explicit zeros before Canonicalize.
func (c *COO) NNZ() int { return len(c.data) }

// At returns the element at (i, j), summing any duplicate triplets at that
// coordinate. At will panic if i or j fall outside the matrix dimensions.
func (c *COO) At(i, j int) float64 {
	checkRow(i, c.r)
	checkCol(j, c.c)
	var sum float64
	for k, ri := range c.rows {
		if ri == i && c.cols[k] == j {
			sum += c.data[k]
		}
	}
	return sum
}

// Set appends a new triplet at (i, j). Duplicate coordinates are allowed
// and will be summed by At or merged by Canonicalize.
func (c *COO) Set(i, j int, v float64) {
	checkRow(i, c.r)
	checkCol(j, c.c)
	c.rows = append(c.rows, i)
	c.cols = append(c.cols, j)
	c.data = append(c.data, v)
}

// T returns the transpose as a new COO sharing the same backing triplet
// slices with rows and columns swapped.
func (c *COO) T() mat.Matrix {
	return &COO{r: c.c, c: c.r, rows: c.cols, cols: c.rows, data: c.data}
}

// DoNonZero calls fn for every stored triplet (including duplicates, if
// the receiver has not been canonicalized) in storage order.
func (c *COO) DoNonZero(fn func(i, j int, v float64)) {
	for k := range c.data {
		fn(c.rows[k], c.cols[k], c.data[k])
	}
}

// Canonicalize performs the one-time conversion step named in the data
// model: it rejects out-of-range indices (ErrInvalidShape), sums duplicate
// (i,j) entries and sorts column indices ascending within each row. It
// returns a new COO and never mutates the receiver, so repeated calls are
// idempotent: Canonicalize(Canonicalize(T)) == Canonicalize(T).
func (c *COO) Canonicalize() (*COO, error) {
	n := len(c.data)
	for k := 0; k < n; k++ {
		if c.rows[k] < 0 || c.rows[k] >= c.r || c.cols[k] < 0 || c.cols[k] >= c.c {
			return nil, ErrInvalidShape
		}
		if math.IsNaN(c.data[k]) || math.IsInf(c.data[k], 0) {
			return nil, ErrInvalidShape
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if c.rows[ia] != c.rows[ib] {
			return c.rows[ia] < c.rows[ib]
		}
		return c.cols[ia] < c.cols[ib]
	})

	rows := make([]int, 0, n)
	cols := make([]int, 0, n)
	data := make([]float64, 0, n)
	for _, k := range order {
		if len(rows) > 0 && rows[len(rows)-1] == c.rows[k] && cols[len(cols)-1] == c.cols[k] {
			data[len(data)-1] += c.data[k]
			continue
		}
		rows = append(rows, c.rows[k])
		cols = append(cols, c.cols[k])
		data = append(data, c.data[k])
	}

	return &COO{r: c.r, c: c.c, rows: rows, cols: cols, data: data}, nil
}

// ToDense returns a dense copy of the matrix; duplicate triplets are
// summed.
func (c *COO) ToDense() *mat.Dense {
	d := mat.NewDense(c.r, c.c, nil)
	for k := range c.data {
		d.Set(c.rows[k], c.cols[k], d.At(c.rows[k], c.cols[k])+c.data[k])
	}
	return d
}

// ToDOK returns a Dictionary-Of-Keys copy of the matrix.
func (c *COO) ToDOK() *DOK {
	dok := NewDOK(c.r, c.c)
	for k := range c.data {
		dok.Set(c.rows[k], c.cols[k], dok.At(c.rows[k], c.cols[k])+c.data[k])
	}
	return dok
}

// ToCSR canonicalizes the receiver and returns the result as a CSR matrix.
// It panics if canonicalization fails; use Canonicalize directly when the
// input may be malformed and the error needs to be handled.
func (c *COO) ToCSR() *CSR {
	canon, err := c.Canonicalize()
	if err != nil {
		panic(err)
	}

	indptr := make([]int, canon.r+1)
	for _, ri := range canon.rows {
		indptr[ri+1]++
	}
	for i := 0; i < canon.r; i++ {
		indptr[i+1] += indptr[i]
	}

	return &CSR{compressedSparse{rows: canon.r, cols: canon.c, indptr: indptr, ind: append([]int(nil), canon.cols...), data: append([]float64(nil), canon.data...)}}
}

// ToCSC canonicalizes the receiver and returns the result as a CSC matrix.
func (c *COO) ToCSC() *CSC {
	return c.T().(*COO).ToCSR().T().(*CSC)
}
