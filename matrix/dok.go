package matrix

import "gonum.org/v1/gonum/mat"

var _ mat.Matrix = (*DOK)(nil)

type dokKey struct{ i, j int }

// DOK (Dictionary Of Keys) is a map-backed creational sparse format used
// for incremental construction of a matrix one element at a time, before
// converting to COO/CSR for canonicalization and solving. It is the
// companion creational format to COO named in the data model's
// supplemented feature list: unlike COO, setting the same (i,j) twice
// overwrites rather than accumulates, matching ordinary map semantics.
type DOK struct {
	r, c int
	data map[dokKey]float64
}

// NewDOK creates an empty r x c DOK matrix.
func NewDOK(r, c int) *DOK {
	if r < 0 || c < 0 {
		panic(mat.ErrRowAccess)
	}
	return &DOK{r: r, c: c, data: make(map[dokKey]float64)}
}

// Dims returns the matrix dimensions.
func (d *DOK) Dims() (int, int) { return d.r, d.c }

// At returns the element at (i, j), or zero if never set.
func (d *DOK) At(i, j int) float64 {
	checkRow(i, d.r)
	checkCol(j, d.c)
	return d.data[dokKey{i, j}]
}

// Set stores v at (i, j), overwriting any previous value. Setting v == 0
// removes the entry rather than storing an explicit zero.
func (d *DOK) Set(i, j int, v float64) {
	checkRow(i, d.r)
	checkCol(j, d.c)
	if v == 0 {
		delete(d.data, dokKey{i, j})
		return
	}
	d.data[dokKey{i, j}] = v
}

// NNZ returns the number of explicitly stored non-zero values.
func (d *DOK) NNZ() int { return len(d.data) }

// T returns the transpose as a new DOK; it does not share storage with the
// receiver.
func (d *DOK) T() mat.Matrix {
	t := NewDOK(d.c, d.r)
	for k, v := range d.data {
		t.data[dokKey{k.j, k.i}] = v
	}
	return t
}

// ToCOO returns a COOrdinate copy of the matrix, already duplicate-free
// (map keys are unique) but not yet sorted by row.
func (d *DOK) ToCOO() *COO {
	rows := make([]int, 0, len(d.data))
	cols := make([]int, 0, len(d.data))
	vals := make([]float64, 0, len(d.data))
	for k, v := range d.data {
		rows = append(rows, k.i)
		cols = append(cols, k.j)
		vals = append(vals, v)
	}
	return NewCOO(d.r, d.c, rows, cols, vals)
}

// ToCSR canonicalizes and returns the matrix in CSR form.
func (d *DOK) ToCSR() *CSR { return d.ToCOO().ToCSR() }

// ToCSC canonicalizes and returns the matrix in CSC form.
func (d *DOK) ToCSC() *CSC { return d.ToCOO().ToCSC() }
