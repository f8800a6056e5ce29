/*
Package matrix provides the sparse matrix and vector substrate shared by
every solver in this module: dense row-major, COO (coordinate/triplet),
CSR (compressed sparse row) and CSC (compressed sparse column) storage,
plus the dense and sparse vector types used for right-hand sides,
residuals and push frontiers.

Matrices are built via a creational format (COO or DOK), canonicalized
once (out-of-range rejection, duplicate summation, per-row column sort),
and converted to CSR or CSC for the arithmetic-heavy operational phase of a
solve: this mirrors the construct-then-convert workflow of most sparse
linear algebra libraries, COO/DOK for incremental assembly, CSR/CSC for
SpMV and iteration. All matrix types implement gonum's mat.Matrix so they
interoperate with mat.Dense and the rest of gonum/mat wherever a generic
Matrix is accepted.
*/
package matrix

import "gonum.org/v1/gonum/mat"

// Sparser is satisfied by every sparse matrix format in this package. It
// extends mat.Matrix with the one property dense formats don't have: a
// count of explicitly stored values.
type Sparser interface {
	mat.Matrix
	NNZ() int
}

var (
	_ Sparser = (*COO)(nil)
	_ Sparser = (*CSR)(nil)
	_ Sparser = (*CSC)(nil)
	_ Sparser = (*DOK)(nil)
)
