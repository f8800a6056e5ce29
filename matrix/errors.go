package matrix

import "gonum.org/v1/gonum/mat"

// Shape-mismatch and squareness failures returned by construction and
// conversion routines. Unlike the out-of-range panics below (which mirror
// gonum mat's own panic-on-misuse convention for programmer errors such as
// indexing past Dims()), these are ordinary errors because a caller can
// legitimately hand this package mismatched triplets or a non-square
// matrix at runtime and must be able to recover.
var (
	// ErrInvalidShape is returned when row/col/value slice lengths
	// disagree, or when an index falls outside the declared dimensions.
	ErrInvalidShape = shapeError("invalid shape: row/col/value slice lengths disagree or index out of range")
	// ErrNotSquare is returned when an operation requires a square
	// matrix (diagonal extraction, dominance checks, SpMV-transpose
	// shortcuts) and the receiver is not square.
	ErrNotSquare = shapeError("matrix is not square")
)

type shapeError string

func (e shapeError) Error() string { return string(e) }

// panic helpers shared by every storage format, mirroring gonum mat's
// mat.ErrRowAccess / mat.ErrColAccess panics for out-of-range At/Set calls.
func checkRow(i, rows int) {
	if uint(i) >= uint(rows) {
		panic(mat.ErrRowAccess)
	}
}

func checkCol(j, cols int) {
	if uint(j) >= uint(cols) {
		panic(mat.ErrColAccess)
	}
}
