package matrix

import (
	"gonum.org/v1/gonum/mat"

	"github.com/sublinearlabs/solver/matrix/kernel"
)

// kernelView returns the receiver's raw encoding as a kernel.CSR, shared
// storage, for use by the matrix/kernel SpMV routines.
func (c *CSR) kernelView() kernel.CSR {
	return kernel.CSR{Rows: c.rows, Cols: c.cols, Indptr: c.indptr, Ind: c.ind, Data: c.data}
}

// SpMV returns A*x as a freshly allocated dense vector. It is deterministic
// for identical inputs and yields zero for any zero-length row.
func (c *CSR) SpMV(x mat.Vector) *mat.VecDense {
	xs := toSlice(x)
	dst := make([]float64, c.rows)
	kernel.SpMV(c.kernelView(), xs, dst)
	return mat.NewVecDense(c.rows, dst)
}

// SpMVInto computes A*x into dst (len(dst) must equal c.rows), overwriting
// it in place. Unlike SpMV, it allocates no output slice, so a caller that
// preallocates dst once (e.g. a Stepper's working vectors) can call this
// every iteration with bounded steady-state allocation.
func (c *CSR) SpMVInto(x mat.Vector, dst []float64) {
	xs := toSlice(x)
	kernel.SpMV(c.kernelView(), xs, dst)
}

// SpMVTransposed returns Aᵀ*x as a freshly allocated dense vector, computed
// without materialising the transpose.
func (c *CSR) SpMVTransposed(x mat.Vector) *mat.VecDense {
	xs := toSlice(x)
	dst := make([]float64, c.cols)
	kernel.SpMVTransposed(c.kernelView(), xs, dst)
	return mat.NewVecDense(c.cols, dst)
}

// ParallelSpMV is the opt-in data-parallel variant of SpMV (§5): it
// partitions rows across workers goroutines with no synchronization inside
// a single multiply. workers <= 0 selects runtime.GOMAXPROCS(0).
func (c *CSR) ParallelSpMV(x mat.Vector, workers int) *mat.VecDense {
	xs := toSlice(x)
	dst := make([]float64, c.rows)
	_ = kernel.ParallelSpMV(c.kernelView(), xs, dst, workers)
	return mat.NewVecDense(c.rows, dst)
}

// ParallelSpMVInto is ParallelSpMV's write-into-existing-slice
// counterpart (dst is overwritten with A*x), for a caller (neumann.Stepper) that preallocates dst once
// and wants the data-parallel kernel without a per-iteration allocation.
func (c *CSR) ParallelSpMVInto(x mat.Vector, dst []float64, workers int) error {
	xs := toSlice(x)
	return kernel.ParallelSpMV(c.kernelView(), xs, dst, workers)
}

func toSlice(v mat.Vector) []float64 {
	if vd, ok := v.(*mat.VecDense); ok {
		return vd.RawVector().Data
	}
	n := v.Len()
	s := make([]float64, n)
	for i := 0; i < n; i++ {
		s[i] = v.AtVec(i)
	}
	return s
}
