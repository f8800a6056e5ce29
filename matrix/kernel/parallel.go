package kernel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelSpMV computes dst = A*x, partitioning A's rows across workers
// goroutines with no synchronization inside a single multiply: each worker
// owns a disjoint, contiguous row range and writes only to its own slice
// of dst, per the concurrency model's "no synchronization inside a single
// multiply" requirement. workers <= 0 selects runtime.GOMAXPROCS(0).
func ParallelSpMV(a CSR, x []float64, dst []float64, workers int) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > a.Rows {
		workers = a.Rows
	}
	if workers <= 1 {
		SpMV(a, x, dst)
		return nil
	}

	chunk := (a.Rows + workers - 1) / workers
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > a.Rows {
			hi = a.Rows
		}
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				start, end := a.Indptr[i], a.Indptr[i+1]
				dst[i] = Dusdot(a.Data[start:end], a.Ind[start:end], x)
			}
			return nil
		})
	}
	return g.Wait()
}

// ParallelSpMVTransposed computes dst = Aᵀ*x partitioning A's rows across
// workers. Because each row scatters into multiple positions of dst,
// workers accumulate into private partial vectors that are summed in a
// final combine pass, preserving the "no synchronization inside a single
// multiply" property while still allowing the scatter to run concurrently;
// floating point non-associativity means the combined result may differ
// from the serial SpMVTransposed result in its last few ULPs, which is the
// documented parallel/deterministic tradeoff.
func ParallelSpMVTransposed(a CSR, x []float64, dst []float64, workers int) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > a.Rows {
		workers = a.Rows
	}
	if workers <= 1 {
		SpMVTransposed(a, x, dst)
		return nil
	}

	chunk := (a.Rows + workers - 1) / workers
	partials := make([][]float64, workers)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		lo := w * chunk
		hi := lo + chunk
		if hi > a.Rows {
			hi = a.Rows
		}
		if lo >= hi {
			continue
		}
		partials[w] = make([]float64, a.Cols)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				start, end := a.Indptr[i], a.Indptr[i+1]
				Dusaxpy(x[i], a.Data[start:end], a.Ind[start:end], partials[w])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, p := range partials {
		for i, v := range p {
			dst[i] += v
		}
	}
	return nil
}
