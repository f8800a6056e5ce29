package kernel

import "testing"

func sampleCSR() CSR {
	// [[4,-1,0],[-1,4,-1],[0,-1,3]]
	return CSR{
		Rows: 3, Cols: 3,
		Indptr: []int{0, 2, 5, 7},
		Ind:    []int{0, 1, 0, 1, 2, 1, 2},
		Data:   []float64{4, -1, -1, 4, -1, -1, 3},
	}
}

func TestSpMV(t *testing.T) {
	a := sampleCSR()
	x := []float64{1, 2, 1}
	dst := make([]float64, 3)
	SpMV(a, x, dst)

	want := []float64{2, 6, 1}
	for i, w := range want {
		if dst[i] != w {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], w)
		}
	}
}

func TestSpMVTransposedSymmetric(t *testing.T) {
	a := sampleCSR()
	x := []float64{1, 2, 1}

	dst1 := make([]float64, 3)
	SpMV(a, x, dst1)

	dst2 := make([]float64, 3)
	SpMVTransposed(a, x, dst2)

	for i := range dst1 {
		if dst1[i] != dst2[i] {
			t.Errorf("symmetric matrix: SpMV and SpMVTransposed diverged at %d: %v vs %v", i, dst1[i], dst2[i])
		}
	}
}

func TestParallelSpMVMatchesSerial(t *testing.T) {
	n := 50
	indptr := make([]int, n+1)
	ind := make([]int, n)
	data := make([]float64, n)
	for i := 0; i < n; i++ {
		indptr[i] = i
		ind[i] = i
		data[i] = float64(i + 1)
	}
	indptr[n] = n
	a := CSR{Rows: n, Cols: n, Indptr: indptr, Ind: ind, Data: data}

	x := make([]float64, n)
	for i := range x {
		x[i] = float64(n - i)
	}

	serial := make([]float64, n)
	SpMV(a, x, serial)

	parallel := make([]float64, n)
	if err := ParallelSpMV(a, x, parallel, 8); err != nil {
		t.Fatalf("ParallelSpMV error: %v", err)
	}

	for i := range serial {
		if serial[i] != parallel[i] {
			t.Errorf("parallel diverged at %d: %v vs %v", i, parallel[i], serial[i])
		}
	}
}

func TestParallelSpMVTransposedMatchesSerial(t *testing.T) {
	a := sampleCSR()
	x := []float64{1, 2, 1}

	serial := make([]float64, 3)
	SpMVTransposed(a, x, serial)

	parallel := make([]float64, 3)
	if err := ParallelSpMVTransposed(a, x, parallel, 2); err != nil {
		t.Fatalf("ParallelSpMVTransposed error: %v", err)
	}

	for i := range serial {
		if serial[i] != parallel[i] {
			t.Errorf("parallel transposed diverged at %d: %v vs %v", i, parallel[i], serial[i])
		}
	}
}
