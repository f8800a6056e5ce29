package matrix

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestSparseVectorAtVec(t *testing.T) {
	v := NewSparseVector(6, []int{1, 3, 4}, []float64{1, 2, 1})
	want := []float64{0, 1, 0, 2, 1, 0}
	for i, w := range want {
		if v.AtVec(i) != w {
			t.Errorf("AtVec(%d) = %v, want %v", i, v.AtVec(i), w)
		}
	}
}

func TestSparseVectorSetInsertsSorted(t *testing.T) {
	v := NewSparseVector(5, nil, nil)
	v.Set(3, 9)
	v.Set(1, 2)
	v.Set(4, 7)

	idx := v.Indices()
	for i := 1; i < len(idx); i++ {
		if idx[i-1] >= idx[i] {
			t.Fatalf("indices not ascending after inserts: %v", idx)
		}
	}
	if v.AtVec(1) != 2 || v.AtVec(3) != 9 || v.AtVec(4) != 7 {
		t.Errorf("unexpected values after insert")
	}
}

func TestSparseVectorSetOverwritesExisting(t *testing.T) {
	v := NewSparseVector(4, []int{1, 2}, []float64{5, 6})
	v.Set(2, 100)
	if v.NNZ() != 2 {
		t.Fatalf("overwrite should not grow NNZ, got %d", v.NNZ())
	}
	if v.AtVec(2) != 100 {
		t.Errorf("overwrite did not take effect")
	}
}

func TestSparseVectorAddAtAccumulates(t *testing.T) {
	v := NewSparseVector(3, nil, nil)
	v.AddAt(1, 2)
	v.AddAt(1, 3)
	if v.AtVec(1) != 5 {
		t.Errorf("AddAt did not accumulate: got %v", v.AtVec(1))
	}
}

func TestSparseVectorNorms(t *testing.T) {
	v := NewSparseVector(4, []int{0, 2}, []float64{-3, 4})
	if v.Norm1() != 7 {
		t.Errorf("Norm1 = %v, want 7", v.Norm1())
	}
	if v.NormInf() != 4 {
		t.Errorf("NormInf = %v, want 4", v.NormInf())
	}
}

func TestSparseVectorToDense(t *testing.T) {
	v := NewSparseVector(3, []int{0, 2}, []float64{1, 2})
	want := mat.NewVecDense(3, []float64{1, 0, 2})
	if !mat.Equal(want, v.ToDense()) {
		t.Errorf("ToDense mismatch")
	}
}
