package deck

import (
	"errors"
	"math"
	"testing"
)

func TestNewArray_ShapeValidation(t *testing.T) {
	if _, err := NewArray([]int{2, 3}, make([]float64, 5)); !errors.Is(err, ErrBadShape) {
		t.Errorf("expected ErrBadShape for size mismatch, got %v", err)
	}

	if _, err := NewArray([]int{2, 2, 2, 2, 2}, make([]float64, 32)); !errors.Is(err, ErrBadRank) {
		t.Errorf("expected ErrBadRank above max rank, got %v", err)
	}

	arr, err := NewArray([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("new array error: %v", err)
	}

	if arr.Rank() != 2 || arr.Size() != 6 {
		t.Errorf("expected 2x3 array, got rank %d size %d", arr.Rank(), arr.Size())
	}
}

func TestFromNested_Rectangular(t *testing.T) {
	arr, err := FromNested([]any{
		[]any{1.0, 2.0},
		[]any{3.0, 4.0},
		[]any{5.0, 6.0},
	})
	if err != nil {
		t.Fatalf("from nested error: %v", err)
	}

	shape := arr.Shape()
	if len(shape) != 2 || shape[0] != 3 || shape[1] != 2 {
		t.Fatalf("expected shape 3x2, got %v", shape)
	}

	v, err := arr.At(2, 1)
	if err != nil {
		t.Fatalf("at error: %v", err)
	}

	if v != 6 {
		t.Errorf("expected element (2,1)=6, got %v", v)
	}
}

func TestFromNested_Ragged(t *testing.T) {
	_, err := FromNested([]any{
		[]any{1.0, 2.0},
		[]any{3.0},
	})
	if !errors.Is(err, ErrBadShape) {
		t.Errorf("expected ErrBadShape for ragged input, got %v", err)
	}
}

func TestArray_IndexPartial(t *testing.T) {
	arr, err := NewArray([]int{2, 2, 2}, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatalf("new array error: %v", err)
	}

	// A partial index yields the sub-array along leading dimensions.
	sub, err := arr.Index(1)
	if err != nil {
		t.Fatalf("index error: %v", err)
	}

	plane, ok := sub.(*Array)
	if !ok {
		t.Fatalf("expected sub-array, got %T", sub)
	}

	if !plane.Equal(mustArray(t, []int{2, 2}, 5, 6, 7, 8)) {
		t.Errorf("expected plane [[5, 6], [7, 8]], got %v", plane)
	}

	// A full index yields a scalar.
	elem, err := arr.Index(0, 1, 0)
	if err != nil {
		t.Fatalf("index error: %v", err)
	}

	if elem != 3.0 {
		t.Errorf("expected element 3, got %v", elem)
	}

	if _, err := arr.Index(0, 0, 0, 0); !errors.Is(err, ErrIndexRange) {
		t.Errorf("expected ErrIndexRange for too many indices, got %v", err)
	}

	if _, err := arr.Index(2); !errors.Is(err, ErrIndexRange) {
		t.Errorf("expected ErrIndexRange out of extent, got %v", err)
	}
}

func TestArray_Transpose(t *testing.T) {
	arr := mustArray(t, []int{2, 3}, 1, 2, 3, 4, 5, 6)

	tr, err := arr.Transpose()
	if err != nil {
		t.Fatalf("transpose error: %v", err)
	}

	if !tr.Equal(mustArray(t, []int{3, 2}, 1, 4, 2, 5, 3, 6)) {
		t.Errorf("unexpected transpose: %v", tr)
	}

	// Rank-1 vectors transpose to a column matrix.
	col, err := NewVector(1, 2, 3).Transpose()
	if err != nil {
		t.Fatalf("transpose error: %v", err)
	}

	if !col.Equal(mustArray(t, []int{3, 1}, 1, 2, 3)) {
		t.Errorf("expected 3x1 column, got %v", col)
	}
}

func TestArray_MatMul(t *testing.T) {
	a := mustArray(t, []int{2, 2}, 1, 2, 3, 4)
	b := mustArray(t, []int{2, 2}, 5, 6, 7, 8)

	prod, err := a.MatMul(b)
	if err != nil {
		t.Fatalf("matmul error: %v", err)
	}

	if !prod.Equal(mustArray(t, []int{2, 2}, 19, 22, 43, 50)) {
		t.Errorf("unexpected product: %v", prod)
	}

	_, err = a.MatMul(mustArray(t, []int{3, 1}, 1, 2, 3))
	if !errors.Is(err, ErrBadShape) {
		t.Errorf("expected ErrBadShape for inner dimension mismatch, got %v", err)
	}
}

func TestArray_EigRealSpectrum(t *testing.T) {
	// Symmetric matrix: eigenvalues 3 and 1.
	arr := mustArray(t, []int{2, 2}, 2, 1, 1, 2)

	eig, err := arr.Eig()
	if err != nil {
		t.Fatalf("eig error: %v", err)
	}

	if eig.Rank() != 1 || eig.Size() != 2 {
		t.Fatalf("expected rank-1 spectrum, got %v", eig)
	}

	vals := eig.Values()
	lo, hi := math.Min(vals[0], vals[1]), math.Max(vals[0], vals[1])

	if math.Abs(lo-1) > 1e-9 || math.Abs(hi-3) > 1e-9 {
		t.Errorf("expected eigenvalues {1, 3}, got %v", vals)
	}
}

func TestArray_EigComplexSpectrum(t *testing.T) {
	// Rotation matrix: eigenvalues ±i.
	arr := mustArray(t, []int{2, 2}, 0, -1, 1, 0)

	eig, err := arr.Eig()
	if err != nil {
		t.Fatalf("eig error: %v", err)
	}

	shape := eig.Shape()
	if len(shape) != 2 || shape[1] != 2 {
		t.Fatalf("expected n x 2 real/imag matrix, got %v", shape)
	}
}

func TestArray_EigNonSquare(t *testing.T) {
	arr := mustArray(t, []int{2, 3}, 1, 2, 3, 4, 5, 6)

	if _, err := arr.Eig(); !errors.Is(err, ErrBadShape) {
		t.Errorf("expected ErrBadShape for non-square matrix, got %v", err)
	}
}

func TestArray_String(t *testing.T) {
	tests := []struct {
		name string
		arr  *Array
		want string
	}{
		{"vector", NewVector(1, 2, 3), "[1, 2, 3]"},
		{"matrix", mustArray(t, []int{2, 2}, 1, 2, 3, 4), "[[1, 2], [3, 4]]"},
		{"column", mustArray(t, []int{3, 1}, 1, 2, 3), "[[1], [2], [3]]"},
		{"fractional", NewVector(0.5, 1e-3), "[0.5, 0.001]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.arr.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArray_Promote(t *testing.T) {
	row := NewVector(1, 2, 3).Promote()

	shape := row.Shape()
	if len(shape) != 2 || shape[0] != 1 || shape[1] != 3 {
		t.Errorf("expected 1x3 row, got %v", shape)
	}

	m := mustArray(t, []int{2, 2}, 1, 2, 3, 4)
	if m.Promote() != m {
		t.Error("expected rank-2 promote to be identity")
	}
}

// mustArray builds an array or fails the test.
func mustArray(t *testing.T, shape []int, vals ...float64) *Array {
	t.Helper()

	arr, err := NewArray(shape, vals)
	if err != nil {
		t.Fatalf("array %vx: %v", shape, err)
	}

	return arr
}
