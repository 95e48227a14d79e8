package deck

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// MaxRank is the maximum number of array dimensions supported by the deck
// grammar and the Array type.
const MaxRank = 4

// Array is a rectangular numeric array with 1 to [MaxRank] dimensions,
// stored as a flat row-major float64 slice.
type Array struct {
	shape []int
	data  []float64
}

// NewVector creates a rank-1 Array from the given elements.
func NewVector(vals ...float64) *Array {
	data := make([]float64, len(vals))
	copy(data, vals)

	return &Array{shape: []int{len(data)}, data: data}
}

// NewArray creates an Array with the given shape and row-major data.
func NewArray(shape []int, data []float64) (*Array, error) {
	if len(shape) == 0 || len(shape) > MaxRank {
		return nil, ErrBadRank.
			With(slog.Int("rank", len(shape)))
	}

	size := 1
	for _, n := range shape {
		if n < 0 {
			return nil, ErrBadShape.
				With(slog.Int("extent", n))
		}

		size *= n
	}

	if size != len(data) {
		return nil, ErrBadShape.
			With(
				slog.Int("expected", size),
				slog.Int("got", len(data)),
			)
	}

	return &Array{
		shape: append([]int(nil), shape...),
		data:  append([]float64(nil), data...),
	}, nil
}

// FromNested builds an Array from arbitrarily nested numeric slices
// ([]any of float64/int/..., nested up to MaxRank levels). Every level
// must be rectangular.
func FromNested(v any) (*Array, error) {
	shape, err := nestedShape(v, 0)
	if err != nil {
		return nil, err
	}

	var data []float64
	if err := flattenNested(v, &data); err != nil {
		return nil, err
	}

	return NewArray(shape, data)
}

// nestedShape infers the rectangular shape of a nested slice value.
func nestedShape(v any, depth int) ([]int, error) {
	if depth > MaxRank {
		return nil, ErrBadRank.
			With(slog.Int("rank", depth))
	}

	if _, ok := toFloat(v); ok {
		return nil, nil
	}

	list, ok := v.([]any)
	if !ok {
		return nil, ErrBadShape.
			With(slog.String("element", typeName(v)))
	}

	if len(list) == 0 {
		return []int{0}, nil
	}

	first, err := nestedShape(list[0], depth+1)
	if err != nil {
		return nil, err
	}

	for _, elem := range list[1:] {
		next, err := nestedShape(elem, depth+1)
		if err != nil {
			return nil, err
		}

		if !equalInts(first, next) {
			return nil, ErrBadShape.
				With(slog.Int("depth", depth))
		}
	}

	return append([]int{len(list)}, first...), nil
}

// flattenNested appends all scalars of a nested slice value in row-major
// order.
func flattenNested(v any, out *[]float64) error {
	if f, ok := toFloat(v); ok {
		*out = append(*out, f)

		return nil
	}

	list, ok := v.([]any)
	if !ok {
		return ErrBadShape.
			With(slog.String("element", typeName(v)))
	}

	for _, elem := range list {
		if err := flattenNested(elem, out); err != nil {
			return err
		}
	}

	return nil
}

// Rank returns the number of dimensions.
func (a *Array) Rank() int { return len(a.shape) }

// Shape returns a copy of the array dimensions.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Size returns the total number of elements.
func (a *Array) Size() int { return len(a.data) }

// IsEmpty reports whether the array holds no elements.
func (a *Array) IsEmpty() bool { return len(a.data) == 0 }

// Values returns a copy of the flat row-major element data.
func (a *Array) Values() []float64 { return append([]float64(nil), a.data...) }

// At returns the scalar element at the given full index.
func (a *Array) At(idx ...int) (float64, error) {
	if len(idx) != len(a.shape) {
		return 0, ErrIndexRange.
			With(
				slog.Int("indices", len(idx)),
				slog.Int("rank", len(a.shape)),
			)
	}

	off, err := a.offset(idx)
	if err != nil {
		return 0, err
	}

	return a.data[off], nil
}

// Index resolves a partial or full index. A full index yields a scalar
// float64; a partial index yields the sub-array along the leading
// dimensions (a matrix row, a plane of a 3-D array, and so on).
func (a *Array) Index(idx ...int) (any, error) {
	if len(idx) == len(a.shape) {
		return a.At(idx...)
	}

	if len(idx) > len(a.shape) {
		return nil, ErrIndexRange.
			With(
				slog.Int("indices", len(idx)),
				slog.Int("rank", len(a.shape)),
			)
	}

	sub := a
	for _, i := range idx {
		next, err := sub.slice(i)
		if err != nil {
			return nil, err
		}

		sub = next
	}

	return sub, nil
}

// slice extracts the i-th sub-array along the first dimension.
func (a *Array) slice(i int) (*Array, error) {
	if i < 0 || i >= a.shape[0] {
		return nil, ErrIndexRange.
			With(
				slog.Int("index", i),
				slog.Int("extent", a.shape[0]),
			)
	}

	stride := 1
	for _, n := range a.shape[1:] {
		stride *= n
	}

	shape := a.shape[1:]
	if len(shape) == 0 {
		shape = []int{1}
	}

	return &Array{
		shape: append([]int(nil), shape...),
		data:  append([]float64(nil), a.data[i*stride:(i+1)*stride]...),
	}, nil
}

// offset computes the flat row-major offset of a full index.
func (a *Array) offset(idx []int) (int, error) {
	off := 0

	for d, i := range idx {
		if i < 0 || i >= a.shape[d] {
			return 0, ErrIndexRange.
				With(
					slog.Int("index", i),
					slog.Int("dimension", d),
					slog.Int("extent", a.shape[d]),
				)
		}

		off = off*a.shape[d] + i
	}

	return off, nil
}

// Promote coerces the array to rank 2: a rank-1 vector becomes a single
// row matrix, higher ranks are returned unchanged.
func (a *Array) Promote() *Array {
	if len(a.shape) != 1 {
		return a
	}

	return &Array{
		shape: []int{1, a.shape[0]},
		data:  append([]float64(nil), a.data...),
	}
}

// asDense views a rank-1 or rank-2 array as a gonum dense matrix.
func (a *Array) asDense() (*mat.Dense, error) {
	p := a.Promote()
	if len(p.shape) != 2 {
		return nil, ErrBadRank.
			With(slog.Int("rank", len(a.shape)))
	}

	return mat.NewDense(p.shape[0], p.shape[1], append([]float64(nil), p.data...)), nil
}

// fromDense converts a gonum matrix back to an Array.
func fromDense(m mat.Matrix) *Array {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)

	for i := range r {
		for j := range c {
			data = append(data, m.At(i, j))
		}
	}

	return &Array{shape: []int{r, c}, data: data}
}

// Transpose returns the matrix transpose. Rank-1 vectors are promoted to
// a single row first, so transposing a vector yields a column matrix.
func (a *Array) Transpose() (*Array, error) {
	m, err := a.asDense()
	if err != nil {
		return nil, err
	}

	return fromDense(m.T()), nil
}

// MatMul returns the matrix product a×b. Rank-1 operands are promoted to
// row matrices first.
func (a *Array) MatMul(b *Array) (*Array, error) {
	ma, err := a.asDense()
	if err != nil {
		return nil, err
	}

	mb, err := b.asDense()
	if err != nil {
		return nil, err
	}

	ar, ac := ma.Dims()
	br, bc := mb.Dims()

	if ac != br {
		return nil, ErrBadShape.
			With(
				slog.String("lhs", shapeString([]int{ar, ac})),
				slog.String("rhs", shapeString([]int{br, bc})),
			)
	}

	var out mat.Dense

	out.Mul(ma, mb)

	return fromDense(&out), nil
}

// eigImagTolerance bounds the imaginary part below which an eigenvalue
// spectrum is reported as purely real.
const eigImagTolerance = 1e-12

// Eig returns the eigenvalues of a square matrix. A purely real spectrum
// is returned as a rank-1 vector; otherwise an n×2 matrix of real and
// imaginary parts is returned.
func (a *Array) Eig() (*Array, error) {
	m, err := a.asDense()
	if err != nil {
		return nil, err
	}

	r, c := m.Dims()
	if r != c {
		return nil, ErrBadShape.
			With(slog.String("shape", shapeString([]int{r, c})))
	}

	var eig mat.Eigen
	if !eig.Factorize(m, mat.EigenNone) {
		return nil, ErrExprEvaluate.
			With(slog.String("cause", "eigen decomposition did not converge"))
	}

	values := eig.Values(nil)

	allReal := true

	for _, v := range values {
		if math.Abs(imag(v)) > eigImagTolerance {
			allReal = false

			break
		}
	}

	if allReal {
		out := make([]float64, len(values))
		for i, v := range values {
			out[i] = real(v)
		}

		return NewVector(out...), nil
	}

	data := make([]float64, 0, 2*len(values))
	for _, v := range values {
		data = append(data, real(v), imag(v))
	}

	return NewArray([]int{len(values), 2}, data)
}

// Equal reports element-wise and shape equality.
func (a *Array) Equal(b *Array) bool {
	if b == nil || !equalInts(a.shape, b.shape) {
		return false
	}

	for i, v := range a.data {
		if v != b.data[i] {
			return false
		}
	}

	return true
}

// String renders the array in bracketed row-major form, e.g.
// "[[1, 2], [3, 4]]".
func (a *Array) String() string {
	var buf strings.Builder

	a.write(&buf, a.shape, a.data)

	return buf.String()
}

// write recursively renders one nesting level.
func (a *Array) write(buf *strings.Builder, shape []int, data []float64) {
	buf.WriteByte('[')

	if len(shape) == 1 {
		for i, v := range data {
			if i > 0 {
				buf.WriteString(", ")
			}

			buf.WriteString(formatFloat(v))
		}

		buf.WriteByte(']')

		return
	}

	stride := len(data)
	if shape[0] > 0 {
		stride = len(data) / shape[0]
	}

	for i := range shape[0] {
		if i > 0 {
			buf.WriteString(", ")
		}

		a.write(buf, shape[1:], data[i*stride:(i+1)*stride])
	}

	buf.WriteByte(']')
}

// formatFloat renders a float64 in the shortest form that round-trips.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func shapeString(shape []int) string {
	parts := make([]string, len(shape))
	for i, n := range shape {
		parts[i] = strconv.Itoa(n)
	}

	return strings.Join(parts, "x")
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}

	for i, v := range a {
		if v != b[i] {
			return false
		}
	}

	return true
}
