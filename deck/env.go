package deck

// This file defines the built-in evaluation environment available to all
// expr-lang expressions. The environment is lazily initialized once per
// process and cloned on every access so callers may mutate the returned map
// without affecting the shared cache.

import (
	"log/slog"
	"maps"
	"math"
	"sync"

	"github.com/ardnew/mung"
)

// Private singleton cache.
//
//nolint:gochecknoglobals
var (
	envCacheOnce sync.Once
	envCache     map[string]any
)

// makeEnvCache returns a clone of the lazily-initialized, process-scoped
// environment containing built-in constants and functions.
func makeEnvCache() map[string]any {
	envCacheOnce.Do(func() {
		envCache = map[string]any{
			// Constants.
			"pi":  math.Pi,
			"e":   math.E,
			"inf": math.Inf(1),

			// Scalar math. Unary functions broadcast over arrays.
			"sin":   broadcastFunc(math.Sin),
			"cos":   broadcastFunc(math.Cos),
			"tan":   broadcastFunc(math.Tan),
			"asin":  broadcastFunc(math.Asin),
			"acos":  broadcastFunc(math.Acos),
			"atan":  broadcastFunc(math.Atan),
			"sinh":  broadcastFunc(math.Sinh),
			"cosh":  broadcastFunc(math.Cosh),
			"tanh":  broadcastFunc(math.Tanh),
			"exp":   broadcastFunc(math.Exp),
			"log":   broadcastFunc(math.Log),
			"log10": broadcastFunc(math.Log10),
			"sqrt":  broadcastFunc(math.Sqrt),
			"atan2": math.Atan2,
			"mod":   math.Mod,
			"hypot": math.Hypot,
			"deg":   broadcastFunc(func(x float64) float64 { return x * 180 / math.Pi }),
			"rad":   broadcastFunc(func(x float64) float64 { return x * math.Pi / 180 }),

			// Array constructors and linear algebra.
			"array":     envArray,
			"zeros":     envZeros,
			"ones":      envOnes,
			"linspace":  envLinspace,
			"transpose": envTranspose,
			"matmul":    envMatMul,
			"eig":       envEig,
			"dot":       envDot,
			"norm":      envNorm,

			// Filesystem path values (POSIX separators, see Path).
			"path":    envPath,
			"pathcat": envPathCat,

			// Separator-delimited list munging for solver search paths.
			"listcat":    envListCat,
			"listprefix": envListPrefix,

			// Broadcasting arithmetic, injected by the operator patcher.
			"__add": envAdd,
			"__sub": func(a, b any) (any, error) { return broadcast2("-", a, b) },
			"__mul": func(a, b any) (any, error) { return broadcast2("*", a, b) },
			"__div": func(a, b any) (any, error) { return broadcast2("/", a, b) },
			"__pow": func(a, b any) (any, error) { return broadcast2("**", a, b) },
			"__neg": envNegate,
		}
	})

	return maps.Clone(envCache)
}

// BuiltinEnv returns a copy of the built-in environment, for introspection
// and completion.
func BuiltinEnv() map[string]any {
	return makeEnvCache()
}

// -----------------------------------------------------------------------------
// Broadcasting arithmetic
// -----------------------------------------------------------------------------

// scalarOp applies one arithmetic operator to two scalars. IEEE semantics:
// division by zero yields Inf/NaN rather than an error.
func scalarOp(op string, x, y float64) float64 {
	switch op {
	case "+":
		return x + y
	case "-":
		return x - y
	case "*":
		return x * y
	case "/":
		return x / y
	case "**":
		return math.Pow(x, y)
	default:
		return math.NaN()
	}
}

// broadcast2 applies an arithmetic operator element-wise, broadcasting
// scalars over sequences and arrays. Matrix product never happens here:
// it requires the explicit matmul call.
func broadcast2(op string, a, b any) (any, error) {
	fa, aScalar := toFloat(a)
	fb, bScalar := toFloat(b)

	if aScalar && bScalar {
		return scalarOp(op, fa, fb), nil
	}

	var (
		xa, xb *Array
		err    error
	)

	if !aScalar {
		if xa, err = coerceArray(a); err != nil {
			return nil, opTypeError(op, a)
		}
	}

	if !bScalar {
		if xb, err = coerceArray(b); err != nil {
			return nil, opTypeError(op, b)
		}
	}

	switch {
	case aScalar:
		out := xb.Values()
		for i, v := range out {
			out[i] = scalarOp(op, fa, v)
		}

		return &Array{shape: xb.Shape(), data: out}, nil

	case bScalar:
		out := xa.Values()
		for i, v := range out {
			out[i] = scalarOp(op, v, fb)
		}

		return &Array{shape: xa.Shape(), data: out}, nil

	default:
		if !equalInts(xa.shape, xb.shape) {
			return nil, ErrBadShape.
				With(
					slog.String("op", op),
					slog.String("lhs", shapeString(xa.shape)),
					slog.String("rhs", shapeString(xb.shape)),
				)
		}

		out := xa.Values()
		for i, v := range out {
			out[i] = scalarOp(op, v, xb.data[i])
		}

		return &Array{shape: xa.Shape(), data: out}, nil
	}
}

func opTypeError(op string, v any) error {
	return ErrExprEvaluate.
		With(
			slog.String("op", op),
			slog.String("operand", typeName(v)),
		)
}

// envAdd is '+' with broadcasting. Path and string operands concatenate:
// Path concatenation joins fragments with exactly one separator.
func envAdd(a, b any) (any, error) {
	switch x := a.(type) {
	case Path:
		if s, ok := asString(b); ok {
			return x.Join(s), nil
		}

	case string:
		if s, ok := asString(b); ok {
			return x + s, nil
		}
	}

	return broadcast2("+", a, b)
}

// asString unwraps string-like operands.
func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case Path:
		return string(s), true
	default:
		return "", false
	}
}

// envNegate is unary minus with broadcasting.
func envNegate(a any) (any, error) {
	return broadcast2("-", 0.0, a)
}

// broadcastFunc lifts a scalar math function over arrays and sequences.
func broadcastFunc(fn func(float64) float64) func(any) (any, error) {
	return func(a any) (any, error) {
		if f, ok := toFloat(a); ok {
			return fn(f), nil
		}

		arr, err := coerceArray(a)
		if err != nil {
			return nil, err
		}

		out := arr.Values()
		for i, v := range out {
			out[i] = fn(v)
		}

		return &Array{shape: arr.Shape(), data: out}, nil
	}
}

// -----------------------------------------------------------------------------
// Array builtins
// -----------------------------------------------------------------------------

func envArray(v any) (*Array, error) {
	return coerceArray(v)
}

func envZeros(extents ...int) (*Array, error) {
	return filledArray(0, extents)
}

func envOnes(extents ...int) (*Array, error) {
	return filledArray(1, extents)
}

func filledArray(fill float64, extents []int) (*Array, error) {
	if len(extents) == 0 {
		extents = []int{1}
	}

	size := 1

	for _, n := range extents {
		if n < 0 {
			return nil, ErrBadShape.
				With(slog.Int("extent", n))
		}

		size *= n
	}

	data := make([]float64, size)
	for i := range data {
		data[i] = fill
	}

	return NewArray(extents, data)
}

func envLinspace(start, stop float64, count int) (*Array, error) {
	if count < 2 {
		return nil, ErrExprEvaluate.
			With(slog.Int("count", count))
	}

	step := (stop - start) / float64(count-1)

	data := make([]float64, count)
	for i := range count {
		data[i] = start + float64(i)*step
	}

	return NewVector(data...), nil
}

func envTranspose(v any) (*Array, error) {
	arr, err := coerceArray(v)
	if err != nil {
		return nil, err
	}

	return arr.Transpose()
}

func envMatMul(a, b any) (*Array, error) {
	xa, err := coerceArray(a)
	if err != nil {
		return nil, err
	}

	xb, err := coerceArray(b)
	if err != nil {
		return nil, err
	}

	return xa.MatMul(xb)
}

func envEig(v any) (*Array, error) {
	arr, err := coerceArray(v)
	if err != nil {
		return nil, err
	}

	return arr.Eig()
}

func envDot(a, b any) (float64, error) {
	xa, err := coerceArray(a)
	if err != nil {
		return 0, err
	}

	xb, err := coerceArray(b)
	if err != nil {
		return 0, err
	}

	if xa.Size() != xb.Size() {
		return 0, ErrBadShape.
			With(
				slog.String("lhs", shapeString(xa.shape)),
				slog.String("rhs", shapeString(xb.shape)),
			)
	}

	var sum float64
	for i, v := range xa.data {
		sum += v * xb.data[i]
	}

	return sum, nil
}

func envNorm(v any) (float64, error) {
	arr, err := coerceArray(v)
	if err != nil {
		return 0, err
	}

	var sum float64
	for _, x := range arr.data {
		sum += x * x
	}

	return math.Sqrt(sum), nil
}

// -----------------------------------------------------------------------------
// Path and list builtins
// -----------------------------------------------------------------------------

func envPath(s string) Path {
	return NewPath(s)
}

func envPathCat(elem ...string) Path {
	if len(elem) == 0 {
		return Path("")
	}

	p := NewPath(elem[0])
	for _, e := range elem[1:] {
		p = p.Join(e)
	}

	return p
}

// envListCat joins items into a separator-delimited list, dropping
// duplicates, via mung.
func envListCat(delim string, items ...string) string {
	return mung.Make(
		mung.WithDelim(delim),
		mung.WithSubjectItems(items...),
	).String()
}

// envListPrefix prepends items to a separator-delimited list via mung.
func envListPrefix(delim, subject string, prefix ...string) string {
	return mung.Make(
		mung.WithDelim(delim),
		mung.WithSubjectItems(subject),
		mung.WithPrefixItems(prefix...),
	).String()
}
