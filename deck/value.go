package deck

import (
	"fmt"
	"strconv"
	"strings"
)

// A field value is one of:
//
//	float64   number
//	bool      boolean
//	string    literal text or unevaluated expression
//	Path      filesystem path fragment
//	*Array    rectangular numeric array, rank 1-4
//	[]any     frozen literal list (result of a !-expression)
//	*Record   nested record
//	Marker    evaluation-error sentinel
//
// Set and Evaluate normalize other numeric and slice types into this set.

// Marker is the sentinel value stored in a snapshot field whose expression
// could not be evaluated. It is a value, not an error: sibling fields keep
// evaluating, and callers grep snapshots for its textual form.
type Marker struct {
	// Cause is a human-readable description of the failure.
	Cause string
	// Missing names the unresolved reference, when that is the cause.
	Missing string
}

// unresolvedMarker builds the Marker for a reference to an unknown name.
func unresolvedMarker(name string) Marker {
	return Marker{
		Cause:   "unresolved reference to " + strconv.Quote(name),
		Missing: name,
	}
}

// String renders the greppable sentinel form, e.g.
// `<error: unresolved reference to "d">`.
func (m Marker) String() string {
	return "<error: " + m.Cause + ">"
}

// IsMarker reports whether a snapshot value is an evaluation-error
// sentinel.
func IsMarker(v any) bool {
	_, ok := v.(Marker)

	return ok
}

// toFloat coerces the numeric types expr-lang may produce to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// normalizeValue maps an arbitrary input or evaluation result onto the
// canonical field value set. Flat numeric slices become arrays; []any
// stays a list (even all-numeric, so frozen literal lists survive
// storage); everything else passes through.
func normalizeValue(v any) any {
	if f, ok := toFloat(v); ok {
		return f
	}

	switch t := v.(type) {
	case nil, bool, string, Path, *Array, *Record, Marker:
		return v

	case []float64:
		return NewVector(t...)

	case []int:
		data := make([]float64, len(t))
		for i, n := range t {
			data[i] = float64(n)
		}

		return NewVector(data...)

	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = normalizeValue(elem)
		}

		return out

	default:
		return v
	}
}

// isEmptySequence reports whether a value is the empty numeric sequence,
// which Set treats as a deletion alias.
func isEmptySequence(v any) bool {
	switch t := v.(type) {
	case []float64:
		return len(t) == 0
	case []int:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case *Array:
		return t != nil && t.IsEmpty()
	default:
		return false
	}
}

// FormatValue renders a field value in the textual form substituted by
// interpolation and written by the deck serializer for display.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"

	case float64:
		return formatFloat(t)

	case bool:
		return strconv.FormatBool(t)

	case string:
		return t

	case Path:
		return string(t)

	case *Array:
		return t.String()

	case []any:
		parts := make([]string, len(t))
		for i, elem := range t {
			parts[i] = FormatValue(elem)
		}

		return "[" + strings.Join(parts, ", ") + "]"

	case *Record:
		return t.String()

	case Marker:
		return t.String()

	default:
		return fmt.Sprintf("%v", t)
	}
}

// typeName reports a short value-kind name for error attributes.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case string:
		return "string"
	case Path:
		return "path"
	case *Array:
		return "array"
	case []any:
		return "list"
	case *Record:
		return "record"
	case Marker:
		return "marker"
	default:
		if _, ok := toFloat(v); ok {
			return "number"
		}

		return fmt.Sprintf("%T", v)
	}
}

// valueEqual compares two canonical field values for deep equality.
func valueEqual(a, b any) bool {
	switch x := a.(type) {
	case *Array:
		y, ok := b.(*Array)

		return ok && x.Equal(y)

	case *Record:
		y, ok := b.(*Record)

		return ok && x.Equal(y)

	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}

		for i := range x {
			if !valueEqual(x[i], y[i]) {
				return false
			}
		}

		return true

	default:
		return a == b
	}
}
