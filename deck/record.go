package deck

import (
	"iter"
	"log/slog"
	"strings"
)

// reservedNames are engine bookkeeping identifiers used by the deck
// serializer. They are excluded from enumeration and cannot be set or
// deleted through the public API.
var reservedNames = map[string]struct{}{
	"__label__":  {},
	"__source__": {},
}

// Reserved reports whether a field name is reserved for engine
// bookkeeping.
func Reserved(name string) bool {
	_, ok := reservedNames[name]

	return ok
}

// Record is an ordered collection of named fields. Field names are unique
// and iteration follows insertion order. Lookup is O(1) via a name→index
// map maintained alongside the ordered key list.
type Record struct {
	keys  []string
	vals  []any
	index map[string]int

	label  string // optional record label, carried by the serializer
	source string // origin of the record (file path), informational
}

// New creates an empty Record.
func New() *Record {
	return &Record{index: make(map[string]int)}
}

// Label returns the optional record label.
func (r *Record) Label() string { return r.label }

// SetLabel sets the optional record label.
func (r *Record) SetLabel(label string) { r.label = label }

// Source returns the origin the record was read from, if any.
func (r *Record) Source() string { return r.source }

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.keys) }

// Has reports whether a field with the given name exists.
func (r *Record) Has(name string) bool {
	_, ok := r.index[name]

	return ok
}

// Set assigns a field value, replacing any existing value wholesale and
// appending new names in insertion order. Assigning an empty numeric
// sequence to an existing field deletes it. Reserved names are rejected.
func (r *Record) Set(name string, value any) error {
	if Reserved(name) {
		return ErrReservedName.
			With(slog.String("name", name))
	}

	if isEmptySequence(value) {
		if r.Has(name) {
			return r.Delete(name)
		}

		return nil
	}

	value = normalizeValue(value)

	if i, ok := r.index[name]; ok {
		r.vals[i] = value

		return nil
	}

	if r.index == nil {
		r.index = make(map[string]int)
	}

	r.index[name] = len(r.keys)
	r.keys = append(r.keys, name)
	r.vals = append(r.vals, value)

	return nil
}

// Get returns the value of the named field.
func (r *Record) Get(name string) (any, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, ErrFieldNotFound.
			With(slog.String("name", name))
	}

	return r.vals[i], nil
}

// GetNumber returns the named field as a float64.
func (r *Record) GetNumber(name string) (float64, error) {
	v, err := r.Get(name)
	if err != nil {
		return 0, err
	}

	f, ok := v.(float64)
	if !ok {
		return 0, ErrTypeMismatch.
			With(
				slog.String("name", name),
				slog.String("want", "number"),
				slog.String("got", typeName(v)),
			)
	}

	return f, nil
}

// GetBool returns the named field as a bool.
func (r *Record) GetBool(name string) (bool, error) {
	v, err := r.Get(name)
	if err != nil {
		return false, err
	}

	b, ok := v.(bool)
	if !ok {
		return false, ErrTypeMismatch.
			With(
				slog.String("name", name),
				slog.String("want", "boolean"),
				slog.String("got", typeName(v)),
			)
	}

	return b, nil
}

// GetString returns the named field as a string.
func (r *Record) GetString(name string) (string, error) {
	v, err := r.Get(name)
	if err != nil {
		return "", err
	}

	switch s := v.(type) {
	case string:
		return s, nil
	case Path:
		return string(s), nil
	default:
		return "", ErrTypeMismatch.
			With(
				slog.String("name", name),
				slog.String("want", "string"),
				slog.String("got", typeName(v)),
			)
	}
}

// GetArray returns the named field as an *Array.
func (r *Record) GetArray(name string) (*Array, error) {
	v, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	a, ok := v.(*Array)
	if !ok {
		return nil, ErrTypeMismatch.
			With(
				slog.String("name", name),
				slog.String("want", "array"),
				slog.String("got", typeName(v)),
			)
	}

	return a, nil
}

// GetRecord returns the named field as a nested *Record.
func (r *Record) GetRecord(name string) (*Record, error) {
	v, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	n, ok := v.(*Record)
	if !ok {
		return nil, ErrTypeMismatch.
			With(
				slog.String("name", name),
				slog.String("want", "record"),
				slog.String("got", typeName(v)),
			)
	}

	return n, nil
}

// Delete removes the named field. Absent and reserved names fail.
func (r *Record) Delete(name string) error {
	if Reserved(name) {
		return ErrReservedName.
			With(slog.String("name", name))
	}

	i, ok := r.index[name]
	if !ok {
		return ErrFieldNotFound.
			With(slog.String("name", name))
	}

	r.keys = append(r.keys[:i], r.keys[i+1:]...)
	r.vals = append(r.vals[:i], r.vals[i+1:]...)

	delete(r.index, name)

	for j := i; j < len(r.keys); j++ {
		r.index[r.keys[j]] = j
	}

	return nil
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Values returns the field values in insertion order.
func (r *Record) Values() []any {
	return append([]any(nil), r.vals...)
}

// Items iterates name/value pairs in insertion order.
func (r *Record) Items() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for i, name := range r.keys {
			if !yield(name, r.vals[i]) {
				return
			}
		}
	}
}

// At returns the name and value of the field at position i, equivalent to
// indexing the ordered key list.
func (r *Record) At(i int) (string, any, error) {
	if i < 0 {
		i += len(r.keys)
	}

	if i < 0 || i >= len(r.keys) {
		return "", nil, ErrIndexRange.
			With(
				slog.Int("index", i),
				slog.Int("length", len(r.keys)),
			)
	}

	return r.keys[i], r.vals[i], nil
}

// Slice returns a new Record holding the fields in positions [i, j),
// equivalent to slicing the ordered key list. Negative positions count
// from the end.
func (r *Record) Slice(i, j int) (*Record, error) {
	if i < 0 {
		i += len(r.keys)
	}

	if j < 0 {
		j += len(r.keys)
	}

	if i < 0 || j > len(r.keys) || i > j {
		return nil, ErrIndexRange.
			With(
				slog.Int("low", i),
				slog.Int("high", j),
				slog.Int("length", len(r.keys)),
			)
	}

	out := New()
	for k := i; k < j; k++ {
		_ = out.Set(r.keys[k], r.vals[k])
	}

	return out, nil
}

// Concat returns a new Record combining both operands. Fields of other win
// on name collision; new names are appended in other's order. Neither
// operand is mutated.
func (r *Record) Concat(other *Record) *Record {
	out := r.Clone()
	out.Merge(other)

	return out
}

// Merge is the explicit in-place variant of Concat.
func (r *Record) Merge(other *Record) {
	if other == nil {
		return
	}

	for name, value := range other.Items() {
		_ = r.Set(name, value)
	}
}

// Difference returns a new Record with every field of r whose name is not
// present in other. Neither operand is mutated.
func (r *Record) Difference(other *Record) *Record {
	out := New()

	for name, value := range r.Items() {
		if other != nil && other.Has(name) {
			continue
		}

		_ = out.Set(name, value)
	}

	out.label = r.label

	return out
}

// Clone returns an independent shallow copy preserving field order.
func (r *Record) Clone() *Record {
	out := &Record{
		keys:   append([]string(nil), r.keys...),
		vals:   append([]any(nil), r.vals...),
		index:  make(map[string]int, len(r.keys)),
		label:  r.label,
		source: r.source,
	}

	for i, name := range out.keys {
		out.index[name] = i
	}

	return out
}

// Equal reports whether two records hold the same fields with deep-equal
// values in the same order.
func (r *Record) Equal(other *Record) bool {
	if other == nil || len(r.keys) != len(other.keys) {
		return false
	}

	for i, name := range r.keys {
		if other.keys[i] != name || !valueEqual(r.vals[i], other.vals[i]) {
			return false
		}
	}

	return true
}

// String renders the record in brace form for display and interpolation of
// nested records, e.g. "{a=1, b=2}".
func (r *Record) String() string {
	var buf strings.Builder

	buf.WriteByte('{')

	for i, name := range r.keys {
		if i > 0 {
			buf.WriteString(", ")
		}

		buf.WriteString(name)
		buf.WriteByte('=')
		buf.WriteString(formatScalarOrQuoted(r.vals[i]))
	}

	buf.WriteByte('}')

	return buf.String()
}
