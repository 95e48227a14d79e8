package deck

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// Class is the structural classification of a string field value. There is
// no stored flag: classification is recomputed from the text each pass.
type Class int

const (
	// ClassFull is the default: interpolate, then attempt arithmetic and
	// array evaluation of the result.
	ClassFull Class = iota

	// ClassLiteral is a "$"-prefixed value where the "$" opens neither an
	// array literal nor an interpolation marker: the prefix is dropped,
	// markers are interpolated, and the result stays an opaque string never
	// passed to arithmetic evaluation.
	ClassLiteral

	// ClassArrayLiteral is a "$["-prefixed Matlab-style array literal.
	ClassArrayLiteral

	// ClassRecursive is a "!"-prefixed literal list whose string elements
	// are individually re-run through interpolation before being frozen.
	ClassRecursive
)

// Classify determines how a raw string value is interpreted, after comment
// stripping.
func Classify(s string) Class {
	switch {
	case strings.HasPrefix(s, "!"):
		return ClassRecursive
	case strings.HasPrefix(s, "$["):
		return ClassArrayLiteral
	case strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${"):
		// A value starting with an interpolation marker is still a full
		// expression, e.g. "${a} + 1".
		return ClassLiteral
	default:
		return ClassFull
	}
}

// StripComment discards text from an unescaped '#' to end-of-line, unless
// the '#' is the first non-blank character of the line (kept literal, e.g.
// markdown titles). A backslash escapes '#' and is consumed.
func StripComment(s string) string {
	if !strings.ContainsRune(s, '#') {
		return s
	}

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = stripCommentLine(line)
	}

	return strings.Join(lines, "\n")
}

func stripCommentLine(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, "#") {
		return line
	}

	var buf strings.Builder

	for i := 0; i < len(line); i++ {
		c := line[i]

		if c == '\\' && i+1 < len(line) && line[i+1] == '#' {
			buf.WriteByte('#')
			i++

			continue
		}

		if c == '#' {
			return strings.TrimRight(buf.String(), " \t")
		}

		buf.WriteByte(c)
	}

	return buf.String()
}

// lookupFunc resolves a referenced field name against the working snapshot.
type lookupFunc func(name string) (any, bool)

// reference is one parsed interpolation marker.
type reference struct {
	name    string
	indices []int
	array   bool // @{...} array-coercing marker
	raw     string
}

// interpolate substitutes ${name}, ${name[i]}, ${name[i,j]} and @{name}
// markers in s against lookup. Markers whose name cannot be resolved stay
// in the output verbatim and are reported in missing. Markers that resolve
// to a Marker value substitute the sentinel text and are reported in
// errored. A backslash immediately before a marker protects it for exactly
// one pass: the backslash is consumed and the marker is emitted literally.
func interpolate(s string, lookup lookupFunc) (out string, missing, errored []string) {
	var buf strings.Builder

	for i := 0; i < len(s); {
		if s[i] == '\\' && isMarkerStart(s, i+1) {
			// Escaped marker: drop the backslash, copy the marker text.
			end := markerEnd(s, i+1)
			buf.WriteString(s[i+1 : end])
			i = end

			continue
		}

		if isMarkerStart(s, i) {
			end := markerEnd(s, i)
			raw := s[i:end]

			ref, ok := parseReference(raw)
			if !ok {
				// Malformed marker: fail soft to literal text.
				buf.WriteString(raw)
				i = end

				continue
			}

			text, state := substituteReference(ref, lookup)
			switch state {
			case refMissing:
				buf.WriteString(raw)

				missing = append(missing, ref.name)

			case refErrored:
				buf.WriteString(text)

				errored = append(errored, ref.name)

			default:
				buf.WriteString(text)
			}

			i = end

			continue
		}

		buf.WriteByte(s[i])
		i++
	}

	return buf.String(), missing, errored
}

// Reference substitution states.
type refState int

const (
	refOK refState = iota
	refMissing
	refErrored
)

// substituteReference renders the textual replacement of one marker.
func substituteReference(ref reference, lookup lookupFunc) (string, refState) {
	value, ok := lookup(ref.name)
	if !ok {
		return "", refMissing
	}

	if m, isM := value.(Marker); isM {
		return m.String(), refErrored
	}

	if len(ref.indices) > 0 {
		sub, err := indexValue(value, ref.indices)
		if err != nil {
			return Marker{Cause: err.Error()}.String(), refErrored
		}

		value = sub
	}

	if ref.array {
		arr, err := coerceArray(value)
		if err != nil {
			return Marker{Cause: err.Error()}.String(), refErrored
		}

		return "array(" + arr.Promote().String() + ")", refOK
	}

	return FormatValue(value), refOK
}

// indexValue applies ${name[i]} / ${name[i,j]} indexing to an array or
// frozen list value.
func indexValue(value any, indices []int) (any, error) {
	switch t := value.(type) {
	case *Array:
		return t.Index(indices...)

	case []any:
		cur := value

		for _, i := range indices {
			list, ok := cur.([]any)
			if !ok {
				return nil, ErrTypeMismatch.
					With(slog.String("want", "list"))
			}

			if i < 0 {
				i += len(list)
			}

			if i < 0 || i >= len(list) {
				return nil, ErrIndexRange.
					With(
						slog.Int("index", i),
						slog.Int("length", len(list)),
					)
			}

			cur = list[i]
		}

		return cur, nil

	default:
		return nil, ErrTypeMismatch.
			With(
				slog.String("want", "array"),
				slog.String("got", typeName(value)),
			)
	}
}

// coerceArray converts a value to a rectangular numeric array, promoting
// scalars to 1×1 and flat sequences to a single row.
func coerceArray(value any) (*Array, error) {
	switch t := value.(type) {
	case *Array:
		return t, nil

	case float64:
		return NewVector(t), nil

	case []any:
		return FromNested(t)

	default:
		return nil, ErrTypeMismatch.
			With(
				slog.String("want", "array"),
				slog.String("got", typeName(value)),
			)
	}
}

// isMarkerStart reports whether s[i:] begins an interpolation marker.
func isMarkerStart(s string, i int) bool {
	return i+1 < len(s) && (s[i] == '$' || s[i] == '@') && s[i+1] == '{'
}

// markerEnd returns the index just past the marker's closing brace, or
// past the opening if unterminated (fail soft).
func markerEnd(s string, i int) int {
	for j := i + 2; j < len(s); j++ {
		if s[j] == '}' {
			return j + 1
		}
	}

	return i + 2
}

// parseReference parses one marker like "${name[1,2]}" or "@{name}".
func parseReference(raw string) (reference, bool) {
	if len(raw) < 4 || raw[1] != '{' || raw[len(raw)-1] != '}' {
		return reference{}, false
	}

	ref := reference{array: raw[0] == '@', raw: raw}

	body := raw[2 : len(raw)-1]

	name, idx, hasIdx := strings.Cut(body, "[")
	if !isIdentifier(name) {
		return reference{}, false
	}

	ref.name = name

	if !hasIdx {
		return ref, true
	}

	if ref.array || !strings.HasSuffix(idx, "]") {
		// Indexed form is only defined for ${...} markers.
		return reference{}, false
	}

	for part := range strings.SplitSeq(strings.TrimSuffix(idx, "]"), ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return reference{}, false
		}

		ref.indices = append(ref.indices, n)
	}

	return ref, len(ref.indices) > 0
}

// isIdentifier reports whether s is a valid field reference name.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}

	return true
}

// References returns the unique field names textually referenced by
// unescaped markers in s, in first-appearance order.
func References(s string) []string {
	var (
		names []string
		seen  = map[string]struct{}{}
	)

	_, _, _ = interpolate(s, func(name string) (any, bool) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}

		return nil, false
	})

	return names
}

// rewritePower replaces the solver's '^' power operator with expr's '**'
// outside of quoted strings.
func rewritePower(s string) string {
	if !strings.ContainsRune(s, '^') {
		return s
	}

	var (
		buf   strings.Builder
		quote byte
	)

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case quote != 0:
			if c == quote && s[i-1] != '\\' {
				quote = 0
			}

			buf.WriteByte(c)

		case c == '"' || c == '\'':
			quote = c

			buf.WriteByte(c)

		case c == '^':
			buf.WriteString("**")

		default:
			buf.WriteByte(c)
		}
	}

	return buf.String()
}

// parseArrayLiteral parses the Matlab-style literal after the "$" prefix:
// space-separated row elements, ';' or bracket nesting for row and plane
// separation, and a:b / a:step:b range expansion. Nesting depth 1-4.
func parseArrayLiteral(s string) (*Array, error) {
	toks, err := scanArrayTokens(s)
	if err != nil {
		return nil, err
	}

	if len(toks) == 0 || toks[0].kind != tokOpen {
		return nil, ErrBadArrayLiteral.
			With(slog.String("literal", s))
	}

	value, rest, err := parseArrayGroup(toks[1:])
	if err != nil {
		return nil, err
	}

	if len(rest) != 0 {
		return nil, ErrBadArrayLiteral.
			With(slog.String("literal", s))
	}

	arr, err := FromNested(value)
	if err != nil {
		return nil, ErrBadArrayLiteral.Wrap(err)
	}

	return arr, nil
}

// Array literal token kinds.
type tokKind int

const (
	tokOpen tokKind = iota
	tokClose
	tokSemi
	tokColon
	tokNumber
)

type arrayToken struct {
	kind tokKind
	num  float64
}

// scanArrayTokens tokenizes an array literal body.
func scanArrayTokens(s string) ([]arrayToken, error) {
	var toks []arrayToken

	for i := 0; i < len(s); {
		c := s[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == ',':
			i++

		case c == '[':
			toks = append(toks, arrayToken{kind: tokOpen})
			i++

		case c == ']':
			toks = append(toks, arrayToken{kind: tokClose})
			i++

		case c == ';':
			toks = append(toks, arrayToken{kind: tokSemi})
			i++

		case c == ':':
			toks = append(toks, arrayToken{kind: tokColon})
			i++

		default:
			j := i
			if c == '+' || c == '-' {
				j++
			}

			for j < len(s) && (isDigit(s[j]) || s[j] == '.' ||
				s[j] == 'e' || s[j] == 'E' ||
				((s[j] == '+' || s[j] == '-') && (s[j-1] == 'e' || s[j-1] == 'E'))) {
				j++
			}

			num, err := strconv.ParseFloat(s[i:j], 64)
			if err != nil {
				return nil, ErrBadArrayLiteral.Wrap(err).
					With(slog.String("element", s[i:j]))
			}

			toks = append(toks, arrayToken{kind: tokNumber, num: num})
			i = j
		}
	}

	return toks, nil
}

// parseArrayGroup parses tokens after an opening bracket up to its match.
// Each group is a ';'-separated list of rows; each row is a list of
// scalars (with ranges expanded) or nested groups.
func parseArrayGroup(toks []arrayToken) (any, []arrayToken, error) {
	var (
		rows []any
		row  []any
	)

	closeRow := func() error {
		value, err := rowValue(row)
		if err != nil {
			return err
		}

		rows = append(rows, value)
		row = nil

		return nil
	}

	for len(toks) > 0 {
		tok := toks[0]

		switch tok.kind {
		case tokClose:
			if err := closeRow(); err != nil {
				return nil, nil, err
			}

			if len(rows) == 1 {
				return rows[0], toks[1:], nil
			}

			return rows, toks[1:], nil

		case tokSemi:
			if err := closeRow(); err != nil {
				return nil, nil, err
			}

			toks = toks[1:]

		case tokOpen:
			sub, rest, err := parseArrayGroup(toks[1:])
			if err != nil {
				return nil, nil, err
			}

			row = append(row, nested{sub})
			toks = rest

		case tokNumber:
			nums, rest, err := parseScalarOrRange(toks)
			if err != nil {
				return nil, nil, err
			}

			for _, n := range nums {
				row = append(row, n)
			}

			toks = rest

		default:
			return nil, nil, ErrBadArrayLiteral
		}
	}

	return nil, nil, ErrBadArrayLiteral.
		With(slog.String("cause", "missing closing bracket"))
}

// nested wraps a subgroup so rowValue can tell groups from scalars.
type nested struct{ value any }

// rowValue normalizes one row: all scalars become a flat list, a single
// subgroup is the row's value (a plane), multiple subgroups stack.
func rowValue(row []any) (any, error) {
	if len(row) == 0 {
		return []any{}, nil
	}

	var (
		scalars []any
		groups  []any
	)

	for _, elem := range row {
		if g, ok := elem.(nested); ok {
			groups = append(groups, g.value)
		} else {
			scalars = append(scalars, elem)
		}
	}

	switch {
	case len(groups) == 0:
		return scalars, nil

	case len(scalars) > 0:
		return nil, ErrBadArrayLiteral.
			With(slog.String("cause", "mixed scalars and sub-arrays in one row"))

	case len(groups) == 1:
		return groups[0], nil

	default:
		return groups, nil
	}
}

// parseScalarOrRange consumes a number, a:b, or a:step:b starting at
// toks[0], returning the expanded elements.
func parseScalarOrRange(toks []arrayToken) ([]float64, []arrayToken, error) {
	first := toks[0].num
	toks = toks[1:]

	if len(toks) < 2 || toks[0].kind != tokColon || toks[1].kind != tokNumber {
		return []float64{first}, toks, nil
	}

	second := toks[1].num
	toks = toks[2:]

	start, step, stop := first, 1.0, second

	if len(toks) >= 2 && toks[0].kind == tokColon && toks[1].kind == tokNumber {
		step, stop = second, toks[1].num
		toks = toks[2:]
	}

	nums, err := expandRange(start, step, stop)
	if err != nil {
		return nil, nil, err
	}

	return nums, toks, nil
}

// rangeTolerance absorbs floating-point error when deciding whether the
// range endpoint is included.
const rangeTolerance = 1e-9

// expandRange expands a:step:b into explicit, endpoint-inclusive elements.
func expandRange(start, step, stop float64) ([]float64, error) {
	if step == 0 {
		return nil, ErrBadArrayLiteral.
			With(slog.String("cause", "zero range step"))
	}

	span := (stop - start) / step
	if span < 0 {
		return nil, nil
	}

	count := int(math.Floor(span+rangeTolerance)) + 1

	nums := make([]float64, count)
	for i := range count {
		nums[i] = start + float64(i)*step
	}

	return nums, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
