package deck

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Class
	}{
		{"full", "2 * ${a}", ClassFull},
		{"leading_marker", "${a} + 1", ClassFull},
		{"bare_marker", "${a}", ClassFull},
		{"literal", "$keep as text", ClassLiteral},
		{"literal_with_marker", "$${a} + 1", ClassLiteral},
		{"array_literal", "$[1 2 3]", ClassArrayLiteral},
		{"recursive", `!["a", "b"]`, ClassRecursive},
		{"empty", "", ClassFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.input); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripComment(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "1 + 2", "1 + 2"},
		{"trailing", "1 + 2 # sum", "1 + 2"},
		{"leading_kept", "# section title", "# section title"},
		{"leading_after_blank", "  # indented title", "  # indented title"},
		{"escaped", `a \# b # gone`, "a # b"},
		{"multiline", "x # one\ny # two", "x\ny"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripComment(tt.input); got != tt.want {
				t.Errorf("StripComment(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func lookupFrom(rec *Record) lookupFunc {
	return func(name string) (any, bool) {
		v, err := rec.Get(name)

		return v, err == nil
	}
}

func TestInterpolate_Substitution(t *testing.T) {
	rec := New()
	_ = rec.Set("a", 2.0)
	_ = rec.Set("s", "text")
	_ = rec.Set("m", mustArray(t, []int{2, 2}, 1, 2, 3, 4))

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"number", "x = ${a}", "x = 2"},
		{"string", "<${s}>", "<text>"},
		{"two_refs", "${a}${a}", "22"},
		{"full_index", "${m[1,0]}", "3"},
		{"partial_index", "${m[0]}", "[1, 2]"},
		{"whole_array", "${m}", "[[1, 2], [3, 4]]"},
		{"no_markers", "plain text", "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, missing, errored := interpolate(tt.input, lookupFrom(rec))
			if got != tt.want {
				t.Errorf("interpolate(%q) = %q, want %q", tt.input, got, tt.want)
			}

			if len(missing) != 0 || len(errored) != 0 {
				t.Errorf("unexpected missing=%v errored=%v", missing, errored)
			}
		})
	}
}

func TestInterpolate_MissingKeepsMarker(t *testing.T) {
	rec := New()
	_ = rec.Set("a", 1.0)

	got, missing, _ := interpolate("${a} + ${d}", lookupFrom(rec))

	if got != "1 + ${d}" {
		t.Errorf("expected unresolved marker kept verbatim, got %q", got)
	}

	if len(missing) != 1 || missing[0] != "d" {
		t.Errorf("expected missing [d], got %v", missing)
	}
}

func TestInterpolate_ErroredReference(t *testing.T) {
	rec := New()
	_ = rec.Set("bad", unresolvedMarker("gone"))

	got, _, errored := interpolate("v = ${bad}", lookupFrom(rec))

	if !strings.Contains(got, "<error:") {
		t.Errorf("expected sentinel text substituted, got %q", got)
	}

	if len(errored) != 1 || errored[0] != "bad" {
		t.Errorf("expected errored [bad], got %v", errored)
	}
}

func TestInterpolate_EscapedMarker(t *testing.T) {
	rec := New()
	_ = rec.Set("a", 1.0)

	// The backslash protects the marker for exactly one pass.
	got, missing, _ := interpolate(`\${a} and ${a}`, lookupFrom(rec))

	if got != "${a} and 1" {
		t.Errorf("expected escaped marker emitted literally, got %q", got)
	}

	if len(missing) != 0 {
		t.Errorf("escaped marker must not count as missing: %v", missing)
	}
}

func TestInterpolate_ArrayMarker(t *testing.T) {
	rec := New()
	_ = rec.Set("v", NewVector(1, 2, 3))
	_ = rec.Set("m", mustArray(t, []int{2, 2}, 1, 2, 3, 4))
	_ = rec.Set("x", 5.0)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"vector_promoted", "@{v}", "array([[1, 2, 3]])"},
		{"matrix", "@{m}", "array([[1, 2], [3, 4]])"},
		{"scalar_coerced", "@{x}", "array([[5]])"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, missing, errored := interpolate(tt.input, lookupFrom(rec))
			if got != tt.want {
				t.Errorf("interpolate(%q) = %q, want %q", tt.input, got, tt.want)
			}

			if len(missing) != 0 || len(errored) != 0 {
				t.Errorf("unexpected missing=%v errored=%v", missing, errored)
			}
		})
	}
}

func TestInterpolate_MalformedMarker(t *testing.T) {
	rec := New()
	_ = rec.Set("a", 1.0)

	tests := []struct {
		name  string
		input string
	}{
		{"bad_name", "${9lives}"},
		{"empty", "${}"},
		{"indexed_array_marker", "@{a[0]}"},
		{"bad_index", "${a[x]}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Malformed markers fail soft to their literal text.
			got, _, _ := interpolate(tt.input, lookupFrom(rec))
			if got != tt.input {
				t.Errorf("interpolate(%q) = %q, want input unchanged", tt.input, got)
			}
		})
	}
}

func TestReferences(t *testing.T) {
	refs := References("${a} + ${b} * @{a} - ${c[1]}")

	want := []string{"a", "b", "c"}
	if len(refs) != len(want) {
		t.Fatalf("expected %v, got %v", want, refs)
	}

	for i, name := range want {
		if refs[i] != name {
			t.Errorf("reference %d: expected %q, got %q", i, name, refs[i])
		}
	}

	if got := References("no markers here"); len(got) != 0 {
		t.Errorf("expected no references, got %v", got)
	}

	// Escaped markers are not references.
	if got := References(`\${a}`); len(got) != 0 {
		t.Errorf("expected escaped marker ignored, got %v", got)
	}
}

func TestRewritePower(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "2^3", "2**3"},
		{"chained", "a^b^c", "a**b**c"},
		{"inside_double_quotes", `"x^y" + 2^2`, `"x^y" + 2**2`},
		{"inside_single_quotes", `'a^b'`, `'a^b'`},
		{"no_caret", "2*3", "2*3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rewritePower(tt.input); got != tt.want {
				t.Errorf("rewritePower(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseArrayLiteral_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *Array
	}{
		{"row_vector", "[1 2 3]", NewVector(1, 2, 3)},
		{"column", "[1; 2; 3]", mustArray(t, []int{3, 1}, 1, 2, 3)},
		{"matrix", "[1 2; 3 4]", mustArray(t, []int{2, 2}, 1, 2, 3, 4)},
		{"commas_ignored", "[1, 2; 3, 4]", mustArray(t, []int{2, 2}, 1, 2, 3, 4)},
		{"nested_rank2", "[[1 2][3 4]]", mustArray(t, []int{2, 2}, 1, 2, 3, 4)},
		{
			"nested_rank3",
			"[[1 2; 3 4][5 6; 7 8]]",
			mustArray(t, []int{2, 2, 2}, 1, 2, 3, 4, 5, 6, 7, 8),
		},
		{"negative", "[-1 -2.5 3e2]", NewVector(-1, -2.5, 300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArrayLiteral(tt.input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}

			if !got.Equal(tt.want) {
				t.Errorf("parseArrayLiteral(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseArrayLiteral_Ranges(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *Array
	}{
		{"unit_step", "[1:4]", NewVector(1, 2, 3, 4)},
		{"explicit_step", "[0:0.5:2]", NewVector(0, 0.5, 1, 1.5, 2)},
		{"negative_step", "[3:-1:1]", NewVector(3, 2, 1)},
		{"endpoint_tolerance", "[0:0.1:0.3]", NewVector(0, 0.1, 0.2, 0.30000000000000004)},
		{"mixed_row", "[0 1:3 9]", NewVector(0, 1, 2, 3, 9)},
		{"range_rows", "[1:2; 3:4]", mustArray(t, []int{2, 2}, 1, 2, 3, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArrayLiteral(tt.input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}

			if got.Size() != tt.want.Size() {
				t.Fatalf("parseArrayLiteral(%q) = %v, want %v", tt.input, got, tt.want)
			}

			gotVals, wantVals := got.Values(), tt.want.Values()
			for i := range gotVals {
				if diff := gotVals[i] - wantVals[i]; diff > 1e-9 || diff < -1e-9 {
					t.Errorf("element %d: got %v, want %v", i, gotVals[i], wantVals[i])
				}
			}
		})
	}
}

func TestParseArrayLiteral_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated", "[1 2"},
		{"ragged", "[1 2; 3]"},
		{"mixed_row", "[1 [2 3]]"},
		{"zero_step", "[1:0:5]"},
		{"not_a_number", "[1 x 3]"},
		{"no_bracket", "1 2 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseArrayLiteral(tt.input); err == nil {
				t.Errorf("parseArrayLiteral(%q): expected error", tt.input)
			}
		})
	}
}

func TestParseArrayLiteral_EmptyRange(t *testing.T) {
	// A range running the wrong direction expands to no elements.
	got, err := parseArrayLiteral("[1 5:1:4 2]")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if !got.Equal(NewVector(1, 2)) {
		t.Errorf("expected [1, 2], got %v", got)
	}
}
