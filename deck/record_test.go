package deck

import (
	"errors"
	"testing"
)

func TestRecord_SetPreservesOrder(t *testing.T) {
	rec := New()

	names := []string{"zeta", "alpha", "mid", "beta"}
	for i, name := range names {
		if err := rec.Set(name, float64(i)); err != nil {
			t.Fatalf("set error: %v", err)
		}
	}

	got := rec.Keys()
	if len(got) != len(names) {
		t.Fatalf("expected %d keys, got %d", len(names), len(got))
	}

	for i, name := range names {
		if got[i] != name {
			t.Errorf("key %d: expected %q, got %q", i, name, got[i])
		}
	}
}

func TestRecord_SetReplaceKeepsPosition(t *testing.T) {
	rec := New()

	_ = rec.Set("a", 1.0)
	_ = rec.Set("b", 2.0)
	_ = rec.Set("c", 3.0)

	if err := rec.Set("b", 20.0); err != nil {
		t.Fatalf("replace error: %v", err)
	}

	keys := rec.Keys()
	if keys[1] != "b" {
		t.Errorf("expected b at position 1 after replace, got %q", keys[1])
	}

	v, err := rec.GetNumber("b")
	if err != nil {
		t.Fatalf("get error: %v", err)
	}

	if v != 20 {
		t.Errorf("expected 20, got %v", v)
	}
}

func TestRecord_GetMissing(t *testing.T) {
	rec := New()

	_, err := rec.Get("nothing")
	if err == nil {
		t.Fatal("expected error for missing field")
	}

	if !errors.Is(err, ErrFieldNotFound) {
		t.Errorf("expected ErrFieldNotFound, got %v", err)
	}
}

func TestRecord_SetReservedName(t *testing.T) {
	rec := New()

	for _, name := range []string{"__label__", "__source__"} {
		if err := rec.Set(name, "x"); !errors.Is(err, ErrReservedName) {
			t.Errorf("Set(%q): expected ErrReservedName, got %v", name, err)
		}

		if err := rec.Delete(name); !errors.Is(err, ErrReservedName) {
			t.Errorf("Delete(%q): expected ErrReservedName, got %v", name, err)
		}
	}
}

func TestRecord_EmptySequenceDeletes(t *testing.T) {
	rec := New()

	_ = rec.Set("a", 1.0)
	_ = rec.Set("b", 2.0)

	if err := rec.Set("a", []float64{}); err != nil {
		t.Fatalf("set error: %v", err)
	}

	if rec.Has("a") {
		t.Error("expected a to be deleted by empty sequence assignment")
	}

	// Assigning an empty sequence to an absent name is a no-op.
	if err := rec.Set("nope", []any{}); err != nil {
		t.Fatalf("set error: %v", err)
	}

	if rec.Has("nope") {
		t.Error("expected no field created by empty sequence assignment")
	}
}

func TestRecord_DeleteReindexes(t *testing.T) {
	rec := New()

	_ = rec.Set("a", 1.0)
	_ = rec.Set("b", 2.0)
	_ = rec.Set("c", 3.0)

	if err := rec.Delete("b"); err != nil {
		t.Fatalf("delete error: %v", err)
	}

	if err := rec.Delete("b"); !errors.Is(err, ErrFieldNotFound) {
		t.Errorf("expected ErrFieldNotFound on double delete, got %v", err)
	}

	name, v, err := rec.At(1)
	if err != nil {
		t.Fatalf("at error: %v", err)
	}

	if name != "c" || v != 3.0 {
		t.Errorf("expected c=3 at position 1, got %s=%v", name, v)
	}
}

func TestRecord_AtNegative(t *testing.T) {
	rec := New()

	_ = rec.Set("a", 1.0)
	_ = rec.Set("b", 2.0)

	name, _, err := rec.At(-1)
	if err != nil {
		t.Fatalf("at error: %v", err)
	}

	if name != "b" {
		t.Errorf("expected b, got %q", name)
	}

	if _, _, err := rec.At(5); !errors.Is(err, ErrIndexRange) {
		t.Errorf("expected ErrIndexRange, got %v", err)
	}
}

func TestRecord_Slice(t *testing.T) {
	rec := New()

	for _, name := range []string{"a", "b", "c", "d"} {
		_ = rec.Set(name, name)
	}

	sub, err := rec.Slice(1, 3)
	if err != nil {
		t.Fatalf("slice error: %v", err)
	}

	keys := sub.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "c" {
		t.Errorf("expected [b c], got %v", keys)
	}

	// Negative positions count from the end.
	tail, err := rec.Slice(-2, 4)
	if err != nil {
		t.Fatalf("slice error: %v", err)
	}

	if tail.Len() != 2 || tail.Keys()[0] != "c" {
		t.Errorf("expected [c d], got %v", tail.Keys())
	}

	if _, err := rec.Slice(3, 1); !errors.Is(err, ErrIndexRange) {
		t.Errorf("expected ErrIndexRange, got %v", err)
	}
}

func TestRecord_ConcatCollisionAndOrder(t *testing.T) {
	left := New()
	_ = left.Set("a", 1.0)
	_ = left.Set("b", 2.0)

	right := New()
	_ = right.Set("b", 20.0)
	_ = right.Set("c", 30.0)

	out := left.Concat(right)

	keys := out.Keys()
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("expected [a b c], got %v", keys)
	}

	b, _ := out.GetNumber("b")
	if b != 20 {
		t.Errorf("expected collision to take right operand value 20, got %v", b)
	}

	// Neither operand is mutated.
	if v, _ := left.GetNumber("b"); v != 2 {
		t.Errorf("left operand mutated: b=%v", v)
	}

	if left.Len() != 2 || right.Len() != 2 {
		t.Error("operand length changed by Concat")
	}
}

func TestRecord_Difference(t *testing.T) {
	left := New()
	_ = left.Set("a", 1.0)
	_ = left.Set("b", 2.0)
	_ = left.Set("c", 3.0)

	right := New()
	_ = right.Set("b", 99.0)

	out := left.Difference(right)

	keys := out.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Errorf("expected [a c], got %v", keys)
	}
}

func TestRecord_CloneIndependence(t *testing.T) {
	rec := New()
	_ = rec.Set("a", 1.0)

	dup := rec.Clone()
	_ = dup.Set("a", 2.0)
	_ = dup.Set("b", 3.0)

	if v, _ := rec.GetNumber("a"); v != 1 {
		t.Errorf("clone write leaked into source: a=%v", v)
	}

	if rec.Has("b") {
		t.Error("clone append leaked into source")
	}
}

func TestRecord_Equal(t *testing.T) {
	a := New()
	_ = a.Set("x", 1.0)
	_ = a.Set("y", NewVector(1, 2, 3))

	b := New()
	_ = b.Set("x", 1.0)
	_ = b.Set("y", NewVector(1, 2, 3))

	if !a.Equal(b) {
		t.Error("expected records to be equal")
	}

	// Same fields in a different order are not equal.
	c := New()
	_ = c.Set("y", NewVector(1, 2, 3))
	_ = c.Set("x", 1.0)

	if a.Equal(c) {
		t.Error("expected order-sensitive inequality")
	}
}

func TestRecord_TypedGetters(t *testing.T) {
	rec := New()
	_ = rec.Set("n", 4.5)
	_ = rec.Set("f", true)
	_ = rec.Set("s", "text")
	_ = rec.Set("p", NewPath("a/b"))
	_ = rec.Set("v", NewVector(1, 2))

	if n, err := rec.GetNumber("n"); err != nil || n != 4.5 {
		t.Errorf("GetNumber: %v, %v", n, err)
	}

	if f, err := rec.GetBool("f"); err != nil || !f {
		t.Errorf("GetBool: %v, %v", f, err)
	}

	if s, err := rec.GetString("s"); err != nil || s != "text" {
		t.Errorf("GetString: %v, %v", s, err)
	}

	// Path values satisfy GetString.
	if s, err := rec.GetString("p"); err != nil || s != "a/b" {
		t.Errorf("GetString(path): %v, %v", s, err)
	}

	if _, err := rec.GetNumber("s"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}

	if _, err := rec.GetArray("n"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestRecord_SetNormalizes(t *testing.T) {
	rec := New()

	_ = rec.Set("i", 7)
	if _, err := rec.GetNumber("i"); err != nil {
		t.Errorf("expected int input normalized to number: %v", err)
	}

	_ = rec.Set("v", []float64{1, 2, 3})

	arr, err := rec.GetArray("v")
	if err != nil {
		t.Fatalf("expected []float64 normalized to array: %v", err)
	}

	if arr.Rank() != 1 || arr.Size() != 3 {
		t.Errorf("expected rank-1 size-3 array, got %v", arr)
	}
}

func TestRecord_String(t *testing.T) {
	rec := New()
	_ = rec.Set("a", 1.0)
	_ = rec.Set("b", "two")

	want := `{a=1, b="two"}`
	if got := rec.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
