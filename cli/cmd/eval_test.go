package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestEvalRun_Deck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeDeck(t, dir, "case.deck",
		"radius=2\narea=\"pi * ${radius}^2\"\n")

	var buf bytes.Buffer

	ctx := WithOutput(context.Background(), &buf)

	cmd := &Eval{Output: "deck"}

	err := cmd.Run(WithSourceFiles(ctx, []string{path}))
	if err != nil {
		t.Fatalf("Eval.Run() error = %v", err)
	}

	out := buf.String()

	if !strings.Contains(out, "radius=2") {
		t.Errorf("output missing radius:\n%s", out)
	}

	// pi * 4 = 12.566...
	if !strings.Contains(out, "area=12.566") {
		t.Errorf("output missing evaluated area:\n%s", out)
	}
}

func TestEvalRun_SortResolvesForwardReferences(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeDeck(t, dir, "fwd.deck",
		"total=\"${unit} * 3\"\nunit=5\n")

	var buf bytes.Buffer

	ctx := WithOutput(context.Background(), &buf)

	cmd := &Eval{Sort: true, Strict: true, Output: "deck"}

	err := cmd.Run(WithSourceFiles(ctx, []string{path}))
	if err != nil {
		t.Fatalf("Eval.Run() error = %v", err)
	}

	if !strings.Contains(buf.String(), "total=15") {
		t.Errorf("forward reference did not resolve:\n%s", buf.String())
	}
}

func TestEvalRun_StrictCycleFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeDeck(t, dir, "cycle.deck",
		"a=\"${b} + 1\"\nb=\"${a} + 1\"\n")

	cmd := &Eval{Sort: true, Strict: true, Output: "deck"}

	ctx := WithOutput(context.Background(), new(bytes.Buffer))

	err := cmd.Run(WithSourceFiles(ctx, []string{path}))
	if err == nil {
		t.Fatal("expected strict ordering failure for cyclic deck")
	}
}

func TestEvalRun_JSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeDeck(t, dir, "case.deck", "n=3\nv=\"$[1:${n}]\"\n")

	var buf bytes.Buffer

	ctx := WithOutput(context.Background(), &buf)

	cmd := &Eval{Output: "json", Indent: 2}

	err := cmd.Run(WithSourceFiles(ctx, []string{path}))
	if err != nil {
		t.Fatalf("Eval.Run() error = %v", err)
	}

	out := buf.String()

	if !strings.Contains(out, `"v": [`) {
		t.Errorf("expected array in JSON output:\n%s", out)
	}
}

func TestFmtRun_NoEvaluation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeDeck(t, dir, "raw.deck",
		"x=1\nexpr=\"${x} + 1\"\n")

	var buf bytes.Buffer

	ctx := WithOutput(context.Background(), &buf)

	cmd := &Fmt{Output: "deck"}

	err := cmd.Run(WithSourceFiles(ctx, []string{path}))
	if err != nil {
		t.Fatalf("Fmt.Run() error = %v", err)
	}

	// Expressions pass through verbatim.
	if !strings.Contains(buf.String(), `expr="${x} + 1"`) {
		t.Errorf("fmt evaluated the expression:\n%s", buf.String())
	}
}

func TestSortRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeDeck(t, dir, "fwd.deck",
		"c=\"${b} + 1\"\nb=\"${a} + 1\"\na=1\n")

	var buf bytes.Buffer

	ctx := WithOutput(context.Background(), &buf)

	cmd := &Sort{Strict: true}

	err := cmd.Run(WithSourceFiles(ctx, []string{path}))
	if err != nil {
		t.Fatalf("Sort.Run() error = %v", err)
	}

	out := buf.String()

	ai := strings.Index(out, "a=")
	bi := strings.Index(out, "b=")
	ci := strings.Index(out, "c=")

	if ai == -1 || bi == -1 || ci == -1 || !(ai < bi && bi < ci) {
		t.Errorf("fields not reordered by dependency:\n%s", out)
	}
}
