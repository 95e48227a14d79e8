package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	path := writeDeck(t, dir, "case.deck",
		"nx=10\nny=20\ncells=\"${nx} * ${ny}\"\n")

	template := filepath.Join(dir, "solver.in")
	text := "GRID ${nx} ${ny}\nCELLS ${cells}\nUNSET ${missing}\n"

	if err := os.WriteFile(template, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer

	ctx := WithOutput(context.Background(), &buf)

	cmd := &Render{Template: template}

	err := cmd.Run(WithSourceFiles(ctx, []string{path}))
	if err != nil {
		t.Fatalf("Render.Run() error = %v", err)
	}

	out := buf.String()

	if !strings.Contains(out, "GRID 10 20") {
		t.Errorf("grid line not substituted:\n%s", out)
	}

	if !strings.Contains(out, "CELLS 200") {
		t.Errorf("evaluated field not substituted:\n%s", out)
	}

	// Missing references keep their marker text.
	if !strings.Contains(out, "UNSET ${missing}") {
		t.Errorf("missing reference was not preserved:\n%s", out)
	}
}

func TestRenderRun_OutputFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	path := writeDeck(t, dir, "case.deck", "a=1\n")

	template := filepath.Join(dir, "in.tmpl")
	if err := os.WriteFile(template, []byte("A=${a}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(dir, "rendered.txt")

	cmd := &Render{Template: template, Output: outPath}

	ctx := WithSourceFiles(context.Background(), []string{path})

	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("Render.Run() error = %v", err)
	}

	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}

	if string(content) != "A=1\n" {
		t.Errorf("unexpected rendered file content %q", content)
	}
}

func TestRenderRun_MissingTemplate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeDeck(t, dir, "case.deck", "a=1\n")

	cmd := &Render{Template: filepath.Join(dir, "absent.tmpl")}

	ctx := WithSourceFiles(context.Background(), []string{path})

	if err := cmd.Run(ctx); err == nil {
		t.Fatal("expected error for missing template file")
	}
}
