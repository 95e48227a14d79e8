package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/simdeck/simdeck/deck"
	"github.com/simdeck/simdeck/log"
)

// Render evaluates decks and substitutes the snapshot into a template file,
// producing a concrete solver input script. Markers referencing missing
// fields are left in place so the gap is visible in the output.
type Render struct {
	Template string `help:"Template file to render"                           short:"t" required:"" type:"existingfile"`
	Output   string `help:"Write rendered text to a file instead of stdout"   short:"O" type:"path"`
	Sort     bool   `help:"Reorder fields by dependency before evaluating"              negatable:""`
	Strict   bool   `help:"Fail when field ordering cannot be fully resolved"`

	Sources []string `arg:"" help:"Deck file(s) or '-' for stdin" name:"sources" optional:""`
}

// Run executes the render command.
func (r *Render) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) {
		cancel(*err)
	}(&err)

	rec, err := loadSources(ctx, r.Sources)
	if err != nil {
		return err
	}

	snap, err := deck.Evaluate(rec,
		deck.WithSort(r.Sort),
		deck.WithStrict(r.Strict),
	)
	if err != nil {
		return deck.WrapError(err).
			With(slog.String("command", "render"))
	}

	text, err := os.ReadFile(r.Template)
	if err != nil {
		return ErrReadTemplate.
			With(slog.String("file", r.Template)).
			Wrap(err)
	}

	out := outputFrom(ctx)

	if r.Output != "" {
		file, err := os.Create(r.Output)
		if err != nil {
			return ErrWriteOutput.
				With(slog.String("file", r.Output)).
				Wrap(err)
		}
		defer file.Close()

		out = file
	}

	rendered := deck.Format(string(text), snap)

	_, err = io.WriteString(out, rendered)
	if err != nil {
		return ErrWriteOutput.
			With(slog.String("template", r.Template)).
			Wrap(err)
	}

	log.DebugContext(ctx, "template rendered",
		slog.String("template", r.Template),
		slog.Int("fields", snap.Len()),
		slog.Int("bytes", len(rendered)),
	)

	return nil
}
