package cmd

import (
	"context"
	"log/slog"

	"github.com/simdeck/simdeck/deck"
	"github.com/simdeck/simdeck/log"
)

// Eval evaluates one or more decks and prints the resulting snapshot.
type Eval struct {
	Sort   bool   `help:"Reorder fields by dependency before evaluating"               negatable:""`
	Strict bool   `help:"Fail when field ordering cannot be fully resolved"`
	Output string `help:"Output format"                                    short:"o" default:"deck" enum:"deck,json,yaml"`
	Indent int    `help:"Indent width for JSON output"                     short:"i" default:"2"`

	Sources []string `arg:"" help:"Deck file(s) or '-' for stdin" name:"sources" optional:""`
}

// Run executes the eval command.
func (e *Eval) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) {
		cancel(*err)
	}(&err)

	rec, err := loadSources(ctx, e.Sources)
	if err != nil {
		return err
	}

	snap, err := deck.Evaluate(rec,
		deck.WithSort(e.Sort),
		deck.WithStrict(e.Strict),
	)
	if err != nil {
		return deck.WrapError(err).
			With(slog.String("command", "eval"))
	}

	log.DebugContext(ctx, "deck evaluated",
		slog.String("source", rec.Source()),
		slog.Int("fields", snap.Len()),
	)

	return writeRecord(outputFrom(ctx), snap, e.Output, e.Indent)
}
