package cmd

import (
	"context"
)

// Fmt reads decks, normalizes them, and reprints without evaluating.
// Expression strings pass through verbatim.
type Fmt struct {
	Output string `help:"Output format"                short:"o" default:"deck" enum:"deck,json,yaml"`
	Indent int    `help:"Indent width for JSON output" short:"i" default:"2"`

	Sources []string `arg:"" help:"Deck file(s) or '-' for stdin" name:"sources" optional:""`
}

// Run executes the fmt command.
func (f *Fmt) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) {
		cancel(*err)
	}(&err)

	rec, err := loadSources(ctx, f.Sources)
	if err != nil {
		return err
	}

	return writeRecord(outputFrom(ctx), rec, f.Output, f.Indent)
}
