package cmd

import (
	"context"
	"log/slog"

	"github.com/simdeck/simdeck/deck"
)

// Sort reorders deck fields so references precede their referents, and
// prints the reordered deck without evaluating it.
type Sort struct {
	Strict bool `help:"Fail when field ordering cannot be fully resolved"`

	Sources []string `arg:"" help:"Deck file(s) or '-' for stdin" name:"sources" optional:""`
}

// Run executes the sort command.
func (s *Sort) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) {
		cancel(*err)
	}(&err)

	rec, err := loadSources(ctx, s.Sources)
	if err != nil {
		return err
	}

	sorted, err := deck.Sort(rec, deck.WithStrict(s.Strict))
	if err != nil {
		return deck.WrapError(err).
			With(slog.String("command", "sort"))
	}

	return writeRecord(outputFrom(ctx), sorted, "deck", 0)
}
