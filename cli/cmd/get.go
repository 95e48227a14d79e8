package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sahilm/fuzzy"

	"github.com/simdeck/simdeck/deck"
	"github.com/simdeck/simdeck/log"
)

// Get evaluates decks and prints a single field from the snapshot. The name
// is matched fuzzily against field names unless --exact is given.
type Get struct {
	Name  string `arg:"" help:"Field name to print" name:"name"`
	Exact bool   `       help:"Disable fuzzy name matching"`

	Sources []string `arg:"" help:"Deck file(s) or '-' for stdin" name:"sources" optional:""`
}

// Run executes the get command.
func (g *Get) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) {
		cancel(*err)
	}(&err)

	rec, err := loadSources(ctx, g.Sources)
	if err != nil {
		return err
	}

	// Forward references are common in hand-written decks, so get always
	// resolves ordering before evaluating.
	snap, err := deck.Evaluate(rec, deck.WithSort(true))
	if err != nil {
		return deck.WrapError(err).
			With(slog.String("command", "get"))
	}

	name := g.Name

	if !snap.Has(name) {
		if g.Exact {
			return ErrNoField.With(slog.String("name", name))
		}

		match, ok := closestName(name, snap.Keys())
		if !ok {
			return ErrNoField.With(slog.String("name", name))
		}

		log.DebugContext(ctx, "fuzzy matched field name",
			slog.String("query", name),
			slog.String("match", match),
		)

		name = match
	}

	value, err := snap.Get(name)
	if err != nil {
		return deck.WrapError(err).
			With(slog.String("name", name))
	}

	_, err = fmt.Fprintln(outputFrom(ctx), deck.FormatValue(value))
	if err != nil {
		return ErrWriteOutput.Wrap(err)
	}

	return nil
}

// closestName returns the best fuzzy match for query among names. The
// query passes through unchanged: fuzzy.Find already favors case-matched
// runs, and lowercasing only one side would miss mixed-case names.
func closestName(query string, names []string) (string, bool) {
	matches := fuzzy.Find(query, names)
	if len(matches) == 0 {
		return "", false
	}

	return matches[0].Str, true
}
