package cmd

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/simdeck/simdeck/deck"
)

// contextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

type sourceFilesKey struct{}

// WithSourceFiles returns a new context.Context carrying the deck file paths
// named by the global --source flag.
func WithSourceFiles(ctx context.Context, sources []string) context.Context {
	return context.WithValue(ctx, sourceFilesKey{}, sources)
}

func sourceFilesFrom(ctx context.Context) []string {
	sources, _ := ctx.Value(sourceFilesKey{}).([]string)

	return sources
}

type outputKey struct{}

// WithOutput returns a new context.Context that redirects command output
// from stdout to the given writer.
func WithOutput(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, outputKey{}, w)
}

func outputFrom(ctx context.Context) io.Writer {
	w, ok := ctx.Value(outputKey{}).(io.Writer)
	if !ok || w == nil {
		return os.Stdout
	}

	return w
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// loadSources reads and merges the decks named by the global --source flag
// and the command's own source arguments, in that order. Later decks win on
// field name collision. Paths are deduplicated by absolute form; stdin is
// read at most once. With no sources at all, stdin is read.
func loadSources(ctx context.Context, extra []string) (*deck.Record, error) {
	sources := append(append([]string(nil), sourceFilesFrom(ctx)...), extra...)
	if len(sources) == 0 {
		sources = []string{stdinSource}
	}

	seen := make(map[string]struct{}, len(sources))

	var merged *deck.Record

	for _, src := range sources {
		key := src
		if src != stdinSource {
			if abs, err := filepath.Abs(src); err == nil {
				key = abs
			}
		}

		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}

		rec, err := readSource(src)
		if err != nil {
			return nil, err
		}

		if merged == nil {
			merged = rec
		} else {
			merged = merged.Concat(rec)
		}
	}

	return merged, nil
}

// readSource reads a single deck from the named file, or from stdin when the
// name is "-".
func readSource(path string) (*deck.Record, error) {
	var r io.Reader

	if path == stdinSource {
		r = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, ErrReadSource.
				With(slog.String("file", path)).
				Wrap(err)
		}
		defer file.Close()

		r = bufio.NewReader(file)
	}

	rec, err := deck.Read(r)
	if err != nil {
		return nil, ErrReadSource.
			With(slog.String("file", path)).
			Wrap(err)
	}

	rec.SetSource(path)

	return rec, nil
}

// writeRecord prints a record to w in the named output format.
func writeRecord(w io.Writer, rec *deck.Record, format string, indent int) error {
	var err error

	switch format {
	case "json":
		err = deck.WriteJSON(w, rec, indent)

	case "yaml":
		err = deck.WriteYAML(w, rec)

	default:
		err = deck.Write(w, rec)
	}

	if err != nil {
		return ErrWriteOutput.
			With(slog.String("format", format)).
			Wrap(err)
	}

	return nil
}
