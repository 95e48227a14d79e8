package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/simdeck/simdeck/deck"
	"github.com/simdeck/simdeck/log"
	"github.com/simdeck/simdeck/profile"
)

// Init generates a default configuration deck with current flag values.
type Init struct {
	Force bool `help:"Overwrite existing configuration file" short:"f"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	ktx := kongContextFrom(ctx)

	confPath, ok := ktx.Model.Vars()[ConfigIdentifier]
	if !ok {
		panic("internal error: config path undefined")
	}

	// Check if file exists and force not set
	_, err = os.Stat(confPath)
	if err == nil && !i.Force {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			With(slog.Bool("exists", true)).
			Wrap(ErrFileExists)
	}

	file, err := os.Create(confPath)
	if err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}
	defer file.Close()

	rec := i.buildRecord(ctx)

	err = deck.Write(file, rec)
	if err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}

	log.DebugContext(
		ctx,
		"initialized configuration file",
		slog.String("path", confPath),
	)

	return nil
}

// buildRecord constructs the config deck from current flag values.
func (i *Init) buildRecord(ctx context.Context) *deck.Record {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ktx := kongContextFrom(ctx)

	rec := deck.New()
	rec.SetLabel(ConfigIdentifier)

	prefixIgnore := []string{"help", profile.Tag, "force"}

	for _, flag := range ktx.Model.Flags {
		if flag.Hidden || slices.ContainsFunc(prefixIgnore, func(s string) bool {
			return strings.HasPrefix(flag.Name, s)
		}) {
			continue
		}

		val := i.flagValue(ctx, flag.Name)
		if val == nil {
			continue
		}

		// Deck field names use underscores where flag names use hyphens.
		name := strings.ReplaceAll(flag.Name, "-", "_")

		_ = rec.Set(name, val)
	}

	return rec
}

// flagValue returns the deck value for a CLI flag, or nil if unset.
func (i *Init) flagValue(ctx context.Context, name string) any {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ktx := kongContextFrom(ctx)

	idx := slices.IndexFunc(ktx.Model.Flags, func(flag *kong.Flag) bool {
		return flag.Name == name
	})
	if idx == -1 {
		return nil
	}

	val := ktx.FlagValue(ktx.Model.Flags[idx])
	if val == nil {
		return nil
	}

	switch v := val.(type) {
	case bool:
		return v

	case string:
		if v == "" {
			return nil
		}

		return v

	case int:
		return float64(v)

	case int64:
		return float64(v)

	case float64:
		return v

	case []string:
		if len(v) == 0 {
			return nil
		}

		elems := make([]any, len(v))
		for i, s := range v {
			elems[i] = s
		}

		return elems

	default:
		// Custom flag types (enums and the like) stringify.
		s := fmt.Sprint(v)
		if s == "" {
			return nil
		}

		return s
	}
}
