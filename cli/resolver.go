package cli

import (
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/simdeck/simdeck/deck"
)

// resolve is a [kong.ConfigurationLoader] that parses config files written
// in the deck text format.
//
// It can be used with [kong.Configuration] like this:
//
//	kong.Configuration(resolve(), "/path/to/config.deck")
//
// Flag names with hyphens (e.g., "log-level") use underscores in the config
// file (e.g., "log_level"). Strings are quoted, booleans and numbers are
// not. Field values are passed to Kong verbatim, without expression
// evaluation, so a config deck is plain name=value pairs.
//
// Example config deck:
//
//	log_level="debug"
//	log_format="json"
//	log_color=true
//
// This configuration will be applied to Kong flags:
//
//	--log-level=debug
//	--log-format=json
//	--log-color=true
//
// Command-line flags override config file values.
func resolve() func(r io.Reader) (kong.Resolver, error) {
	return func(r io.Reader) (kong.Resolver, error) {
		rec, err := deck.Read(r)
		if err != nil {
			// Unreadable config decks are ignored rather than fatal.
			return config{}, nil
		}

		return config(recordToMap(rec)), nil
	}
}

// config implements [kong.Resolver] for deck-format configs.
type config map[string]any

// Validate implements [kong.Resolver].
func (r config) Validate(*kong.Application) error {
	// The config was already parsed successfully.
	return nil
}

// Resolve implements [kong.Resolver].
func (r config) Resolve(
	_ *kong.Context,
	_ *kong.Path,
	flag *kong.Flag,
) (any, error) {
	// Kong flags use hyphens (e.g., "log-level") but deck identifiers
	// may use underscores. Try both forms.
	if value, ok := r[flag.Name]; ok {
		return value, nil
	}

	underscoreName := strings.ReplaceAll(flag.Name, "-", "_")
	if value, ok := r[underscoreName]; ok {
		return value, nil
	}

	// Not found, let Kong use defaults.
	return nil, nil //nolint:nilnil
}

// recordToMap converts a record to a flat map of flag values.
func recordToMap(rec *deck.Record) map[string]any {
	result := make(map[string]any, rec.Len())

	for name, value := range rec.Items() {
		switch v := value.(type) {
		case float64:
			// Kong requires numbers as strings for parsing.
			result[name] = strconv.FormatFloat(v, 'f', -1, 64)

		case bool, string:
			result[name] = v

		case []any:
			elems := make([]string, len(v))
			for i, e := range v {
				elems[i] = deck.FormatValue(e)
			}

			result[name] = elems

		default:
			result[name] = deck.FormatValue(value)
		}
	}

	return result
}
