package deck

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Deck text format: a leading comment documents the field count, then one
// name=value line per field in insertion order. Numbers are written bare,
// strings quoted, arrays bracketed, nested records inline-braced. An empty
// or None right-hand side denotes absence. Expression-valued fields
// round-trip as their original text, not their evaluated value.

// Write serializes a record in deck text format.
func Write(w io.Writer, rec *Record) error {
	var buf bytes.Buffer

	if rec.label != "" {
		fmt.Fprintf(&buf, "# %s: %d fields\n", rec.label, rec.Len())
	} else {
		fmt.Fprintf(&buf, "# %d fields\n", rec.Len())
	}

	for name, value := range rec.Items() {
		buf.WriteString(name)
		buf.WriteByte('=')
		buf.WriteString(formatScalarOrQuoted(value))
		buf.WriteByte('\n')
	}

	_, err := w.Write(buf.Bytes())

	return err
}

// Read parses a record from deck text format, reconstructing field names,
// values, and order.
func Read(r io.Reader) (*Record, error) {
	rec := New()

	scanner := bufio.NewScanner(r)

	lineno := 0
	for scanner.Scan() {
		lineno++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			if label, ok := parseLabelComment(line); ok && rec.label == "" {
				rec.label = label
			}

			continue
		}

		name, text, ok := strings.Cut(line, "=")
		if !ok {
			return nil, ErrReadDeck.
				With(
					slog.Int("line", lineno),
					slog.String("text", line),
				)
		}

		name = strings.TrimSpace(name)
		text = strings.TrimSpace(text)

		// Empty or None right-hand side denotes absence.
		if text == "" || text == "None" {
			if rec.Has(name) {
				_ = rec.Delete(name)
			}

			continue
		}

		value, err := parseValueText(text)
		if err != nil {
			return nil, ErrReadDeck.Wrap(err).
				With(
					slog.Int("line", lineno),
					slog.String("name", name),
				)
		}

		if err := rec.Set(name, value); err != nil {
			return nil, ErrReadDeck.Wrap(err).
				With(slog.Int("line", lineno))
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, ErrReadDeck.Wrap(err)
	}

	return rec, nil
}

// SetSource records where the record was read from, for diagnostics.
func (r *Record) SetSource(source string) { r.source = source }

// parseLabelComment extracts an optional label from the leading field
// count comment, e.g. "# waveguide: 12 fields".
func parseLabelComment(line string) (string, bool) {
	body := strings.TrimSpace(strings.TrimPrefix(line, "#"))

	label, rest, ok := strings.Cut(body, ":")
	if !ok || !strings.HasSuffix(strings.TrimSpace(rest), "fields") {
		return "", false
	}

	return strings.TrimSpace(label), true
}

// formatScalarOrQuoted renders one field value as deck text.
func formatScalarOrQuoted(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"

	case float64:
		return formatFloat(t)

	case bool:
		return strconv.FormatBool(t)

	case string:
		return strconv.Quote(t)

	case Path:
		return strconv.Quote(string(t))

	case *Array:
		return t.String()

	case []any:
		parts := make([]string, len(t))
		for i, elem := range t {
			parts[i] = formatScalarOrQuoted(elem)
		}

		return "[" + strings.Join(parts, ", ") + "]"

	case *Record:
		return t.String()

	case Marker:
		return strconv.Quote(t.String())

	default:
		return strconv.Quote(fmt.Sprintf("%v", t))
	}
}

// parseValueText parses one deck text value.
func parseValueText(text string) (any, error) {
	switch {
	case strings.HasPrefix(text, `"`):
		return strconv.Unquote(text)

	case text == "true" || text == "false":
		return text == "true", nil

	case strings.HasPrefix(text, "["):
		return parseListText(text)

	case strings.HasPrefix(text, "{"):
		return parseRecordText(text)

	default:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, ErrReadDeck.
				With(slog.String("value", text))
		}

		return f, nil
	}
}

// parseListText parses a bracketed value: a numeric array when every
// element is numeric, otherwise a literal list.
func parseListText(text string) (any, error) {
	if arr, err := parseArrayLiteral(text); err == nil {
		return arr, nil
	}

	if !strings.HasSuffix(text, "]") {
		return nil, ErrReadDeck.
			With(slog.String("value", text))
	}

	inner := strings.TrimSpace(text[1 : len(text)-1])
	if inner == "" {
		return []any{}, nil
	}

	parts, err := splitTop(inner)
	if err != nil {
		return nil, err
	}

	out := make([]any, len(parts))

	for i, part := range parts {
		elem, err := parseValueText(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}

		out[i] = elem
	}

	return out, nil
}

// parseRecordText parses an inline-braced nested record like
// "{x=1, y="s"}".
func parseRecordText(text string) (*Record, error) {
	if !strings.HasSuffix(text, "}") {
		return nil, ErrReadDeck.
			With(slog.String("value", text))
	}

	inner := strings.TrimSpace(text[1 : len(text)-1])

	rec := New()
	if inner == "" {
		return rec, nil
	}

	parts, err := splitTop(inner)
	if err != nil {
		return nil, err
	}

	for _, part := range parts {
		name, valText, ok := strings.Cut(part, "=")
		if !ok {
			return nil, ErrReadDeck.
				With(slog.String("value", part))
		}

		value, err := parseValueText(strings.TrimSpace(valText))
		if err != nil {
			return nil, err
		}

		if err := rec.Set(strings.TrimSpace(name), value); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

// splitTop splits on commas at nesting depth zero, respecting brackets,
// braces, and quoted strings.
func splitTop(s string) ([]string, error) {
	var (
		parts []string
		depth int
		start int
		quote bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case quote:
			if c == '\\' {
				i++
			} else if c == '"' {
				quote = false
			}

		case c == '"':
			quote = true

		case c == '[' || c == '{':
			depth++

		case c == ']' || c == '}':
			depth--
			if depth < 0 {
				return nil, ErrReadDeck.
					With(slog.String("value", s))
			}

		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}

	if depth != 0 || quote {
		return nil, ErrReadDeck.
			With(slog.String("value", s))
	}

	return append(parts, s[start:]), nil
}

// Nested converts an array to nested []any form for JSON and YAML export.
func (a *Array) Nested() any {
	return nestedLevel(a.shape, a.data)
}

func nestedLevel(shape []int, data []float64) any {
	if len(shape) == 1 {
		out := make([]any, len(data))
		for i, v := range data {
			out[i] = v
		}

		return out
	}

	stride := len(data)
	if shape[0] > 0 {
		stride = len(data) / shape[0]
	}

	out := make([]any, shape[0])
	for i := range shape[0] {
		out[i] = nestedLevel(shape[1:], data[i*stride:(i+1)*stride])
	}

	return out
}

// MarshalJSON implements json.Marshaler for Record, preserving field
// order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	first := true
	for name, value := range r.Items() {
		if !first {
			buf.WriteByte(',')
		}

		first = false

		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')

		val, err := json.Marshal(exportValue(value))
		if err != nil {
			return nil, err
		}

		buf.Write(val)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// exportValue maps field values onto plain Go values for JSON and YAML
// encoders.
func exportValue(v any) any {
	switch t := v.(type) {
	case *Array:
		return t.Nested()

	case Path:
		return string(t)

	case Marker:
		return t.String()

	case *Record:
		return t // MarshalJSON handles nesting

	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = exportValue(elem)
		}

		return out

	default:
		return v
	}
}

// yamlValue maps field values for the YAML encoder, which has no
// json.Marshaler hook for nested records.
func yamlValue(v any) any {
	if rec, ok := v.(*Record); ok {
		return rec.yamlSlice()
	}

	if list, ok := v.([]any); ok {
		out := make([]any, len(list))
		for i, elem := range list {
			out[i] = yamlValue(elem)
		}

		return out
	}

	return exportValue(v)
}

// yamlSlice builds an order-preserving YAML mapping.
func (r *Record) yamlSlice() yaml.MapSlice {
	out := make(yaml.MapSlice, 0, r.Len())

	for name, value := range r.Items() {
		out = append(out, yaml.MapItem{Key: name, Value: yamlValue(value)})
	}

	return out
}

// WriteYAML serializes a record as YAML, preserving field order.
func WriteYAML(w io.Writer, rec *Record) error {
	data, err := yaml.Marshal(rec.yamlSlice())
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}

// WriteJSON serializes a record as JSON, preserving field order.
func WriteJSON(w io.Writer, rec *Record, indent int) error {
	var (
		data []byte
		err  error
	)

	if indent > 0 {
		data, err = json.MarshalIndent(rec, "", strings.Repeat(" ", indent))
	} else {
		data, err = json.Marshal(rec)
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}
