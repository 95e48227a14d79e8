package deck

import (
	"log/slog"

	"github.com/simdeck/simdeck/log"
)

// Sort returns a new record whose fields are reordered so that every
// dynamic field's textually-referenced names are defined before it.
//
// Static fields (values without references) seed the result in their
// original order. The remaining dynamic fields are repeatedly scanned and
// the first (leftmost) field whose references all exist in the working set
// is appended, until no field is ready. A record that cannot be fully
// ordered fails in strict mode; in lenient mode the first offending field
// is force-accepted with a logged warning (it will evaluate to a Marker
// later), so Sort always terminates and always consumes every field.
//
// Complexity is O(n²) in the dynamic-field count, which is small in
// practice.
func Sort(rec *Record, opts ...Option) (*Record, error) {
	cfg := makeSettings(opts)

	type dynamic struct {
		name  string
		value any
		refs  []string
	}

	out := New()
	out.label = rec.label
	out.source = rec.source

	var pending []dynamic

	for name, value := range rec.Items() {
		if s, ok := value.(string); ok {
			refs := References(StripComment(s))
			if len(refs) > 0 {
				pending = append(pending, dynamic{name: name, value: value, refs: refs})

				continue
			}
		}

		_ = out.Set(name, value)
	}

	total := len(pending)

	ready := func(d dynamic) bool {
		for _, ref := range d.refs {
			if !out.Has(ref) {
				return false
			}
		}

		return true
	}

	for len(pending) > 0 {
		progress := false

		for i, d := range pending {
			if !ready(d) {
				continue
			}

			_ = out.Set(d.name, d.value)

			pending = append(pending[:i], pending[i+1:]...)
			progress = true

			break
		}

		if progress {
			continue
		}

		if cfg.strict {
			return nil, ErrOrderingFailure.
				With(
					slog.Int("unordered", len(pending)),
					slog.Int("expressions", total),
				)
		}

		// Lenient: force-accept the first offending field and keep going.
		forced := pending[0]
		pending = pending[1:]

		_ = out.Set(forced.name, forced.value)

		log.Warn("could not order expression, accepting out of order",
			slog.String("name", forced.name),
			slog.Any("references", forced.refs),
		)
	}

	return out, nil
}
