package deck

import "strings"

// Path is a string subtype guaranteeing POSIX-style separators, used
// wherever an evaluated field value is flagged as a filesystem path so
// interpolated output stays portable across platforms.
type Path string

// NewPath creates a Path, normalizing Windows separators.
func NewPath(s string) Path {
	return Path(strings.ReplaceAll(s, `\`, "/"))
}

// String implements fmt.Stringer.
func (p Path) String() string { return string(p) }

// Join concatenates a fragment onto p with exactly one separator between
// the two, preserving a trailing separator carried by the right operand.
func (p Path) Join(frag string) Path {
	right := strings.TrimLeft(string(NewPath(frag)), "/")
	if right == "" {
		return p
	}

	left := strings.TrimRight(string(p), "/")

	if left == "" {
		if strings.HasPrefix(string(p), "/") {
			// Absolute root: keep the leading separator.
			return Path("/" + right)
		}

		return Path(right)
	}

	return Path(left + "/" + right)
}
