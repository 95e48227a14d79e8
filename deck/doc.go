// Package deck implements the parameter deck engine: an ordered record of
// named fields whose values are literals or textual expressions referencing
// other fields.
//
// A caller populates a [Record], optionally reorders it with [Sort] so
// forward references resolve before use, and calls [Evaluate] to obtain a
// fully realized snapshot. Expressions use a small embedded grammar:
//
//	${name}, ${name[i]}, ${name[i,j]}   interpolation
//	@{name}                             array-coercing interpolation
//	$literal text                       opaque literal (no arithmetic)
//	$[1 2 3; 4 5 6]                     Matlab-style array literal
//	!["a", "${x}"]                      forced recursive literal list
//	\${name}                            escaped marker (one pass)
//	# ...                               trailing comment
//	^                                   power-operator alias
//
// Arithmetic and array evaluation of interpolated text is delegated to
// expr-lang, constrained to numeric literals, the builtin function set in
// env.go, and array indexing. Evaluation failures degrade gracefully: the
// failing field receives a greppable [Marker] sentinel and sibling fields
// continue to evaluate.
package deck
