package deck

import (
	"log/slog"
	"strconv"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"

	"github.com/simdeck/simdeck/log"
)

// Option configures Evaluate and Sort.
type Option func(*settings)

type settings struct {
	sort   bool
	strict bool
}

func makeSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	return s
}

// WithSort runs the dependency resolver before evaluation so forward
// references resolve regardless of field order.
func WithSort(enable bool) Option {
	return func(s *settings) { s.sort = enable }
}

// WithStrict makes the dependency resolver fail on records it cannot fully
// order, instead of degrading to a partial order.
func WithStrict(enable bool) Option {
	return func(s *settings) { s.strict = enable }
}

// Evaluate walks the record's fields in order and produces an independent,
// fully realized snapshot. String values are interpolated against the
// snapshot built so far and then evaluated arithmetically; non-string
// values copy through unchanged. A field whose expression fails receives a
// [Marker] sentinel and evaluation of the remaining fields continues.
//
// Re-evaluating a snapshot is the identity operation: snapshot values are
// no longer expression strings.
func Evaluate(rec *Record, opts ...Option) (*Record, error) {
	cfg := makeSettings(opts)

	src := rec
	if cfg.sort {
		sorted, err := Sort(rec, opts...)
		if err != nil {
			return nil, err
		}

		src = sorted
	}

	snap := New()
	snap.label = src.label
	snap.source = src.source

	lookup := func(name string) (any, bool) {
		v, err := snap.Get(name)

		return v, err == nil
	}

	for name, value := range src.Items() {
		result := evaluateField(name, value, lookup)

		if m, ok := result.(Marker); ok {
			log.Debug("field evaluation failed",
				slog.String("name", name),
				slog.String("cause", m.Cause),
			)
		}

		_ = snap.Set(name, result)
	}

	return snap, nil
}

// Format interpolates ${...} and @{...} markers in an arbitrary template
// string against a record. A missing reference keeps its original marker
// text so the surrounding template stays inspectable; Format never fails.
func Format(template string, rec *Record) string {
	out, _, _ := interpolate(template, func(name string) (any, bool) {
		v, err := rec.Get(name)

		return v, err == nil
	})

	return out
}

// evaluateField runs the per-field pipeline of the evaluator.
func evaluateField(name string, value any, lookup lookupFunc) any {
	s, ok := value.(string)
	if !ok {
		return copyValue(value)
	}

	text := StripComment(s)

	switch Classify(text) {
	case ClassRecursive:
		return evalRecursiveLiteral(text[1:], lookup)

	case ClassArrayLiteral:
		return evalArrayLiteral(text[1:], lookup)

	case ClassLiteral:
		out, missing, errored := interpolate(text[1:], lookup)
		if m, failed := referenceMarker(missing, errored); failed {
			return m
		}

		return out

	default:
		out, missing, errored := interpolate(text, lookup)
		if m, failed := referenceMarker(missing, errored); failed {
			return m
		}

		return evalArithmetic(out)
	}
}

// referenceMarker folds interpolation failures into a field sentinel.
func referenceMarker(missing, errored []string) (Marker, bool) {
	if len(missing) > 0 {
		return unresolvedMarker(missing[0]), true
	}

	if len(errored) > 0 {
		return Marker{
			Cause: "reference to errored field " + strconv.Quote(errored[0]),
		}, true
	}

	return Marker{}, false
}

// evalArrayLiteral interpolates and parses a "$["-prefixed literal.
func evalArrayLiteral(body string, lookup lookupFunc) any {
	out, missing, errored := interpolate(body, lookup)
	if m, failed := referenceMarker(missing, errored); failed {
		return m
	}

	arr, err := parseArrayLiteral(out)
	if err != nil {
		return Marker{Cause: err.Error()}
	}

	return arr
}

// evalRecursiveLiteral evaluates a "!"-prefixed forced literal list: the
// body is parsed as a literal sequence, then every string element is
// individually re-run through interpolation before being frozen.
// Non-string elements pass through unchanged.
func evalRecursiveLiteral(body string, lookup lookupFunc) any {
	program, err := compileExpr(body)
	if err != nil {
		return Marker{Cause: ErrExprCompile.Wrap(err).Error()}
	}

	result, err := vm.Run(program, makeEnvCache())
	if err != nil {
		return Marker{Cause: ErrExprEvaluate.Wrap(err).Error()}
	}

	frozen, missing := freezeLiteral(result, lookup)
	if len(missing) > 0 {
		return unresolvedMarker(missing[0])
	}

	return frozen
}

// freezeLiteral interpolates string elements of a literal value tree.
func freezeLiteral(v any, lookup lookupFunc) (any, []string) {
	switch t := v.(type) {
	case string:
		out, missing, _ := interpolate(t, lookup)

		return out, missing

	case []any:
		var allMissing []string

		frozen := make([]any, len(t))
		for i, elem := range t {
			out, missing := freezeLiteral(elem, lookup)
			frozen[i] = out
			allMissing = append(allMissing, missing...)
		}

		// Keep the frozen list a list even when all elements are numeric.
		return frozen, allMissing

	default:
		return normalizeValue(t), nil
	}
}

// evalArithmetic attempts constrained arithmetic/array evaluation of
// interpolated text. A compile failure means the text was not an
// expression: the interpolated text is retained verbatim (partial
// evaluation). A runtime failure is a typed evaluation error and yields a
// Marker.
func evalArithmetic(text string) any {
	src := rewritePower(text)

	program, err := compileExpr(src)
	if err != nil {
		return text
	}

	result, err := vm.Run(program, makeEnvCache())
	if err != nil {
		return Marker{Cause: ErrExprEvaluate.Wrap(err).Error()}
	}

	return normalizeValue(result)
}

// compileExpr compiles source against the builtin environment. Identifiers
// outside the environment fail compilation: field references must use
// interpolation markers, which are substituted before this point.
func compileExpr(source string) (*vm.Program, error) {
	return expr.Compile(source,
		expr.Env(makeEnvCache()),
		expr.Patch(&opPatcher{}),
	)
}

// binaryCalls maps arithmetic operators to broadcasting builtins.
//
//nolint:gochecknoglobals
var binaryCalls = map[string]string{
	"+":  "__add",
	"-":  "__sub",
	"*":  "__mul",
	"/":  "__div",
	"**": "__pow",
}

// opPatcher rewrites arithmetic operator nodes into calls of the
// broadcasting builtins so scalar/sequence operations apply element-wise.
// Matrix product stays an explicit matmul call, never implied by plain
// multiplication.
type opPatcher struct{}

// Visit implements ast.Visitor for opPatcher.
func (p *opPatcher) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.BinaryNode:
		callee, ok := binaryCalls[n.Operator]
		if !ok {
			return
		}

		ast.Patch(node, &ast.CallNode{
			Callee:    &ast.IdentifierNode{Value: callee},
			Arguments: []ast.Node{n.Left, n.Right},
		})

	case *ast.UnaryNode:
		if n.Operator != "-" {
			return
		}

		ast.Patch(node, &ast.CallNode{
			Callee:    &ast.IdentifierNode{Value: "__neg"},
			Arguments: []ast.Node{n.Node},
		})
	}
}

// copyValue deep-copies container values so a snapshot has no lifetime
// link to its source record.
func copyValue(v any) any {
	switch t := v.(type) {
	case *Record:
		out := New()
		out.label = t.label

		for name, value := range t.Items() {
			_ = out.Set(name, copyValue(value))
		}

		return out

	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = copyValue(elem)
		}

		return out

	default:
		return v
	}
}
