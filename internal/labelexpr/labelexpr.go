// Package labelexpr holds the intermediate representation carried through
// every stage of the pipeline: parse once, mutate the struct, serialize
// once. Re-parsing between stages invites drift (spec.md §9) so nothing in
// this package round-trips through a string once an Expression exists.
package labelexpr

// Expression is one `name operator value` selector, or a passthrough
// token that must survive untouched.
//
// Invariant: OriginalText != "" implies no enforcement stage has touched
// this expression. Any method that changes Value, Operator or Quoted must
// clear OriginalText.
type Expression struct {
	Name         string
	Operator     string
	Value        string
	Quoted       bool
	OriginalText string
	// HasOriginal distinguishes an empty OriginalText (e.g. an
	// intentionally blank pair) from "never had one".
	HasOriginal bool
	// Passthrough marks an intrinsic attribute or standalone keyword:
	// the enforcer and normalizer must leave it alone.
	Passthrough bool
}

// Modified reports whether the expression has been changed since parsing
// and must be re-serialized from its fields rather than OriginalText.
func (e Expression) Modified() bool {
	return !e.HasOriginal
}

// WithValue returns a copy of e with a new value, clearing OriginalText
// per the package invariant.
func (e Expression) WithValue(value string) Expression {
	e.Value = value
	e.HasOriginal = false
	e.OriginalText = ""
	return e
}

// WithOperator returns a copy of e with a new operator, clearing
// OriginalText per the package invariant.
func (e Expression) WithOperator(operator string) Expression {
	e.Operator = operator
	e.HasOriginal = false
	e.OriginalText = ""
	return e
}

// Passthru builds a passthrough expression that preserves src verbatim.
func Passthru(src string) Expression {
	return Expression{OriginalText: src, HasOriginal: true, Passthrough: true}
}
