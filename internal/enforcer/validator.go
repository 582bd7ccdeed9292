package enforcer

import (
	"github.com/obs-gateway/lbac-proxy/internal/errs"
	"github.com/obs-gateway/lbac-proxy/internal/labelexpr"
	"github.com/obs-gateway/lbac-proxy/internal/store"
)

// Validate re-applies the accept test of Enforce to every expression that
// has already passed through enforcement once, with no rewriting
// (spec.md §4.5). It is a defensive second pass: by the time it runs,
// Enforce should already have rejected anything it would reject here, so
// a Validate failure indicates a bug in Enforce rather than a new
// authorization decision. Keeping both passes is the safer shape per
// spec.md §9's open question.
func Validate(exprs []labelexpr.Expression, allowed store.ConstraintSet) error {
	for _, e := range exprs {
		if e.Passthrough {
			continue
		}
		values, hasEntry := allowed.Allowed(e.Name)
		if !hasEntry || len(values) == 0 {
			continue
		}
		if containsWildcard(values) {
			continue
		}
		if !accepts(e, values) {
			return &errs.UnauthorizedLabelValue{Label: e.Name, Value: e.Value}
		}
	}
	return nil
}

// accepts reports whether expression e's value set, under its operator,
// is already fully contained in values — without producing a rewrite.
func accepts(e labelexpr.Expression, values []string) bool {
	switch e.Operator {
	case "=":
		if containsLiteral(values, e.Value) {
			return true
		}
		for _, a := range values {
			if isFullRegex(a) && matchesRegex(a, e.Value) {
				return true
			}
		}
		return false
	case "!=":
		return e.Value == "" || !containsLiteral(values, e.Value)
	case "=~":
		for _, a := range values {
			if matchesRegex(e.Value, a) {
				return true
			}
		}
		return false
	case "!~":
		for _, a := range values {
			if matchesRegex(e.Value, a) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
