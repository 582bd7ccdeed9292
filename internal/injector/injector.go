// Package injector implements the Missing-Constraint Injector (spec.md
// §4.5): it appends an expression for every required constraint not
// already present in the parsed list.
package injector

import (
	"sort"
	"strings"

	"github.com/obs-gateway/lbac-proxy/internal/labelexpr"
	"github.com/obs-gateway/lbac-proxy/internal/store"
)

// Inject appends one expression per label in allowed.RequiredLabels()
// that exprs doesn't already mention. Order is the ConstraintSet's stable
// (sorted) iteration order — callers must not depend on any particular
// order beyond that, per spec.md §4.5.
func Inject(exprs []labelexpr.Expression, allowed store.ConstraintSet) []labelexpr.Expression {
	present := make(map[string]struct{}, len(exprs))
	for _, e := range exprs {
		present[e.Name] = struct{}{}
	}

	for _, name := range allowed.RequiredLabels() {
		if _, ok := present[name]; ok {
			continue
		}
		values, _ := allowed.Allowed(name)
		exprs = append(exprs, expansion(name, values))
	}

	return exprs
}

// expansion builds the canonical serialization of a value set for a
// label that has no existing expression to tighten, mirroring the
// enforcer's own expansion rule: a single member is an exact match, two
// or more a regex alternation.
func expansion(name string, values []string) labelexpr.Expression {
	uniq := dedupe(values)
	sort.Strings(uniq)

	if len(uniq) == 1 {
		return labelexpr.Expression{Name: name, Operator: "=", Value: uniq[0]}
	}

	parts := make([]string, len(uniq))
	for i, v := range uniq {
		if v == "*" {
			parts[i] = ".*"
		} else {
			parts[i] = v
		}
	}
	return labelexpr.Expression{Name: name, Operator: "=~", Value: strings.Join(parts, "|")}
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
