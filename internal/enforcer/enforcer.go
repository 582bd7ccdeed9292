// Package enforcer implements the Operator Enforcer (spec.md §4.4): for
// each of "=", "!=", "=~", "!~" it applies the constraint map for one
// label and returns either the accepted/tightened expression or a
// rejection.
package enforcer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/obs-gateway/lbac-proxy/internal/errs"
	"github.com/obs-gateway/lbac-proxy/internal/labelexpr"
	"github.com/obs-gateway/lbac-proxy/internal/store"
)

// Outcome tags the enforcer's disposition for observability (the DOMAIN
// STACK's per-operator counters key off this).
type Outcome int

const (
	Accepted Outcome = iota
	Rewritten
	Dropped
)

// Options tunes enforcement behavior. ErrorOnReplace mirrors the
// teacher's -error-on-replace flag: when set, any expression that would
// otherwise be rewritten (tightened or expanded, for any operator) is
// rejected instead.
type Options struct {
	ErrorOnReplace bool

	// Observe, if set, is called once per expression with its operator and
	// final outcome, letting a caller wire enforcement results into its
	// own instrumentation (internal/metrics) without this package
	// importing client_golang itself.
	Observe func(operator string, outcome Outcome)
}

// Enforce applies the per-operator contract of spec.md §4.4 to one
// non-passthrough expression. Passthrough expressions must not reach
// this function; callers filter them out first.
//
// It returns (expression, outcome, nil) on accept/rewrite, (zero value,
// Dropped, nil) when the expression should be dropped entirely (the !~
// "A empty" case), or (zero value, Dropped, err) on rejection.
func Enforce(e labelexpr.Expression, allowed store.ConstraintSet, opts Options) (labelexpr.Expression, Outcome, error) {
	values, hasEntry := allowed.Allowed(e.Name)

	var (
		out     labelexpr.Expression
		outcome Outcome
		err     error
	)

	switch e.Operator {
	case "=":
		out, outcome, err = enforceEqual(e, values, hasEntry)
	case "!=":
		out, outcome, err = enforceNotEqual(e, values, hasEntry)
	case "=~":
		out, outcome, err = enforceRegexMatch(e, values, hasEntry)
	case "!~":
		out, outcome, err = enforceRegexNotMatch(e, values, hasEntry)
	default:
		// Unknown operator for this dialect: treat conservatively as an
		// exact match so it still gets checked against the allow-list.
		out, outcome, err = enforceEqual(e, values, hasEntry)
	}

	if err != nil {
		if opts.Observe != nil {
			opts.Observe(e.Operator, Dropped)
		}
		return out, outcome, err
	}

	// ErrorOnReplace (spec.md's supplemented strict mode, modeled on the
	// teacher's -error-on-replace flag): a tenant that wants hard failures
	// instead of silent narrowing gets one here, rather than a value that
	// quietly became a subset of what they asked for.
	if opts.ErrorOnReplace && outcome == Rewritten {
		if opts.Observe != nil {
			opts.Observe(e.Operator, Dropped)
		}
		return labelexpr.Expression{}, Dropped, &errs.UnauthorizedLabelValue{Label: e.Name, Value: e.Value}
	}

	if opts.Observe != nil {
		opts.Observe(e.Operator, outcome)
	}
	return out, outcome, nil
}

func enforceEqual(e labelexpr.Expression, allowed []string, hasEntry bool) (labelexpr.Expression, Outcome, error) {
	if !hasEntry || len(allowed) == 0 {
		return e, Accepted, nil
	}

	if containsWildcard(allowed) {
		return e, Accepted, nil
	}

	if e.Value == "*" {
		return expand(e, allowed), Rewritten, nil
	}

	if containsLiteral(allowed, e.Value) {
		return e, Accepted, nil
	}

	for _, a := range allowed {
		if isFullRegex(a) && matchesRegex(a, e.Value) {
			return e, Accepted, nil
		}
	}

	return labelexpr.Expression{}, Dropped, &errs.UnauthorizedLabelValue{Label: e.Name, Value: e.Value}
}

func enforceNotEqual(e labelexpr.Expression, allowed []string, hasEntry bool) (labelexpr.Expression, Outcome, error) {
	if e.Value == "" {
		// The idiomatic "label present" predicate: stripping it would
		// widen the result set, so it must survive unchanged.
		return e, Accepted, nil
	}

	if e.Value == "*" {
		if !hasEntry || len(allowed) == 0 {
			return e, Accepted, nil
		}
		return expand(e, allowed), Rewritten, nil
	}

	if !hasEntry || len(allowed) == 0 {
		return e, Accepted, nil
	}

	remaining := remove(allowed, e.Value)
	if len(remaining) == 0 {
		return labelexpr.Expression{}, Dropped, &errs.UnauthorizedLabelValue{Label: e.Name, Value: e.Value}
	}
	return expand(e, remaining), Rewritten, nil
}

func enforceRegexMatch(e labelexpr.Expression, allowed []string, hasEntry bool) (labelexpr.Expression, Outcome, error) {
	if e.Value == "*" {
		if !hasEntry || len(allowed) == 0 {
			return e, Accepted, nil
		}
		return expand(e, allowed), Rewritten, nil
	}

	if !hasEntry || len(allowed) == 0 {
		return e.WithOperator("=~"), Accepted, nil
	}

	var matched []string
	for _, a := range allowed {
		if matchesRegex(e.Value, a) {
			matched = append(matched, a)
		}
	}
	if len(matched) == 0 {
		return labelexpr.Expression{}, Dropped, &errs.UnauthorizedLabelValue{Label: e.Name, Value: e.Value}
	}
	return expand(e, matched), Rewritten, nil
}

func enforceRegexNotMatch(e labelexpr.Expression, allowed []string, hasEntry bool) (labelexpr.Expression, Outcome, error) {
	if !hasEntry {
		return e, Accepted, nil
	}
	if len(allowed) == 0 {
		return labelexpr.Expression{}, Dropped, nil
	}

	var remaining []string
	for _, a := range allowed {
		if !matchesRegex(e.Value, a) {
			remaining = append(remaining, a)
		}
	}
	if len(remaining) == 0 {
		return labelexpr.Expression{}, Dropped, &errs.UnauthorizedLabelValue{Label: e.Name, Value: e.Value}
	}
	return expand(e, remaining), Rewritten, nil
}

// expand builds the canonical serialization of a value set for label
// e.Name, per spec.md §4.4: a single member is an exact match, two or
// more become a regex alternation.
func expand(e labelexpr.Expression, values []string) labelexpr.Expression {
	uniq := dedupe(values)
	sort.Strings(uniq)

	if len(uniq) == 1 {
		ne := e.WithValue(uniq[0])
		return ne.WithOperator("=")
	}

	parts := make([]string, len(uniq))
	for i, v := range uniq {
		parts[i] = alternationTerm(v)
	}
	ne := e.WithValue(strings.Join(parts, "|"))
	return ne.WithOperator("=~")
}

// alternationTerm renders one member of a value set for inclusion in a
// "a|b|c" regex alternation: members that already look like regexes pass
// through verbatim, bare "*" wildcards become ".*", and literal dots
// (e.g. in IP addresses) are left unescaped so they keep matching
// themselves under regex semantics.
func alternationTerm(v string) string {
	if v == "*" {
		return ".*"
	}
	return v
}

func containsWildcard(values []string) bool {
	for _, v := range values {
		if store.IsWildcard(v) || strings.Contains(v, "*") {
			return true
		}
	}
	return false
}

func containsLiteral(values []string, v string) bool {
	for _, a := range values {
		if a == v {
			return true
		}
	}
	return false
}

func remove(values []string, v string) []string {
	out := make([]string, 0, len(values))
	for _, a := range values {
		if a == v {
			continue
		}
		out = append(out, a)
	}
	return out
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

// isFullRegex guesses whether an allowed-set member is meant as a regex
// pattern rather than a literal: it contains a metacharacter.
func isFullRegex(v string) bool {
	return strings.ContainsAny(v, `^$[]()|\+?`)
}

// matchesRegex reports whether v matches pattern p as a regex, falling
// back to a bidirectional substring test if p fails to compile
// (spec.md §4.4's InvalidRegex fallback — user-supplied patterns are
// untrusted and must never abort the request).
func matchesRegex(p, v string) bool {
	// Anchor like PromQL/LogQL/TraceQL label matchers do: a label regex
	// matches the whole value, not a substring of it.
	anchored := "^(?:" + p + ")$"
	re, err := regexp.Compile(anchored)
	if err != nil {
		return strings.Contains(v, p) || strings.Contains(p, v)
	}
	return re.MatchString(v)
}
