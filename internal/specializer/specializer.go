// Package specializer implements the Endpoint Specializer (spec.md §4.9):
// the four non-QUERY endpoint kinds that don't have an existing query
// string to rewrite in place, but instead get a constraint block merged
// into a side parameter or an existing match[] selector.
package specializer

import (
	"net/url"
	"strings"

	"github.com/obs-gateway/lbac-proxy/internal/dialect"
	"github.com/obs-gateway/lbac-proxy/internal/errs"
	"github.com/obs-gateway/lbac-proxy/internal/injector"
	"github.com/obs-gateway/lbac-proxy/internal/scanner"
	"github.com/obs-gateway/lbac-proxy/internal/serializer"
	"github.com/obs-gateway/lbac-proxy/internal/store"
)

// constraintBlock serializes every required constraint the principal
// carries, with nothing parsed or enforced against — the same shape
// RunEmpty hands the Query Shape Rewriter, reused here since all four
// specialized endpoints need exactly this "build from scratch" block.
func constraintBlock(profile *dialect.Profile, allowed store.ConstraintSet) string {
	return serializer.Serialize(injector.Inject(nil, allowed), profile)
}

// LabelsList implements LABELS_LIST: the label set names every value
// the principal can see, so only the essential (non-wildcard) part of
// their constraints needs enforcing. A wildcard principal has nothing to
// restrict and the raw query passes through unchanged.
func LabelsList(rawQuery string, profile *dialect.Profile, allowed store.ConstraintSet) (string, error) {
	block := constraintBlock(profile, allowed)
	if block == "" {
		return rawQuery, nil
	}
	return appendParam(rawQuery, "enforcementParam", "{"+block+"}")
}

// LabelValues implements LABEL_VALUES(name): "__name__" is a metric
// selector, not a label in the authorization sense, and bypasses the
// access check entirely. Every other name must appear in the principal's
// allowed-labels set and must not be explicitly excluded.
func LabelValues(rawQuery, name string, profile *dialect.Profile, allowed store.ConstraintSet, excluded store.ExclusionSet) (string, error) {
	if name == "__name__" {
		return rawQuery, nil
	}
	if excluded.Contains(name) || !allowed.IsLabelAllowed(name) {
		return "", &errs.UnauthorizedLabelAccess{Label: name}
	}

	block := constraintBlock(profile, allowed)
	if block == "" {
		return appendParam(rawQuery, "enforcementParam", "{}")
	}
	return appendParam(rawQuery, "enforcementParam", "{"+block+"}")
}

// TagValues implements TAG_VALUES(name), the TraceQL equivalent of
// LabelValues: same access check, but the side parameter is named "q"
// (the Tempo tag-values query parameter) and an empty constraint set
// still emits "{}" rather than being dropped, per spec.md §4.9.
func TagValues(rawQuery, name string, profile *dialect.Profile, allowed store.ConstraintSet, excluded store.ExclusionSet) (string, error) {
	if name == "__name__" {
		return rawQuery, nil
	}
	if excluded.Contains(name) || !allowed.IsLabelAllowed(name) {
		return "", &errs.UnauthorizedLabelAccess{Label: name}
	}

	block := constraintBlock(profile, allowed)
	return appendParam(rawQuery, "q", "{"+block+"}")
}

// Series implements SERIES (PromQL-family only): every existing
// match[] selector (however it was encoded — "match[]=" or
// "match%5B%5D=" both decode to the same key) gets the constraint block
// merged in, and the parameter is re-emitted using the literal,
// unencoded "match[]=" form every backend expects.
func Series(rawQuery string, profile *dialect.Profile, allowed store.ConstraintSet) (string, error) {
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", &errs.MalformedInput{Reason: "cannot parse series query: " + err.Error()}
	}

	matches := dedupeStrings(q["match[]"])
	q.Del("match[]")

	block := constraintBlock(profile, allowed)
	if len(matches) == 0 {
		matches = []string{"{" + block + "}"}
	} else {
		for i, m := range matches {
			matches[i] = mergeSelector(m, block)
		}
	}

	return encodeWithMatches(q, matches), nil
}

// mergeSelector inserts the constraint block into an existing selector:
// as an appended label if the selector already has a block, or as a new
// trailing block otherwise. A caller with no constraints to add (a
// wildcard principal) leaves the selector untouched.
func mergeSelector(selector, block string) string {
	if block == "" {
		return selector
	}

	blocks := scanner.Scan(selector)
	if len(blocks) == 0 {
		return selector + "{" + block + "}"
	}

	last := blocks[len(blocks)-1]
	insert := block
	if last.Inner != "" {
		insert = "," + block
	}
	closeAt := last.End - 1
	return selector[:closeAt] + insert + selector[closeAt:]
}

// appendParam sets name=value on rawQuery's parameters, leaving every
// other parameter as url.Values re-encodes it. Byte-identical
// preservation of the untouched parameters is explicitly out of scope
// (spec.md §9) the way it is for the rest of the rewrite surface.
func appendParam(rawQuery, name, value string) (string, error) {
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", &errs.MalformedInput{Reason: "cannot parse query: " + err.Error()}
	}
	q.Set(name, value)
	return q.Encode(), nil
}

// encodeWithMatches re-encodes q's remaining parameters normally, then
// prepends one literal "match[]=<escaped value>" per entry: url.Values
// would otherwise percent-encode the brackets themselves, producing
// "match%5B%5D=" on emit where every one of these backends expects the
// literal "match[]=" form.
func encodeWithMatches(q url.Values, matches []string) string {
	rest := q.Encode()

	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, "match[]="+url.QueryEscape(m))
	}
	matchPart := strings.Join(parts, "&")

	switch {
	case rest == "":
		return matchPart
	case matchPart == "":
		return rest
	default:
		return matchPart + "&" + rest
	}
}

func dedupeStrings(vs []string) []string {
	seen := make(map[string]struct{}, len(vs))
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
