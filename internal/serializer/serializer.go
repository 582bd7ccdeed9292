// Package serializer emits a label block from a list of expressions,
// preserving OriginalText for anything untouched (spec.md §4.6, §9).
package serializer

import (
	"strings"

	"github.com/prometheus/prometheus/model/labels"

	"github.com/obs-gateway/lbac-proxy/internal/dialect"
	"github.com/obs-gateway/lbac-proxy/internal/labelexpr"
)

// Serialize joins exprs with profile.PairSeparator. Each expression
// serializes as its OriginalText when present, otherwise as
// name+operator+(quoted value). This is the mechanism by which an
// unchanged pair survives byte-identical, whitespace and operator form
// included.
func Serialize(exprs []labelexpr.Expression, profile *dialect.Profile) string {
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		parts = append(parts, serializeOne(e, profile))
	}
	return strings.Join(parts, profile.PairSeparator)
}

func serializeOne(e labelexpr.Expression, profile *dialect.Profile) string {
	if e.HasOriginal {
		return e.OriginalText
	}

	// Expansions and rewrites are always re-quoted: every dialect's wire
	// format accepts a quoted value wherever a bare one is legal, and
	// unlike an untouched pair a synthesized one has no original
	// formatting worth preserving. PromQL/LogQL's four operators go
	// through labels.Matcher.String() for this, the same matcher type
	// prometheus/prometheus's own query layer uses to print a matcher
	// back to its wire form. TraceQL expressions, whatever their operator,
	// use the manual form below: labels.Matcher has no equivalent for
	// TraceQL's comparison operators (">=", "<", ...) and would quote a
	// dotted attribute name such as ".namespace".
	if profile.Name != dialect.TraceQL {
		if m, ok := matcher(e); ok {
			return m.String()
		}
	}

	return e.Name + e.Operator + `"` + escapeQuotes(e.Value) + `"`
}

// matcher builds the labels.Matcher equivalent of e, when its operator
// maps to one of the four labels.MatchType values and the value compiles
// (a regex operator with an invalid pattern falls back to the manual
// quoting path rather than panicking the serializer over untrusted
// input).
func matcher(e labelexpr.Expression) (*labels.Matcher, bool) {
	mt, ok := matchType(e.Operator)
	if !ok {
		return nil, false
	}
	m, err := labels.NewMatcher(mt, e.Name, e.Value)
	if err != nil {
		return nil, false
	}
	return m, true
}

func matchType(op string) (labels.MatchType, bool) {
	switch op {
	case "=":
		return labels.MatchEqual, true
	case "!=":
		return labels.MatchNotEqual, true
	case "=~":
		return labels.MatchRegexp, true
	case "!~":
		return labels.MatchNotRegexp, true
	default:
		return 0, false
	}
}

func escapeQuotes(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == '"' && (i == 0 || v[i-1] != '\\') {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}
