// Package normalizer rewrites label expressions into canonical form before
// enforcement: URL-decoding repair, explicit-regex markers, and wildcard
// collapsing (spec.md §4.3). It never touches strings directly — every
// rewrite goes through labelexpr.Expression field mutators so
// OriginalText is cleared exactly when semantics change.
package normalizer

import (
	"strings"

	"github.com/obs-gateway/lbac-proxy/internal/labelexpr"
	"github.com/obs-gateway/lbac-proxy/internal/store"
)

// regexMetacharacters are the characters whose presence in a value
// (after the "~" marker is stripped) promotes an exact operator to its
// regex counterpart.
const regexMetacharacters = `^$[]()|\`

// Normalize applies the three rewrites of spec.md §4.3 to each
// expression. Passthrough expressions are returned unchanged.
func Normalize(exprs []labelexpr.Expression) []labelexpr.Expression {
	out := make([]labelexpr.Expression, len(exprs))
	for i, e := range exprs {
		out[i] = normalizeOne(e)
	}
	return out
}

func normalizeOne(e labelexpr.Expression) labelexpr.Expression {
	if e.Passthrough {
		return e
	}

	e = repairURLDecoding(e)
	e = stripExplicitRegexMarker(e)
	e = collapseWildcard(e)

	return e
}

// repairURLDecoding undoes a known upstream decoding artifact where a
// literal ".+" regex quantifier arrives as ". " (dot, space) because an
// intermediate hop URL-decoded a "+" into a space.
func repairURLDecoding(e labelexpr.Expression) labelexpr.Expression {
	if strings.Contains(e.Value, ". ") {
		return e.WithValue(strings.ReplaceAll(e.Value, ". ", ".+"))
	}
	return e
}

// stripExplicitRegexMarker removes a leading "~" and, if the remainder
// looks like a regex, promotes "=" to "=~" and "!=" to "!~". A "~"-marked
// value with no metacharacters is left as a plain exact match.
func stripExplicitRegexMarker(e labelexpr.Expression) labelexpr.Expression {
	if !strings.HasPrefix(e.Value, "~") {
		return e
	}

	remainder := strings.TrimPrefix(e.Value, "~")
	e = e.WithValue(remainder)

	if !strings.ContainsAny(remainder, regexMetacharacters) {
		return e
	}

	switch e.Operator {
	case "=":
		return e.WithOperator("=~")
	case "!=":
		return e.WithOperator("!~")
	default:
		return e
	}
}

// collapseWildcard canonicalizes any of the recognized wildcard spellings
// to "*" so the enforcer only ever has to test one token.
func collapseWildcard(e labelexpr.Expression) labelexpr.Expression {
	if store.IsWildcard(e.Value) && e.Value != "*" {
		return e.WithValue("*")
	}
	return e
}
