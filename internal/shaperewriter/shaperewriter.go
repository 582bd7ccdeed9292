// Package shaperewriter implements the Query Shape Rewriter (spec.md
// §4.8): called only when a query has no existing {...} label block, it
// finds the right splice point and inserts one built from scratch.
//
// Every insertion here is a plain string slice-and-concatenate, never a
// regexp-template replacement: substituting through
// regexp.ReplaceAllString would reinterpret "$1"-style sequences and can
// silently eat backslash escapes in the untouched remainder of the
// query, the exact bug class spec.md §4.8 calls out.
package shaperewriter

import (
	"regexp"
	"strings"

	"github.com/obs-gateway/lbac-proxy/internal/dialect"
)

var identifierBeforeBracket = regexp.MustCompile(`[A-Za-z_:][A-Za-z0-9_:]*\[`)

var groupingClauses = []string{" by ", " group_left", " group_right", " offset "}

// Splice builds the final query when no label block existed to enforce
// in place. block is the already-serialized, already-enforced label
// block body (without surrounding braces).
func Splice(query string, profile *dialect.Profile, block string) string {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		if block == "" {
			return "{}"
		}
		return "{" + block + "}"
	}

	switch profile.Name {
	case dialect.LogQL, dialect.TraceQL:
		return "{" + block + "} " + query
	case dialect.PromQL:
		return splicePromQL(query, block)
	default:
		return query + "{" + block + "}"
	}
}

func splicePromQL(query, block string) string {
	if loc := identifierBeforeBracket.FindStringIndex(query); loc != nil {
		insertAt := loc[1] - 1 // position of '[' itself
		return query[:insertAt] + "{" + block + "}" + query[insertAt:]
	}

	if idx := firstGroupingClause(query); idx >= 0 {
		if lastParen := strings.LastIndex(query[:idx], ")"); lastParen >= 0 {
			return query[:lastParen] + "{" + block + "}" + query[lastParen:]
		}
	}

	if strings.HasSuffix(strings.TrimSpace(query), ")") {
		lastParen := strings.LastIndex(query, ")")
		return query[:lastParen] + "{" + block + "}" + query[lastParen:]
	}

	return query + "{" + block + "}"
}

// firstGroupingClause returns the earliest index among the dialect's
// grouping-clause keywords, or -1 if none appear.
func firstGroupingClause(query string) int {
	best := -1
	for _, kw := range groupingClauses {
		if idx := strings.Index(query, kw); idx >= 0 && (best == -1 || idx < best) {
			best = idx
		}
	}
	return best
}
