// Package pairparser splits one raw label pair into a labelexpr.Expression
// using a dialect's operator precedence table (spec.md §4.2).
package pairparser

import (
	"strings"

	"github.com/obs-gateway/lbac-proxy/internal/dialect"
	"github.com/obs-gateway/lbac-proxy/internal/labelexpr"
)

// Parse turns one trimmed pair substring into an Expression. The operator
// search tries longer tokens first (profile.OperatorPrecedence is already
// ordered that way) so TraceQL's ">=" is never misread as ">" followed by
// a stray "=".
func Parse(raw string, profile *dialect.Profile) labelexpr.Expression {
	trimmed := strings.TrimSpace(raw)

	if _, ok := profile.PassthroughKeywords[trimmed]; ok {
		return labelexpr.Passthru(trimmed)
	}

	for _, op := range profile.OperatorPrecedence {
		idx := findOperator(trimmed, op)
		if idx < 0 {
			continue
		}

		name := strings.TrimSpace(trimmed[:idx])
		value := strings.TrimSpace(trimmed[idx+len(op):])
		value, quoted := unquote(value)

		expr := labelexpr.Expression{
			Name:         name,
			Operator:     op,
			Value:        value,
			Quoted:       quoted,
			OriginalText: trimmed,
			HasOriginal:  true,
		}

		if _, ok := profile.IntrinsicAttributes[name]; ok {
			expr.Passthrough = true
		}

		return expr
	}

	// No operator matched: treat the whole trimmed text as a passthrough
	// token (a bare identifier or keyword the dialect doesn't know about).
	// This degrades safely — nothing is enforced, but nothing crashes the
	// pipeline over an unrecognized shape either.
	return labelexpr.Passthru(trimmed)
}

// findOperator returns the index of the first (leftmost) occurrence of op
// in s that is not inside a quoted substring, or -1.
func findOperator(s, op string) int {
	var (
		inQuote byte
		escaped bool
	)
	for i := 0; i+len(op) <= len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inQuote != 0 {
			if c == '\\' {
				escaped = true
			} else if c == inQuote {
				inQuote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			inQuote = c
			continue
		}
		if s[i:i+len(op)] == op {
			return i
		}
	}
	return -1
}

// unquote strips one layer of matching surrounding quotes, reporting
// whether it did.
func unquote(v string) (string, bool) {
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' || first == '\'') && first == last {
			return v[1 : len(v)-1], true
		}
	}
	return v, false
}
