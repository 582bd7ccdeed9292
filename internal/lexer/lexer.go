// Package lexer implements the quote/brace-aware splitter that turns one
// label-block body into a list of raw pair substrings (spec.md §4.1).
package lexer

import (
	"log"
	"strings"
)

// Limits enforced to keep the pipeline's worst-case work linear and
// bounded, per spec.md §4.1 and §5.
const (
	MaxInputLength = 10000
	MaxPairs       = 1000
)

// Split tokenizes body into raw pair substrings using sep as the
// top-level separator. It fails closed (spec.md §4.1): any of the
// documented malformed-input conditions returns ok=false and a nil
// slice, distinct from a legitimately empty block (ok=true, nil slice)
// such as the body of a bare "{}" — callers must not conflate the two,
// since only the former should surface as MalformedInput.
func Split(body string, sep string) (pairs []string, ok bool) {
	if len(body) > MaxInputLength {
		log.Printf("lexer: input of %d bytes exceeds %d byte limit, rejecting", len(body), MaxInputLength)
		return nil, false
	}

	var (
		buf        strings.Builder
		inQuote    byte
		escaped    bool
		braceDepth int
	)

	flush := func() {
		p := strings.TrimSpace(buf.String())
		if p != "" {
			pairs = append(pairs, p)
		}
		buf.Reset()
	}

	i := 0
	for i < len(body) {
		c := body[i]

		if escaped {
			buf.WriteByte(c)
			escaped = false
			i++
			continue
		}

		if inQuote != 0 {
			buf.WriteByte(c)
			if c == '\\' {
				escaped = true
			} else if c == inQuote {
				inQuote = 0
			}
			i++
			continue
		}

		switch c {
		case '\'', '"':
			inQuote = c
			buf.WriteByte(c)
			i++
			continue
		case '\\':
			escaped = true
			buf.WriteByte(c)
			i++
			continue
		case '{':
			braceDepth++
			buf.WriteByte(c)
			i++
			continue
		case '}':
			if braceDepth == 0 {
				log.Printf("lexer: unmatched closing brace in label block, rejecting")
				return nil, false
			}
			braceDepth--
			buf.WriteByte(c)
			i++
			continue
		}

		if braceDepth == 0 && strings.HasPrefix(body[i:], sep) {
			flush()
			i += len(sep)
			if len(pairs) > MaxPairs {
				log.Printf("lexer: more than %d pairs, rejecting", MaxPairs)
				return nil, false
			}
			continue
		}

		buf.WriteByte(c)
		i++
	}

	if inQuote != 0 {
		log.Printf("lexer: unclosed quote in label block, rejecting")
		return nil, false
	}
	if braceDepth != 0 {
		log.Printf("lexer: unmatched brace in label block, rejecting")
		return nil, false
	}

	flush()
	if len(pairs) > MaxPairs {
		log.Printf("lexer: more than %d pairs, rejecting", MaxPairs)
		return nil, false
	}

	return pairs, true
}
