// Copyright 2020 The Prometheus Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dialect holds the static per-query-language profile shared by
// every stage of the enforcement pipeline. It carries no logic beyond
// table lookups: the pipeline is a single set of algorithms parameterized
// by one of these profiles, never a per-language reimplementation.
package dialect

// Name tags one of the three query languages this gateway fronts.
type Name int

const (
	PromQL Name = iota
	LogQL
	TraceQL
)

func (n Name) String() string {
	switch n {
	case PromQL:
		return "promql"
	case LogQL:
		return "logql"
	case TraceQL:
		return "traceql"
	default:
		return "unknown"
	}
}

// Profile is the static table driving the lexer, pair parser, normalizer
// and enforcer for one dialect. Two dialects never share a *Profile value
// (each carries its own operator precedence slice) but PromQL and LogQL
// share identical content.
type Profile struct {
	Name Name

	// PairSeparator joins serialized pairs back into one label block.
	PairSeparator string

	// OperatorPrecedence lists operator tokens tried longest-first so a
	// prefix operator (e.g. "!") never shadows a longer one that contains
	// it (e.g. "!~", "!=").
	OperatorPrecedence []string

	// IntrinsicAttributes are label names that pass through untouched:
	// they are not selectors over user data, they're properties of the
	// span/series/stream itself.
	IntrinsicAttributes map[string]struct{}

	// PassthroughKeywords are standalone tokens (not name/op/value pairs)
	// that must survive verbatim, such as TraceQL's bare "true"/"false".
	PassthroughKeywords map[string]struct{}
}

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

// PromQLProfile is the Profile for metrics queries.
var PromQLProfile = &Profile{
	Name:                PromQL,
	PairSeparator:       ",",
	OperatorPrecedence:  []string{"!~", "=~", "!=", "="},
	IntrinsicAttributes: set(),
	PassthroughKeywords: set(),
}

// LogQLProfile is the Profile for log stream selectors.
var LogQLProfile = &Profile{
	Name:                LogQL,
	PairSeparator:       ",",
	OperatorPrecedence:  []string{"!~", "=~", "!=", "="},
	IntrinsicAttributes: set(),
	PassthroughKeywords: set(),
}

// TraceQLProfile is the Profile for spanset predicates.
var TraceQLProfile = &Profile{
	Name:                TraceQL,
	PairSeparator:       " && ",
	OperatorPrecedence:  []string{"!~", "=~", "!=", ">=", "<=", "=", ">", "<"},
	IntrinsicAttributes: set("status", "name", "kind", "duration", "childCount", "nestedSetParent", "nestedSetLeft", "nestedSetRight", "traceDuration", "rootName", "rootServiceName"),
	PassthroughKeywords: set("true", "false"),
}

// ForService maps a backend service tag from the request path/config to its
// Profile. SERIES enforcement (§4.9) is PromQL-family only, so only "thanos"
// and any Prometheus-speaking alias resolve there; callers should not call
// this for endpoint kinds the dialect doesn't support.
func ForService(service string) (*Profile, bool) {
	switch service {
	case "thanos", "prometheus", "cortex", "mimir":
		return PromQLProfile, true
	case "loki":
		return LogQLProfile, true
	case "tempo":
		return TraceQLProfile, true
	default:
		return nil, false
	}
}
