package store

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// serviceBlock is the compiled, per-service view of the document: a
// per-principal-key ConstraintSet/ExclusionSet/header map, already
// union-merged where a config entry names a group rather than a user.
type serviceBlock struct {
	constraints map[string]ConstraintSet
	exclusions  map[string]ExclusionSet
	headers     map[string]map[string][]string
}

// ConfigDocument is the hot-reloaded source of truth (spec.md §3). It is
// immutable once built: the watcher builds a new one off to the side and
// atomically swaps the Store's pointer to it.
type ConfigDocument struct {
	adminLabels     []string
	adminIsWildcard bool
	adminHeaders    map[string][]string
	services        map[string]serviceBlock
}

// reservedAdminGroup is the literal group name that, combined with a
// configured "admin:" block, grants cluster-wide passthrough. spec.md §4.10
// says only "the principal has cluster-wide access (admin group, or an
// admin block in config)" without nesting the admin block per-principal the
// way every other block is; resolved here (see DESIGN.md) as: the document
// must carry a non-empty admin block, AND the principal's username or one of
// its groups must be the reserved name "admin". A document with no admin block never grants
// passthrough, however the caller is grouped.
const reservedAdminGroup = "admin"

// IsAdmin reports whether principal has cluster-wide, unenforced access.
func (d *ConfigDocument) IsAdmin(p Principal) bool {
	if d == nil {
		return false
	}
	if len(d.adminLabels) == 0 && !d.adminIsWildcard && len(d.adminHeaders) == 0 {
		return false
	}
	if p.Username == reservedAdminGroup {
		return true
	}
	for _, g := range p.Groups {
		if g == reservedAdminGroup {
			return true
		}
	}
	return false
}

// Resolve returns the merged ConstraintSet and ExclusionSet for
// (principal, service), honoring per-group union semantics: every config
// key (username, then each group) that has an entry contributes its
// values, and a label's allowed set is the union across all matching
// keys.
func (d *ConfigDocument) Resolve(p Principal, service string) (ConstraintSet, ExclusionSet, bool) {
	svc, ok := d.services[service]
	if !ok {
		return ConstraintSet{}, nil, false
	}

	merged := map[string][]string{}
	exclusions := ExclusionSet{}
	found := false

	for _, key := range p.principalKeys() {
		if key == "" {
			continue
		}
		if cs, ok := svc.constraints[key]; ok {
			found = true
			for _, name := range cs.Names() {
				vs, _ := cs.Allowed(name)
				merged[name] = append(merged[name], vs...)
			}
			if grant, ok := cs.Allowed(MetaLabels); ok {
				merged[MetaLabels] = append(merged[MetaLabels], grant...)
			}
		}
		if ex, ok := svc.exclusions[key]; ok {
			for name := range ex {
				exclusions[name] = struct{}{}
			}
		}
	}

	if !found {
		return ConstraintSet{}, nil, false
	}
	return NewConstraintSet(merged), exclusions, true
}

// HeaderConstraints returns the merged configured header values for
// (principal, service) under tenant-header-constraints, honoring the same
// per-key union semantics as Resolve: only entries keyed by the
// principal's username or one of its groups contribute, and a header's
// value set is the union across all matching keys, as required by
// spec.md §6.
func (d *ConfigDocument) HeaderConstraints(p Principal, service string) map[string][]string {
	svc, ok := d.services[service]
	if !ok {
		return nil
	}
	merged := map[string]map[string]struct{}{}
	for _, key := range p.principalKeys() {
		if key == "" {
			continue
		}
		headers, ok := svc.headers[key]
		if !ok {
			continue
		}
		for header, values := range headers {
			if merged[header] == nil {
				merged[header] = map[string]struct{}{}
			}
			for _, v := range values {
				merged[header][v] = struct{}{}
			}
		}
	}
	if len(merged) == 0 {
		return nil
	}
	out := make(map[string][]string, len(merged))
	for header, set := range merged {
		var vs []string
		for v := range set {
			vs = append(vs, v)
		}
		out[header] = vs
	}
	return out
}

// Decode parses a YAML-shaped configuration document per spec.md §6.
func Decode(raw []byte) (*ConfigDocument, error) {
	var rdoc map[string]interface{}
	if err := yaml.Unmarshal(raw, &rdoc); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	doc := &ConfigDocument{services: map[string]serviceBlock{}}

	for key, val := range rdoc {
		section, ok := val.(map[string]interface{})
		if !ok {
			continue
		}
		if key == "admin" {
			labels, isWildcard := decodeLabelsMeta(section["labels"])
			doc.adminLabels = labels
			doc.adminIsWildcard = isWildcard
			doc.adminHeaders = decodeHeaders(section["header"])
			continue
		}
		block, err := decodeServiceBlock(section)
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", key, err)
		}
		doc.services[key] = block
	}

	return doc, nil
}

func decodeServiceBlock(section map[string]interface{}) (serviceBlock, error) {
	block := serviceBlock{
		constraints: map[string]ConstraintSet{},
		exclusions:  map[string]ExclusionSet{},
		headers:     map[string]map[string][]string{},
	}

	if ulc, ok := section["user-label-constraints"].(map[string]interface{}); ok {
		for principal, v := range ulc {
			entry, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			values := map[string][]string{}
			var exclude []string
			for name, raw := range entry {
				if name == "labels" {
					labels, isWildcard := decodeLabelsMeta(raw)
					if isWildcard {
						values[MetaLabels] = []string{"*"}
					} else {
						values[MetaLabels] = labels
					}
					for _, l := range toStringSlice(raw) {
						if strings.HasPrefix(l, "!=") {
							exclude = append(exclude, strings.TrimPrefix(l, "!="))
						}
					}
					continue
				}
				if name == "header" {
					continue
				}
				values[name] = decodeValueList(toStringSlice(raw))
			}
			block.constraints[principal] = NewConstraintSet(values)
			if len(exclude) > 0 {
				block.exclusions[principal] = NewExclusionSet(exclude...)
			}
		}
	}

	if thc, ok := section["tenant-header-constraints"].(map[string]interface{}); ok {
		for principal, v := range thc {
			entry, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			headers := block.headers[principal]
			if headers == nil {
				headers = map[string][]string{}
			}
			for header, values := range decodeHeaders(entry["header"]) {
				headers[header] = mergeHeaderValues(headers[header], values)
			}
			block.headers[principal] = headers
		}
	}

	return block, nil
}

// decodeLabelsMeta splits a "labels:" list into (grants, isWildcard),
// stripping "!=" exclusion entries (those are reported separately by the
// caller) per spec.md §6: "an entry beginning with !=  adds to the
// exclusion set and is not added to the allowed set."
func decodeLabelsMeta(raw interface{}) ([]string, bool) {
	items := toStringSlice(raw)
	var grants []string
	wildcard := false
	for _, it := range items {
		switch {
		case strings.HasPrefix(it, "!="):
			// Exclusion; handled by the caller via a second pass.
		case it == "*":
			wildcard = true
		default:
			grants = append(grants, it)
		}
	}
	return grants, wildcard
}

// decodeValueList strips the leading "~" explicit-regex marker from any
// value, per spec.md §6: "the marker is stripped before storage."
func decodeValueList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, strings.TrimPrefix(it, "~"))
	}
	return out
}

// decodeHeaders accepts either "Header-Name: value" strings or single-key
// maps {Header-Name: value}, the two forms spec.md §6 allows.
func decodeHeaders(raw interface{}) map[string][]string {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := map[string][]string{}
	for _, item := range items {
		switch v := item.(type) {
		case string:
			parts := strings.SplitN(v, ":", 2)
			if len(parts) != 2 {
				continue
			}
			name := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			out[name] = mergeHeaderValues(out[name], []string{value})
		case map[string]interface{}:
			for name, val := range v {
				if s, ok := val.(string); ok {
					out[name] = mergeHeaderValues(out[name], []string{s})
				}
			}
		}
	}
	return out
}

func mergeHeaderValues(existing []string, add []string) []string {
	seen := map[string]struct{}{}
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	for _, v := range add {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		existing = append(existing, v)
	}
	return existing
}

func toStringSlice(raw interface{}) []string {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
