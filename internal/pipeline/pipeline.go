// Package pipeline wires the label-expression stages of spec.md §2 into
// the single data flow described there: lex, parse each pair, normalize,
// enforce, validate, inject missing constraints, serialize. It operates
// on one label-block body at a time; the Query Shape Rewriter and
// Endpoint Specializer call it per block or to build a from-scratch
// block.
package pipeline

import (
	"github.com/obs-gateway/lbac-proxy/internal/dialect"
	"github.com/obs-gateway/lbac-proxy/internal/enforcer"
	"github.com/obs-gateway/lbac-proxy/internal/errs"
	"github.com/obs-gateway/lbac-proxy/internal/injector"
	"github.com/obs-gateway/lbac-proxy/internal/labelexpr"
	"github.com/obs-gateway/lbac-proxy/internal/lexer"
	"github.com/obs-gateway/lbac-proxy/internal/normalizer"
	"github.com/obs-gateway/lbac-proxy/internal/pairparser"
	"github.com/obs-gateway/lbac-proxy/internal/serializer"
	"github.com/obs-gateway/lbac-proxy/internal/store"
)

// Added records one constraint the pipeline forced into the output,
// either by tightening an existing pair or by injecting a missing one,
// for the orchestrator's audit trail.
type Added struct {
	Label string
	Value string
}

// Result is the outcome of running the pipeline over one label block.
type Result struct {
	Serialized string
	Added      []Added
}

// RunBlock runs the full pipeline over one label block's inner content
// and returns its enforced serialization.
func RunBlock(inner string, profile *dialect.Profile, allowed store.ConstraintSet, opts enforcer.Options) (Result, error) {
	rawPairs, ok := lexer.Split(inner, profile.PairSeparator)
	if !ok {
		return Result{}, &errs.MalformedInput{Reason: "label block exceeds lexer limits or has an unbalanced quote/brace"}
	}

	exprs := make([]labelexpr.Expression, 0, len(rawPairs))
	for _, raw := range rawPairs {
		exprs = append(exprs, pairparser.Parse(raw, profile))
	}

	exprs = normalizer.Normalize(exprs)

	var added []Added
	enforced := make([]labelexpr.Expression, 0, len(exprs))
	for _, e := range exprs {
		if e.Passthrough {
			enforced = append(enforced, e)
			continue
		}

		out, outcome, err := enforcer.Enforce(e, allowed, opts)
		if err != nil {
			return Result{}, err
		}
		if outcome == enforcer.Dropped {
			// !~ against an empty allowed set: the expression is
			// silently removed rather than rejected (spec.md §4.4).
			continue
		}
		if outcome == enforcer.Rewritten {
			added = append(added, Added{Label: out.Name, Value: out.Value})
		}
		enforced = append(enforced, out)
	}

	if err := enforcer.Validate(enforced, allowed); err != nil {
		return Result{}, err
	}

	before := len(enforced)
	enforced = injector.Inject(enforced, allowed)
	for _, e := range enforced[before:] {
		added = append(added, Added{Label: e.Name, Value: e.Value})
	}

	return Result{Serialized: serializer.Serialize(enforced, profile), Added: added}, nil
}

// RunEmpty builds a label block from scratch (no existing pairs), used
// when a query has no block to rewrite in place: just the injector and
// serializer stages run, since there is nothing to lex, parse, normalize
// or enforce against.
func RunEmpty(profile *dialect.Profile, allowed store.ConstraintSet) Result {
	enforced := injector.Inject(nil, allowed)
	added := make([]Added, 0, len(enforced))
	for _, e := range enforced {
		added = append(added, Added{Label: e.Name, Value: e.Value})
	}
	return Result{Serialized: serializer.Serialize(enforced, profile), Added: added}
}
