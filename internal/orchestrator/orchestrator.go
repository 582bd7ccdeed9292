// Package orchestrator implements the Request Orchestrator (spec.md
// §4.10): the single enforce() operation that resolves a principal's
// constraints, checks for admin passthrough, and dispatches to either
// the label-expression pipeline (for QUERY, in place or via the shape
// rewriter) or the Endpoint Specializer (for every other endpoint kind).
package orchestrator

import (
	"net/url"

	"github.com/go-openapi/strfmt"

	"github.com/obs-gateway/lbac-proxy/internal/dialect"
	"github.com/obs-gateway/lbac-proxy/internal/enforcer"
	"github.com/obs-gateway/lbac-proxy/internal/errs"
	"github.com/obs-gateway/lbac-proxy/internal/pipeline"
	"github.com/obs-gateway/lbac-proxy/internal/scanner"
	"github.com/obs-gateway/lbac-proxy/internal/shaperewriter"
	"github.com/obs-gateway/lbac-proxy/internal/specializer"
	"github.com/obs-gateway/lbac-proxy/internal/store"
)

// DefaultQueryParam is the form/query parameter carrying query text, the
// same default every one of the three backends uses.
const DefaultQueryParam = "query"

// RequestContext is everything the orchestrator needs to enforce one
// request, gathered by the (out of scope) HTTP layer: an authenticated
// principal, the backend service tag, which endpoint shape this is, and
// the raw query string (and optionally a POST form body) to rewrite.
type RequestContext struct {
	Principal   store.Principal
	Service     string
	Endpoint    dialect.EndpointKind
	RawQuery    string
	FormBody    string
	HasFormBody bool
	QueryParam  string
	Options     enforcer.Options
}

// EnforcedRequest is the orchestrator's result: the request the caller
// should actually forward upstream, plus an audit trail of every
// constraint the enforcement pipeline added or tightened.
type EnforcedRequest struct {
	RawQuery    string
	FormBody    string
	HasFormBody bool
	Added       []pipeline.Added
	Admin       bool
	AuditID     strfmt.UUID

	// Headers carries the tenant-header-constraints resolved for this
	// principal/service (spec.md §6), for the caller to set on the
	// upstream request alongside the rewritten query.
	Headers map[string][]string
}

// Enforce resolves ctx against doc and returns the rewritten request, or
// one of the errs taxonomy members on failure. doc is a single immutable
// snapshot (the caller takes it from a store.Store once, up front, so the
// whole request is served against one generation).
func Enforce(ctx RequestContext, doc *store.ConfigDocument) (EnforcedRequest, error) {
	audit := store.AuditID()

	if doc.IsAdmin(ctx.Principal) {
		return EnforcedRequest{
			RawQuery:    ctx.RawQuery,
			FormBody:    ctx.FormBody,
			HasFormBody: ctx.HasFormBody,
			Admin:       true,
			AuditID:     audit,
		}, nil
	}

	profile, ok := dialect.ForService(ctx.Service)
	if !ok {
		return EnforcedRequest{}, &errs.ServiceNotConfigured{Service: ctx.Service}
	}

	allowed, excluded, ok := doc.Resolve(ctx.Principal, ctx.Service)
	if !ok {
		return EnforcedRequest{}, &errs.ServiceNotConfigured{Service: ctx.Service}
	}
	headers := doc.HeaderConstraints(ctx.Principal, ctx.Service)

	paramName := ctx.QueryParam
	if paramName == "" {
		paramName = DefaultQueryParam
	}

	var (
		rawQuery string
		formBody string
		added    []pipeline.Added
		err      error
	)

	switch ctx.Endpoint.Kind() {
	case dialect.Query:
		rawQuery, added, err = rewriteQueryParam(ctx.RawQuery, paramName, profile, allowed, ctx.Options)
		if err != nil {
			return EnforcedRequest{}, err
		}
		if ctx.HasFormBody {
			var formAdded []pipeline.Added
			formBody, formAdded, err = rewriteQueryParam(ctx.FormBody, paramName, profile, allowed, ctx.Options)
			if err != nil {
				return EnforcedRequest{}, err
			}
			added = append(added, formAdded...)
		}

	case dialect.LabelsList:
		rawQuery, err = specializer.LabelsList(ctx.RawQuery, profile, allowed)

	case dialect.LabelValues:
		rawQuery, err = specializer.LabelValues(ctx.RawQuery, ctx.Endpoint.Name(), profile, allowed, excluded)

	case dialect.Series:
		if profile.Name != dialect.PromQL {
			return EnforcedRequest{}, &errs.MalformedInput{Reason: "series endpoint is only valid for PromQL-family services"}
		}
		rawQuery, err = specializer.Series(ctx.RawQuery, profile, allowed)

	case dialect.TagValues:
		rawQuery, err = specializer.TagValues(ctx.RawQuery, ctx.Endpoint.Name(), profile, allowed, excluded)

	default:
		return EnforcedRequest{}, &errs.MalformedInput{Reason: "unknown endpoint kind"}
	}

	if err != nil {
		return EnforcedRequest{}, err
	}

	return EnforcedRequest{
		RawQuery:    rawQuery,
		FormBody:    formBody,
		HasFormBody: ctx.HasFormBody && ctx.Endpoint.Kind() == dialect.Query,
		Added:       added,
		AuditID:     audit,
		Headers:     headers,
	}, nil
}

// rewriteQueryParam finds paramName inside a URL-encoded parameter set,
// runs every existing label block it contains through the pipeline, and
// falls back to the Query Shape Rewriter when the query text has no
// block at all (spec.md §4.10's QUERY dispatch step). A query text with
// no paramName present at all passes through untouched — the backend
// will reject it on its own terms.
func rewriteQueryParam(raw, paramName string, profile *dialect.Profile, allowed store.ConstraintSet, opts enforcer.Options) (string, []pipeline.Added, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return "", nil, &errs.MalformedInput{Reason: "cannot parse request parameters: " + err.Error()}
	}

	queryText, present := values[paramName]
	if !present || len(queryText) == 0 {
		return raw, nil, nil
	}

	var (
		added    []pipeline.Added
		stageErr error
	)

	blocks := scanner.Scan(queryText[0])
	var rewritten string
	if len(blocks) == 0 {
		result := pipeline.RunEmpty(profile, allowed)
		rewritten = shaperewriter.Splice(queryText[0], profile, result.Serialized)
		added = append(added, result.Added...)
	} else {
		rewritten = scanner.ReplaceAll(queryText[0], func(inner string) string {
			if stageErr != nil {
				return inner
			}
			result, err := pipeline.RunBlock(inner, profile, allowed, opts)
			if err != nil {
				stageErr = err
				return inner
			}
			added = append(added, result.Added...)
			return result.Serialized
		})
		if stageErr != nil {
			return "", nil, stageErr
		}
	}

	values.Set(paramName, rewritten)
	return values.Encode(), added, nil
}
