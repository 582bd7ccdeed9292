// Package httpgateway is the HTTP front door: a reverse proxy per
// backend service that extracts the caller's principal, classifies the
// request into one of the five endpoint kinds, runs it through
// internal/orchestrator, and forwards the rewritten request upstream.
// Structurally this is the teacher's routes.go (strictMux,
// instrumentedMux, bypassHandler, ExtractLabeler) generalized from one
// hardcoded tenant label to the three-dialect constraint model.
package httpgateway

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/efficientgo/core/merrors"
	"github.com/metalmatze/signal/server/signalhttp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/obs-gateway/lbac-proxy/internal/dialect"
	"github.com/obs-gateway/lbac-proxy/internal/enforcer"
	"github.com/obs-gateway/lbac-proxy/internal/errs"
	"github.com/obs-gateway/lbac-proxy/internal/metrics"
	"github.com/obs-gateway/lbac-proxy/internal/orchestrator"
	"github.com/obs-gateway/lbac-proxy/internal/store"
)

// Routes fronts exactly one backend service (one of "thanos"/"prometheus"/
// "cortex"/"mimir"/"loki"/"tempo"), mirroring the teacher's one-upstream-
// per-instance shape. main.go mounts one Routes per configured backend
// under its own path prefix.
type Routes struct {
	service    string
	upstream   *url.URL
	handler    http.Handler
	store      *store.Store
	metrics    *metrics.Metrics
	principals PrincipalExtractor

	errorOnReplace bool
	passthrough    []string

	mux    http.Handler
	logger *log.Logger
}

type options struct {
	errorOnReplace   bool
	passthroughPaths []string
	registerer       prometheus.Registerer
}

// Option configures Routes construction.
type Option func(*options)

// WithErrorOnReplace mirrors the teacher's -error-on-replace flag: a
// query that would otherwise be silently narrowed is rejected instead.
func WithErrorOnReplace() Option {
	return func(o *options) { o.errorOnReplace = true }
}

// WithPassthroughPaths registers exact path segments that bypass
// enforcement entirely, forwarded straight upstream.
func WithPassthroughPaths(paths []string) Option {
	return func(o *options) { o.passthroughPaths = paths }
}

// WithPrometheusRegistry overrides the registry used for per-handler
// instrumentation; defaults to a fresh registry if unset.
func WithPrometheusRegistry(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// mux abstracts the http.ServeMux behavior this package depends on, the
// same seam the teacher uses to layer strictMux/instrumentedMux.
type mux interface {
	http.Handler
	Handle(string, http.Handler)
}

// strictMux refuses to register a pattern that overlaps one already
// registered, so a misconfigured passthrough path can never silently
// shadow an enforced endpoint.
type strictMux struct {
	mux
	seen map[string]struct{}
}

func newStrictMux(m mux) *strictMux {
	return &strictMux{mux: m, seen: map[string]struct{}{}}
}

func (s *strictMux) Handle(pattern string, handler http.Handler) error {
	sanitized := strings.TrimSuffix(pattern, "/")
	if _, ok := s.seen[sanitized]; ok {
		return fmt.Errorf("pattern %q was already registered", sanitized)
	}
	for p := range s.seen {
		if strings.HasPrefix(sanitized+"/", p+"/") {
			return fmt.Errorf("pattern %q is registered, cannot register path %q that shares it", p, sanitized)
		}
	}
	s.mux.Handle(sanitized, handler)
	s.mux.Handle(sanitized+"/", handler)
	s.seen[sanitized] = struct{}{}
	return nil
}

// instrumentedMux wraps a mux with the teacher's per-handler Prometheus
// instrumentation (request count/duration by "handler" label).
type instrumentedMux struct {
	mux
	i signalhttp.HandlerInstrumenter
}

func newInstrumentedMux(m mux, reg prometheus.Registerer) *instrumentedMux {
	return &instrumentedMux{mux: m, i: signalhttp.NewHandlerInstrumenter(reg, []string{"handler"})}
}

func (i *instrumentedMux) Handle(pattern string, handler http.Handler) {
	i.mux.Handle(pattern, i.i.NewHandler(prometheus.Labels{"handler": pattern}, handler))
}

// NewRoutes builds the reverse proxy for one backend service. profile is
// resolved from service up front so a misconfigured service name fails
// at construction rather than on the first request.
func NewRoutes(service string, upstream *url.URL, st *store.Store, m *metrics.Metrics, principals PrincipalExtractor, opts ...Option) (*Routes, error) {
	if _, ok := dialect.ForService(service); !ok {
		return nil, fmt.Errorf("service %q has no known dialect", service)
	}

	var opt options
	for _, o := range opts {
		o(&opt)
	}
	if opt.registerer == nil {
		opt.registerer = prometheus.NewRegistry()
	}

	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorLog = log.Default()

	r := &Routes{
		service:        service,
		upstream:       upstream,
		handler:        proxy,
		store:          st,
		metrics:        m,
		principals:     principals,
		errorOnReplace: opt.errorOnReplace,
		passthrough:    opt.passthroughPaths,
		logger:         log.Default(),
	}

	rawMux := newStrictMux(newInstrumentedMux(http.NewServeMux(), opt.registerer))

	errAgg := merrors.New(
		rawMux.Handle("/healthz", http.HandlerFunc(r.healthz)),
	)

	switch service {
	case "thanos", "prometheus", "cortex", "mimir":
		errAgg.Add(
			rawMux.Handle("/api/v1/query", r.enforceMethods(r.endpoint(queryEndpointFor), "GET", "POST")),
			rawMux.Handle("/api/v1/query_range", r.enforceMethods(r.endpoint(queryEndpointFor), "GET", "POST")),
			rawMux.Handle("/federate", r.enforceMethods(r.endpoint(seriesEndpointFor), "GET")),
			rawMux.Handle("/api/v1/series", r.enforceMethods(r.endpoint(seriesEndpointFor), "GET", "POST")),
			rawMux.Handle("/api/v1/labels", r.enforceMethods(r.endpoint(labelsListEndpointFor), "GET", "POST")),
			rawMux.Handle("/api/v1/label/", r.enforceMethods(r.endpoint(labelValuesEndpointFor("/api/v1/label/", "/values")), "GET")),
		)
	case "loki":
		errAgg.Add(
			rawMux.Handle("/loki/api/v1/query", r.enforceMethods(r.endpoint(queryEndpointFor), "GET", "POST")),
			rawMux.Handle("/loki/api/v1/query_range", r.enforceMethods(r.endpoint(queryEndpointFor), "GET", "POST")),
			rawMux.Handle("/loki/api/v1/series", r.enforceMethods(r.endpoint(seriesEndpointFor), "GET", "POST")),
			rawMux.Handle("/loki/api/v1/labels", r.enforceMethods(r.endpoint(labelsListEndpointFor), "GET", "POST")),
			rawMux.Handle("/loki/api/v1/label/", r.enforceMethods(r.endpoint(labelValuesEndpointFor("/loki/api/v1/label/", "/values")), "GET")),
		)
	case "tempo":
		errAgg.Add(
			rawMux.Handle("/api/search", r.enforceMethods(r.endpoint(queryEndpointFor), "GET")),
			rawMux.Handle("/api/search/tags/", r.enforceMethods(r.endpoint(tagValuesEndpointFor("/api/search/tags/", "/values")), "GET")),
		)
	}

	for _, path := range opt.passthroughPaths {
		errAgg.Add(rawMux.Handle(path, http.HandlerFunc(r.passthroughHandler)))
	}

	if err := errAgg.Err(); err != nil {
		return nil, err
	}

	r.mux = rawMux
	return r, nil
}

func (r *Routes) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Routes) healthz(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"ok":true}`))
}

func (r *Routes) passthroughHandler(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Routes) enforceMethods(h http.HandlerFunc, methods ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		for _, m := range methods {
			if m == req.Method {
				h(w, req)
				return
			}
		}
		http.NotFound(w, req)
	})
}

// endpointResolver derives the dialect.EndpointKind for a request, given
// r so a LABEL_VALUES/TAG_VALUES path can pull the label name out of the
// URL itself (stdlib ServeMux has no path-parameter support, the same
// limitation the teacher works around by registering a path prefix).
type endpointResolver func(req *http.Request) dialect.EndpointKind

func queryEndpointFor(req *http.Request) dialect.EndpointKind { return dialect.QueryEndpoint() }
func seriesEndpointFor(req *http.Request) dialect.EndpointKind { return dialect.SeriesEndpoint() }
func labelsListEndpointFor(req *http.Request) dialect.EndpointKind {
	return dialect.LabelsListEndpoint()
}

func labelValuesEndpointFor(prefix, suffix string) endpointResolver {
	return func(req *http.Request) dialect.EndpointKind {
		name := strings.TrimSuffix(strings.TrimPrefix(req.URL.Path, prefix), suffix)
		return dialect.LabelValuesEndpoint(name)
	}
}

func tagValuesEndpointFor(prefix, suffix string) endpointResolver {
	return func(req *http.Request) dialect.EndpointKind {
		name := strings.TrimSuffix(strings.TrimPrefix(req.URL.Path, prefix), suffix)
		return dialect.TagValuesEndpoint(name)
	}
}

// endpoint builds the request handler shared by every enforced route:
// resolve the principal, run the orchestrator, rewrite the request in
// place, and forward it upstream.
func (r *Routes) endpoint(resolve endpointResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		principal, err := r.principals.Extract(req)
		if err != nil {
			http.Error(w, "could not determine caller identity", http.StatusUnauthorized)
			return
		}

		var formBody string
		hasFormBody := req.Method == http.MethodPost
		if hasFormBody {
			if err := req.ParseForm(); err != nil {
				http.Error(w, "malformed form body", http.StatusBadRequest)
				return
			}
			formBody = req.PostForm.Encode()
		}

		doc := r.store.Current()
		result, err := orchestrator.Enforce(orchestrator.RequestContext{
			Principal:   principal,
			Service:     r.service,
			Endpoint:    resolve(req),
			RawQuery:    req.URL.RawQuery,
			FormBody:    formBody,
			HasFormBody: hasFormBody,
			Options: enforcer.Options{
				ErrorOnReplace: r.errorOnReplace,
				Observe: func(operator string, outcome enforcer.Outcome) {
					if profile, ok := dialect.ForService(r.service); ok {
						r.metrics.ObserveEnforcement(profile.Name, operator, outcome)
					}
				},
			},
		}, doc)
		if err != nil {
			writeEnforcementError(w, err)
			return
		}

		req.URL.RawQuery = result.RawQuery
		if result.HasFormBody {
			req.Body = io.NopCloser(strings.NewReader(result.FormBody))
			req.ContentLength = int64(len(result.FormBody))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		for header, values := range result.Headers {
			req.Header.Del(header)
			for _, v := range values {
				req.Header.Add(header, v)
			}
		}

		r.handler.ServeHTTP(w, req)
	}
}

func writeEnforcementError(w http.ResponseWriter, err error) {
	var (
		unauthorizedValue  *errs.UnauthorizedLabelValue
		unauthorizedAccess *errs.UnauthorizedLabelAccess
		serviceNotConfig   *errs.ServiceNotConfigured
		malformed          *errs.MalformedInput
		configUnavailable  *errs.ConfigUnavailable
	)

	switch {
	case errors.As(err, &unauthorizedValue), errors.As(err, &unauthorizedAccess):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.As(err, &serviceNotConfig):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.As(err, &malformed):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &configUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
