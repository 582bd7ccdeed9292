// Package metrics registers the Prometheus instrumentation this gateway
// exposes about itself: per-dialect/per-operator enforcement outcomes and
// configuration reload health, plus the same per-handler HTTP
// instrumenter the teacher wires into its mux.
package metrics

import (
	"github.com/metalmatze/signal/server/signalhttp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/obs-gateway/lbac-proxy/internal/dialect"
	"github.com/obs-gateway/lbac-proxy/internal/enforcer"
)

// Metrics holds every collector this gateway registers for itself.
// Callers build one per prometheus.Registerer (normally once, at
// startup) and thread it through the orchestrator and HTTP layer.
type Metrics struct {
	Enforcements     *prometheus.CounterVec
	ConfigReloads    *prometheus.CounterVec
	ConfigGeneration prometheus.Gauge
	Handler          signalhttp.HandlerInstrumenter
}

// New registers every collector against reg and returns the handle
// callers use to record observations. reg is expected to be a fresh
// *prometheus.Registry the way the teacher's main.go builds one, not the
// global DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Enforcements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lbac_proxy_enforcements_total",
			Help: "Label expressions processed by the enforcement pipeline, by dialect, operator and outcome.",
		}, []string{"dialect", "operator", "outcome"}),
		ConfigReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lbac_proxy_config_reloads_total",
			Help: "Configuration reload attempts, by result.",
		}, []string{"result"}),
		ConfigGeneration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lbac_proxy_config_generation",
			Help: "Monotonically increasing generation number of the currently active configuration snapshot.",
		}),
		Handler: signalhttp.NewHandlerInstrumenter(reg, []string{"handler"}),
	}

	reg.MustRegister(m.Enforcements, m.ConfigReloads, m.ConfigGeneration)
	return m
}

// ObserveEnforcement records one expression's disposition. Passthrough
// expressions (never handed to enforcer.Enforce) are not observed here;
// callers that want passthrough visibility should count them separately.
func (m *Metrics) ObserveEnforcement(d dialect.Name, operator string, outcome enforcer.Outcome) {
	m.Enforcements.WithLabelValues(d.String(), operator, outcomeLabel(outcome)).Inc()
}

// ObserveReload records a configuration reload attempt's result and, on
// success, the new generation number.
func (m *Metrics) ObserveReload(ok bool, generation uint64) {
	if ok {
		m.ConfigReloads.WithLabelValues("success").Inc()
		m.ConfigGeneration.Set(float64(generation))
		return
	}
	m.ConfigReloads.WithLabelValues("failure").Inc()
}

func outcomeLabel(o enforcer.Outcome) string {
	switch o {
	case enforcer.Accepted:
		return "accepted"
	case enforcer.Rewritten:
		return "rewritten"
	case enforcer.Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}
