package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"

	"github.com/obs-gateway/lbac-proxy/internal/dialect"
	"github.com/obs-gateway/lbac-proxy/internal/enforcer"
	"gotest.tools/v3/assert"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 8)
	c.Collect(ch)
	close(ch)
	var total float64
	for m := range ch {
		var pb io_prometheus_client.Metric
		assert.NilError(t, m.Write(&pb))
		total += pb.GetCounter().GetValue()
	}
	return total
}

func TestNewRegistersCollectorsWithoutPanicking(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	assert.Assert(t, m != nil)
}

func TestObserveEnforcementIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveEnforcement(dialect.PromQL, "=", enforcer.Accepted)
	m.ObserveEnforcement(dialect.PromQL, "=", enforcer.Accepted)
	assert.Equal(t, counterValue(t, m.Enforcements), float64(2))
}

func TestObserveReloadTracksSuccessAndFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveReload(true, 3)
	m.ObserveReload(false, 3)
	assert.Equal(t, counterValue(t, m.ConfigReloads), float64(2))

	gatherGauge := make(chan prometheus.Metric, 1)
	m.ConfigGeneration.Collect(gatherGauge)
	close(gatherGauge)
	var pb io_prometheus_client.Metric
	for mm := range gatherGauge {
		assert.NilError(t, mm.Write(&pb))
	}
	assert.Equal(t, pb.GetGauge().GetValue(), float64(3))
}
