package shaperewriter

import (
	"testing"

	"github.com/obs-gateway/lbac-proxy/internal/dialect"
	"gotest.tools/v3/assert"
)

func TestSpliceEmptyQueryYieldsBareBlock(t *testing.T) {
	assert.Equal(t, Splice("", dialect.PromQLProfile, `namespace="a"`), `{namespace="a"}`)
	assert.Equal(t, Splice("   ", dialect.PromQLProfile, ""), "{}")
}

func TestSpliceLogQLPrependsBlock(t *testing.T) {
	got := Splice(`|= "error"`, dialect.LogQLProfile, `namespace="a"`)
	assert.Equal(t, got, `{namespace="a"} |= "error"`)
}

func TestSpliceTraceQLPrependsBlock(t *testing.T) {
	got := Splice(`status = error`, dialect.TraceQLProfile, `service.name="x"`)
	assert.Equal(t, got, `{service.name="x"} status = error`)
}

func TestSplicePromQLRangeVectorInsertsBeforeBracket(t *testing.T) {
	got := Splice(`rate(http_requests[5m])`, dialect.PromQLProfile, `namespace="a"`)
	assert.Equal(t, got, `rate(http_requests{namespace="a"}[5m])`)
}

func TestSplicePromQLBareMetricAppendsBlock(t *testing.T) {
	got := Splice(`up`, dialect.PromQLProfile, `namespace="a"`)
	assert.Equal(t, got, `up{namespace="a"}`)
}

func TestSplicePromQLAggregationWithByInsertsBeforeClause(t *testing.T) {
	got := Splice(`sum(up) by (job)`, dialect.PromQLProfile, `namespace="a"`)
	assert.Equal(t, got, `sum(up{namespace="a"}) by (job)`)
}
