package pairparser

import (
	"testing"

	"github.com/obs-gateway/lbac-proxy/internal/dialect"
	"gotest.tools/v3/assert"
)

func TestParseEquals(t *testing.T) {
	e := Parse(`job="api"`, dialect.PromQLProfile)
	assert.Equal(t, e.Name, "job")
	assert.Equal(t, e.Operator, "=")
	assert.Equal(t, e.Value, "api")
	assert.Assert(t, e.Quoted)
	assert.Assert(t, !e.Passthrough)
}

func TestParseRegexNotEquals(t *testing.T) {
	e := Parse(`job!~"api.*"`, dialect.PromQLProfile)
	assert.Equal(t, e.Operator, "!~")
	assert.Equal(t, e.Value, "api.*")
}

func TestParseDoesNotMisreadBangAsNotEquals(t *testing.T) {
	e := Parse(`job!="api"`, dialect.PromQLProfile)
	assert.Equal(t, e.Operator, "!=")
	assert.Equal(t, e.Name, "job")
}

func TestParseTraceQLGreaterEqual(t *testing.T) {
	e := Parse(`duration>=100ms`, dialect.TraceQLProfile)
	assert.Equal(t, e.Operator, ">=")
	assert.Equal(t, e.Name, "duration")
	assert.Equal(t, e.Value, "100ms")
}

func TestParseTraceQLIntrinsicIsPassthrough(t *testing.T) {
	e := Parse(`status=error`, dialect.TraceQLProfile)
	assert.Assert(t, e.Passthrough)
}

func TestParseTraceQLKeywordIsPassthrough(t *testing.T) {
	e := Parse(`true`, dialect.TraceQLProfile)
	assert.Assert(t, e.Passthrough)
	assert.Equal(t, e.OriginalText, "true")
}

func TestParseUnknownShapeIsPassthrough(t *testing.T) {
	e := Parse(`not_a_pair_at_all`, dialect.PromQLProfile)
	assert.Assert(t, e.Passthrough)
}

func TestParseIgnoresOperatorInsideQuotes(t *testing.T) {
	e := Parse(`job="a=b"`, dialect.PromQLProfile)
	assert.Equal(t, e.Operator, "=")
	assert.Equal(t, e.Value, "a=b")
}

func TestParseOriginalTextPreserved(t *testing.T) {
	raw := ` job = "api" `
	e := Parse(raw, dialect.PromQLProfile)
	assert.Equal(t, e.OriginalText, `job = "api"`)
	assert.Assert(t, e.HasOriginal)
}
