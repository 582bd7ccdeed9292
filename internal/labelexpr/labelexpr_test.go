package labelexpr

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestWithValueClearsOriginal(t *testing.T) {
	e := Expression{Name: "job", Operator: "=", Value: "a", OriginalText: `job="a"`, HasOriginal: true}
	e = e.WithValue("b")
	assert.Equal(t, e.Value, "b")
	assert.Equal(t, e.HasOriginal, false)
	assert.Equal(t, e.OriginalText, "")
	assert.Assert(t, e.Modified())
}

func TestWithOperatorClearsOriginal(t *testing.T) {
	e := Expression{Name: "job", Operator: "=", Value: "a", OriginalText: `job="a"`, HasOriginal: true}
	e = e.WithOperator("=~")
	assert.Equal(t, e.Operator, "=~")
	assert.Assert(t, e.Modified())
}

func TestUnmodifiedExpressionIsNotModified(t *testing.T) {
	e := Expression{OriginalText: `job="a"`, HasOriginal: true}
	assert.Assert(t, !e.Modified())
}

func TestPassthru(t *testing.T) {
	e := Passthru(`status = ok`)
	assert.Assert(t, e.Passthrough)
	assert.Assert(t, e.HasOriginal)
	assert.Equal(t, e.OriginalText, `status = ok`)
}
