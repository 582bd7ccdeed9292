package normalizer

import (
	"testing"

	"github.com/obs-gateway/lbac-proxy/internal/labelexpr"
	"gotest.tools/v3/assert"
)

func expr(name, op, value string) labelexpr.Expression {
	return labelexpr.Expression{Name: name, Operator: op, Value: value, OriginalText: name + op + value, HasOriginal: true}
}

func TestRepairURLDecoding(t *testing.T) {
	out := Normalize([]labelexpr.Expression{expr("job", "=~", "api. *")})
	assert.Equal(t, out[0].Value, "api.+*")
}

func TestStripExplicitRegexMarkerPromotesEquals(t *testing.T) {
	out := Normalize([]labelexpr.Expression{expr("job", "=", "~api|web")})
	assert.Equal(t, out[0].Operator, "=~")
	assert.Equal(t, out[0].Value, "api|web")
	assert.Assert(t, !out[0].HasOriginal)
}

func TestStripExplicitRegexMarkerPromotesNotEquals(t *testing.T) {
	out := Normalize([]labelexpr.Expression{expr("job", "!=", "~api|web")})
	assert.Equal(t, out[0].Operator, "!~")
}

func TestStripExplicitRegexMarkerWithoutMetacharactersStaysExact(t *testing.T) {
	out := Normalize([]labelexpr.Expression{expr("job", "=", "~api")})
	assert.Equal(t, out[0].Operator, "=")
	assert.Equal(t, out[0].Value, "api")
}

func TestCollapseWildcard(t *testing.T) {
	out := Normalize([]labelexpr.Expression{expr("job", "=~", ".+")})
	assert.Equal(t, out[0].Value, "*")
}

func TestCollapseWildcardLeavesCanonicalAlone(t *testing.T) {
	out := Normalize([]labelexpr.Expression{expr("job", "=~", "*")})
	assert.Equal(t, out[0].Value, "*")
}

func TestNormalizePassesThroughUnchanged(t *testing.T) {
	p := labelexpr.Passthru("true")
	out := Normalize([]labelexpr.Expression{p})
	assert.DeepEqual(t, out[0], p)
}
