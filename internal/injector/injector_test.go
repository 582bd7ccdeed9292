package injector

import (
	"testing"

	"github.com/obs-gateway/lbac-proxy/internal/labelexpr"
	"github.com/obs-gateway/lbac-proxy/internal/store"
	"gotest.tools/v3/assert"
)

func TestInjectAppendsMissingRequiredLabel(t *testing.T) {
	allowed := store.NewConstraintSet(map[string][]string{"namespace": {"a"}})
	out := Inject(nil, allowed)
	assert.Equal(t, len(out), 1)
	assert.Equal(t, out[0].Name, "namespace")
	assert.Equal(t, out[0].Operator, "=")
	assert.Equal(t, out[0].Value, "a")
}

func TestInjectSkipsAlreadyPresentLabel(t *testing.T) {
	allowed := store.NewConstraintSet(map[string][]string{"namespace": {"a"}})
	existing := []labelexpr.Expression{{Name: "namespace", Operator: "=", Value: "a", HasOriginal: true, OriginalText: `namespace="a"`}}
	out := Inject(existing, allowed)
	assert.Equal(t, len(out), 1)
	assert.Assert(t, out[0].HasOriginal)
}

func TestInjectMultiValueBecomesAlternation(t *testing.T) {
	allowed := store.NewConstraintSet(map[string][]string{"namespace": {"b", "a"}})
	out := Inject(nil, allowed)
	assert.Equal(t, out[0].Operator, "=~")
	assert.Equal(t, out[0].Value, "a|b")
}

func TestInjectNoRequiredLabelsLeavesListUnchanged(t *testing.T) {
	allowed := store.NewConstraintSet(map[string][]string{})
	out := Inject(nil, allowed)
	assert.Assert(t, out == nil)
}
