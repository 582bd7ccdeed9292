package specializer

import (
	"net/url"
	"testing"

	"github.com/obs-gateway/lbac-proxy/internal/dialect"
	"github.com/obs-gateway/lbac-proxy/internal/store"
	"gotest.tools/v3/assert"
)

func TestLabelsListAppendsEnforcementParam(t *testing.T) {
	allowed := store.NewConstraintSet(map[string][]string{"namespace": {"a"}})
	got, err := LabelsList("", dialect.PromQLProfile, allowed)
	assert.NilError(t, err)
	q, _ := url.ParseQuery(got)
	assert.Equal(t, q.Get("enforcementParam"), `{namespace="a"}`)
}

func TestLabelsListWildcardPrincipalPassesThroughUnchanged(t *testing.T) {
	allowed := store.NewConstraintSet(map[string][]string{})
	got, err := LabelsList("start=0", dialect.PromQLProfile, allowed)
	assert.NilError(t, err)
	assert.Equal(t, got, "start=0")
}

func TestLabelValuesBypassesNameLabel(t *testing.T) {
	allowed := store.NewConstraintSet(map[string][]string{"namespace": {"a"}})
	got, err := LabelValues("", "__name__", dialect.PromQLProfile, allowed, nil)
	assert.NilError(t, err)
	assert.Equal(t, got, "")
}

func TestLabelValuesRejectsUnlistedLabel(t *testing.T) {
	allowed := store.NewConstraintSet(map[string][]string{
		"namespace": {"a"},
		store.MetaLabels: {"namespace"},
	})
	_, err := LabelValues("", "cluster", dialect.PromQLProfile, allowed, nil)
	assert.ErrorContains(t, err, "cluster")
}

func TestLabelValuesRejectsExcludedLabel(t *testing.T) {
	allowed := store.NewConstraintSet(map[string][]string{"namespace": {"a"}})
	excluded := store.NewExclusionSet("namespace")
	_, err := LabelValues("", "namespace", dialect.PromQLProfile, allowed, excluded)
	assert.Assert(t, err != nil)
}

func TestLabelValuesAllowedEmitsConstraintBlock(t *testing.T) {
	allowed := store.NewConstraintSet(map[string][]string{"namespace": {"a"}})
	got, err := LabelValues("", "namespace", dialect.PromQLProfile, allowed, nil)
	assert.NilError(t, err)
	q, _ := url.ParseQuery(got)
	assert.Equal(t, q.Get("enforcementParam"), `{namespace="a"}`)
}

func TestLabelValuesWildcardEmitsEmptyBlock(t *testing.T) {
	allowed := store.NewConstraintSet(map[string][]string{
		"namespace":      {"*"},
		store.MetaLabels: {"namespace"},
	})
	got, err := LabelValues("", "namespace", dialect.PromQLProfile, allowed, nil)
	assert.NilError(t, err)
	q, _ := url.ParseQuery(got)
	assert.Equal(t, q.Get("enforcementParam"), `{}`)
}

func TestTagValuesUsesQParam(t *testing.T) {
	allowed := store.NewConstraintSet(map[string][]string{"service.name": {"x"}})
	got, err := TagValues("", "service.name", dialect.TraceQLProfile, allowed, nil)
	assert.NilError(t, err)
	q, _ := url.ParseQuery(got)
	assert.Equal(t, q.Get("q"), `{service.name="x"}`)
}

func TestSeriesMergesIntoExistingMatchSelector(t *testing.T) {
	allowed := store.NewConstraintSet(map[string][]string{"namespace": {"a"}})
	got, err := Series(`match[]=up{job="api"}`, dialect.PromQLProfile, allowed)
	assert.NilError(t, err)
	assert.Assert(t, containsSubstring(got, `match[]=`))
	assert.Assert(t, containsSubstring(got, `namespace`))
}

func TestSeriesWithNoExistingMatchBuildsOneFromConstraints(t *testing.T) {
	allowed := store.NewConstraintSet(map[string][]string{"namespace": {"a"}})
	got, err := Series("", dialect.PromQLProfile, allowed)
	assert.NilError(t, err)
	q, _ := url.ParseQuery(got)
	assert.Equal(t, q.Get("match[]"), `{namespace="a"}`)
}

func TestSeriesDedupesIdenticalMatchValues(t *testing.T) {
	allowed := store.NewConstraintSet(map[string][]string{})
	got, err := Series(`match[]=up&match%5B%5D=up`, dialect.PromQLProfile, allowed)
	assert.NilError(t, err)
	q, _ := url.ParseQuery(got)
	assert.Equal(t, len(q["match[]"]), 1)
}

func containsSubstring(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}
