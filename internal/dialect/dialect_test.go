package dialect

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestForService(t *testing.T) {
	for _, tc := range []struct {
		service string
		want    Name
		ok      bool
	}{
		{"thanos", PromQL, true},
		{"prometheus", PromQL, true},
		{"cortex", PromQL, true},
		{"mimir", PromQL, true},
		{"loki", LogQL, true},
		{"tempo", TraceQL, true},
		{"alertmanager", Name(-1), false},
	} {
		t.Run(tc.service, func(t *testing.T) {
			profile, ok := ForService(tc.service)
			assert.Equal(t, ok, tc.ok)
			if tc.ok {
				assert.Equal(t, profile.Name, tc.want)
			}
		})
	}
}

func TestTraceQLProfileIntrinsics(t *testing.T) {
	_, ok := TraceQLProfile.IntrinsicAttributes["status"]
	assert.Assert(t, ok)
	_, ok = TraceQLProfile.PassthroughKeywords["true"]
	assert.Assert(t, ok)
}

func TestOperatorPrecedenceOrdering(t *testing.T) {
	// Longer/more specific tokens must come before any shorter token
	// they contain, or findOperator-style scans would find the "=" inside
	// "!=" first and misparse job!="a" as name "job!".
	idxBang, idxBangEq, idxEq := -1, -1, -1
	for i, op := range PromQLProfile.OperatorPrecedence {
		if op == "!~" {
			idxBang = i
		}
		if op == "!=" {
			idxBangEq = i
		}
		if op == "=" {
			idxEq = i
		}
	}
	assert.Assert(t, idxBang >= 0 && idxBangEq >= 0)
	assert.Assert(t, idxBangEq < idxEq)
}
