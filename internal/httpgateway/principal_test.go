package httpgateway

import (
	"net/http/httptest"
	"testing"

	"gotest.tools/v3/assert"
)

func TestHeaderPrincipalExtractorParsesGroups(t *testing.T) {
	e := HeaderPrincipalExtractor{UsernameHeader: "X-Forwarded-User", GroupsHeader: "X-Forwarded-Groups"}
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-User", "alice")
	req.Header.Set("X-Forwarded-Groups", "readers, ops")

	p, err := e.Extract(req)
	assert.NilError(t, err)
	assert.Equal(t, p.Username, "alice")
	assert.DeepEqual(t, p.Groups, []string{"readers", "ops"})
}

func TestHeaderPrincipalExtractorNoGroupsHeader(t *testing.T) {
	e := HeaderPrincipalExtractor{UsernameHeader: "X-Forwarded-User", GroupsHeader: "X-Forwarded-Groups"}
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-User", "alice")

	p, err := e.Extract(req)
	assert.NilError(t, err)
	assert.Equal(t, p.Username, "alice")
	assert.Assert(t, p.Groups == nil)
}
