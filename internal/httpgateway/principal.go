package httpgateway

import (
	"net/http"
	"strings"

	"github.com/obs-gateway/lbac-proxy/internal/store"
)

// PrincipalExtractor pulls the authenticated caller identity out of a
// request. Generalizes the teacher's ExtractLabeler: instead of storing
// one tenant label value in the request context, it resolves a full
// store.Principal (username + groups) for the orchestrator to resolve
// constraints against.
type PrincipalExtractor interface {
	Extract(r *http.Request) (store.Principal, error)
}

// HeaderPrincipalExtractor reads the principal from upstream-auth
// headers, the same trust model as an ingress/oauth2-proxy sitting in
// front of this gateway: usernameHeader carries one value, groupsHeader
// a comma-separated list.
type HeaderPrincipalExtractor struct {
	UsernameHeader string
	GroupsHeader   string
}

func (h HeaderPrincipalExtractor) Extract(r *http.Request) (store.Principal, error) {
	username := r.Header.Get(h.UsernameHeader)
	var groups []string
	if raw := r.Header.Get(h.GroupsHeader); raw != "" {
		for _, g := range strings.Split(raw, ",") {
			g = strings.TrimSpace(g)
			if g != "" {
				groups = append(groups, g)
			}
		}
	}
	return store.Principal{Username: username, Groups: groups}, nil
}
