// Package gateway implements the thin forwarding routes in front of the
// Lambda-based incident analysis service. Each route validates, forwards,
// and reshapes; no analysis state is kept here.
package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cvelabhub/labhub/internal/common/httpx"
	"github.com/cvelabhub/labhub/internal/labhub/backend"
)

type gatewayAPI struct {
	// analysis is the client for the analysis service. Nil when the
	// upstream URL is not configured; every route then fails with a
	// configuration error before any network call.
	analysis *backend.Client
}

type route struct {
	Method  string
	Path    string
	Handler httpx.RequestHandler
}

// Router returns the analysis gateway routes. analysis may be nil.
func Router(analysis *backend.Client) chi.Router {
	api := &gatewayAPI{analysis: analysis}
	r := chi.NewRouter()
	for _, rt := range []route{
		{http.MethodGet, "/analyze", api.analyze},
		{http.MethodGet, "/incidents", api.listIncidents},
		{http.MethodGet, "/incidents/{incidentID}", api.getIncident},
	} {
		r.Method(rt.Method, rt.Path, httpx.WrapHandler(rt.Handler))
	}
	return r
}
