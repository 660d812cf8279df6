// Package reports proxies the per-user report CRUD endpoints to the
// backend's report store and keeps local report drafts keyed by CVE id.
package reports

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cvelabhub/labhub/internal/common/httpx"
	"github.com/cvelabhub/labhub/internal/labhub/backend"
	"github.com/cvelabhub/labhub/internal/labhub/clientstate"
)

type reportsAPI struct {
	client *backend.Client
	state  clientstate.Store
}

type route struct {
	Method  string
	Path    string
	Handler httpx.RequestHandler
}

// Router returns the report routes, mounted under /users/{userID}/reports.
func Router(client *backend.Client, state clientstate.Store) chi.Router {
	api := &reportsAPI{client: client, state: state}
	r := chi.NewRouter()
	for _, rt := range []route{
		{http.MethodGet, "/", api.list},
		{http.MethodPost, "/", api.upload},
		{http.MethodGet, "/{reportID}/download", api.downloadURL},
		{http.MethodDelete, "/{reportID}", api.deleteReport},
		{http.MethodGet, "/drafts/{cveID}", api.getDraft},
		{http.MethodPut, "/drafts/{cveID}", api.putDraft},
		{http.MethodDelete, "/drafts/{cveID}", api.deleteDraft},
	} {
		r.Method(rt.Method, rt.Path, httpx.WrapHandler(rt.Handler))
	}
	return r
}
