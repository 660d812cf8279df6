package adminview

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cvelabhub/labhub/internal/common/httpx"
	"github.com/cvelabhub/labhub/internal/labhub/backend"
)

type adminAPI struct {
	client *backend.Client
}

type route struct {
	Method  string
	Path    string
	Handler httpx.RequestHandler
}

// Router returns the admin monitoring routes. Callers are already past the
// bearer and admin-role middleware.
func Router(client *backend.Client) chi.Router {
	api := &adminAPI{client: client}
	r := chi.NewRouter()
	for _, rt := range []route{
		{http.MethodGet, "/labs", api.listLabs},
		{http.MethodGet, "/labs/{labID}", api.getLab},
		{http.MethodGet, "/labs/{labID}/metrics", api.labMetrics},
		{http.MethodGet, "/labs/{labID}/logs", api.labLogs},
		{http.MethodPost, "/labs/{labID}/terminate", api.terminateLab},
	} {
		r.Method(rt.Method, rt.Path, httpx.WrapHandler(rt.Handler))
	}
	return r
}
