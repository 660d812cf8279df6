package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cvelabhub/labhub/internal/common/httpx"
)

type sessionAPI struct {
	manager *Manager
}

type route struct {
	Method  string
	Path    string
	Handler httpx.RequestHandler
}

// Router returns the lab session lifecycle routes. The bearer middleware
// runs in front of this router; handlers trust the identity on the context.
func Router(manager *Manager) chi.Router {
	api := &sessionAPI{manager: manager}
	r := chi.NewRouter()
	for _, rt := range []route{
		{http.MethodPost, "/", api.start},
		{http.MethodGet, "/{sessionID}", api.get},
		{http.MethodGet, "/{sessionID}/extendable", api.checkExtendable},
		{http.MethodPost, "/{sessionID}/extend", api.extend},
		{http.MethodPost, "/{sessionID}/terminate", api.terminate},
	} {
		r.Method(rt.Method, rt.Path, httpx.WrapHandler(rt.Handler))
	}
	return r
}
