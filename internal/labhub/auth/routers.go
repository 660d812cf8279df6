package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cvelabhub/labhub/internal/common/httpx"
	"github.com/cvelabhub/labhub/internal/labhub/backend"
	"github.com/cvelabhub/labhub/internal/labhub/clientstate"
)

type authAPI struct {
	client *backend.Client
	state  clientstate.Store
}

type route struct {
	Method  string
	Path    string
	Handler httpx.RequestHandler
}

// Router returns the credential proxy routes. These run without the bearer
// middleware: the caller is obtaining a token, not presenting one.
func Router(client *backend.Client, state clientstate.Store) chi.Router {
	api := &authAPI{client: client, state: state}
	r := chi.NewRouter()
	for _, rt := range []route{
		{http.MethodPost, "/login", api.login},
		{http.MethodPost, "/signup", api.signup},
		{http.MethodPost, "/otp/send", api.sendOTP},
		{http.MethodPost, "/otp/verify", api.verifyOTP},
	} {
		r.Method(rt.Method, rt.Path, httpx.WrapHandler(rt.Handler))
	}
	return r
}
