package auth

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/cvelabhub/labhub/internal/common/httpx"
	"github.com/cvelabhub/labhub/internal/labhub/backend"
	"github.com/cvelabhub/labhub/internal/labhub/clientstate"
)

// login forwards the credential check to the backend and caches the issued
// token and profile so the CLI can reuse them across invocations.
func (api *authAPI) login(r *http.Request) (*httpx.Response, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, httpx.ErrUnableToParseRequest()
	}

	rsp, ferr := api.client.Post(r.Context(), "/api/v1/auth/login", body, "")
	if ferr != nil {
		return nil, backend.HTTPError(ferr)
	}

	if api.state != nil {
		api.cacheCredentials(r, body, rsp)
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   rsp,
	}, nil
}

func (api *authAPI) signup(r *http.Request) (*httpx.Response, error) {
	return api.forward(r, "/api/v1/auth/signup")
}

func (api *authAPI) sendOTP(r *http.Request) (*httpx.Response, error) {
	return api.forward(r, "/api/v1/auth/otp/send")
}

func (api *authAPI) verifyOTP(r *http.Request) (*httpx.Response, error) {
	return api.forward(r, "/api/v1/auth/otp/verify")
}

// forward relays the request body to the backend path verbatim.
func (api *authAPI) forward(r *http.Request, path string) (*httpx.Response, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, httpx.ErrUnableToParseRequest()
	}
	rsp, ferr := api.client.Post(r.Context(), path, body, "")
	if ferr != nil {
		return nil, backend.HTTPError(ferr)
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   rsp,
	}, nil
}

// cacheCredentials records the issued token and a minimal profile in the
// client-state store. Failures are logged, never surfaced: the login itself
// succeeded.
func (api *authAPI) cacheCredentials(r *http.Request, reqBody, rspBody []byte) {
	token := gjson.GetBytes(rspBody, "accessToken")
	if !token.Exists() {
		token = gjson.GetBytes(rspBody, "token")
	}
	if !token.Exists() {
		return
	}
	if err := api.state.Set(clientstate.KeyAccessToken, token.String()); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("unable to cache access token")
		return
	}

	profile := `{}`
	if email := gjson.GetBytes(reqBody, "email"); email.Exists() {
		profile, _ = sjson.Set(profile, "email", email.String())
	}
	if user := gjson.GetBytes(rspBody, "user"); user.Exists() {
		profile, _ = sjson.SetRaw(profile, "profile", user.Raw)
	}
	if err := api.state.Set(clientstate.KeyAuth, profile); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("unable to cache auth profile")
	}
}
