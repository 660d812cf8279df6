package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cvelabhub/labhub/internal/common/httpx"
	"github.com/cvelabhub/labhub/internal/labhub/auth"
)

// start provisions a lab for the requested CVE and returns the new session
// with its initial expiry.
func (api *sessionAPI) start(r *http.Request) (*httpx.Response, error) {
	req := &StartReq{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	if req.CVEID == "" {
		return nil, httpx.ErrMissingParams("cveId")
	}

	s, err := api.manager.Start(r.Context(), auth.UserIDFromContext(r.Context()), req.CVEID)
	if err != nil {
		return nil, err
	}

	log.Ctx(r.Context()).Info().
		Str("session_id", s.ID.String()).
		Str("cve_id", s.CVEID).
		Msg("lab session started")

	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   "/api/v1/labs/" + s.ID.String(),
		Response: &StartRsp{
			UUID:      s.ID,
			CVEID:     s.CVEID,
			Status:    s.Status,
			ExpiresAt: s.ExpiresAt,
		},
	}, nil
}

// get returns the live session. Terminated and unknown sessions both report
// 404.
func (api *sessionAPI) get(r *http.Request) (*httpx.Response, error) {
	id, err := sessionID(r)
	if err != nil {
		return nil, err
	}
	s, serr := api.manager.Get(r.Context(), id)
	if serr != nil {
		return nil, serr
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   s,
	}, nil
}

// checkExtendable returns the extend eligibility view. It never mutates the
// session; the client calls this before rendering the extend control.
func (api *sessionAPI) checkExtendable(r *http.Request) (*httpx.Response, error) {
	id, err := sessionID(r)
	if err != nil {
		return nil, err
	}
	e, serr := api.manager.CheckExtendable(r.Context(), id)
	if serr != nil {
		return nil, serr
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   e,
	}, nil
}

func (api *sessionAPI) extend(r *http.Request) (*httpx.Response, error) {
	id, err := sessionID(r)
	if err != nil {
		return nil, err
	}
	rsp, serr := api.manager.Extend(r.Context(), id)
	if serr != nil {
		return nil, serr
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   rsp,
	}, nil
}

func (api *sessionAPI) terminate(r *http.Request) (*httpx.Response, error) {
	id, err := sessionID(r)
	if err != nil {
		return nil, err
	}
	rsp, serr := api.manager.Terminate(r.Context(), id)
	if serr != nil {
		return nil, serr
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   rsp,
	}, nil
}

// sessionID parses the session uuid from the URL.
func sessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		return uuid.Nil, httpx.ErrInvalidRequest("invalid session id")
	}
	return id, nil
}
