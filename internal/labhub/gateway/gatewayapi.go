package gateway

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cvelabhub/labhub/internal/common/httpx"
	"github.com/cvelabhub/labhub/internal/labhub/backend"
)

const defaultIncidentLimit = "100"

// analyze forwards an alarm analysis request. All three parameters are
// required; the 400 enumerates every missing one so the caller can fix the
// request in a single round trip.
func (api *gatewayAPI) analyze(r *http.Request) (*httpx.Response, error) {
	q := r.URL.Query()
	var missing []string
	for _, p := range []string{"alarm_name", "instance_id", "timestamp"} {
		if q.Get(p) == "" {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return nil, httpx.ErrMissingParams(missing...)
	}

	if api.analysis == nil {
		return nil, httpx.ErrNotConfigured("analysis service URL")
	}

	body, statusCode, err := api.analysis.DoRequest(r.Context(), backend.RequestOptions{
		Method: http.MethodGet,
		Path:   "/analyze",
		QueryParams: map[string]string{
			"alarm_name":  q.Get("alarm_name"),
			"instance_id": q.Get("instance_id"),
			"timestamp":   q.Get("timestamp"),
		},
		BearerToken: bearerFrom(r),
	})
	if err != nil {
		return nil, backend.HTTPError(err)
	}

	return &httpx.Response{
		StatusCode: statusCode,
		Response:   body,
	}, nil
}

// listIncidents forwards the incident listing. The outgoing request never
// carries an Authorization header: the listing is anonymous-access by
// policy, whatever the browser sent.
func (api *gatewayAPI) listIncidents(r *http.Request) (*httpx.Response, error) {
	if api.analysis == nil {
		return nil, httpx.ErrNotConfigured("analysis service URL")
	}

	limit := r.URL.Query().Get("limit")
	if limit == "" {
		limit = defaultIncidentLimit
	}

	body, statusCode, err := api.analysis.DoRequest(r.Context(), backend.RequestOptions{
		Method:      http.MethodGet,
		Path:        "/incidents",
		QueryParams: map[string]string{"limit": limit},
	})
	if err != nil {
		return nil, backend.HTTPError(err)
	}

	return &httpx.Response{
		StatusCode: statusCode,
		Response:   body,
	}, nil
}

// getIncident forwards a single incident lookup. An upstream 404 becomes a
// local 404 with a stable message instead of the upstream body.
func (api *gatewayAPI) getIncident(r *http.Request) (*httpx.Response, error) {
	if api.analysis == nil {
		return nil, httpx.ErrNotConfigured("analysis service URL")
	}

	incidentID := chi.URLParam(r, "incidentID")
	body, statusCode, err := api.analysis.DoRequest(r.Context(), backend.RequestOptions{
		Method:      http.MethodGet,
		Path:        "/incidents/" + incidentID,
		BearerToken: bearerFrom(r),
	})
	if err != nil {
		var ue *backend.UpstreamError
		if errors.As(err, &ue) && ue.StatusCode == http.StatusNotFound {
			return nil, httpx.ErrNotFound("Incident not found")
		}
		return nil, backend.HTTPError(err)
	}

	return &httpx.Response{
		StatusCode: statusCode,
		Response:   body,
	}, nil
}

// bearerFrom extracts the caller's bearer token for forwarding.
func bearerFrom(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
